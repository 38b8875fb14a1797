// Package app wires the pipeline: feeds in, trends out, one shared
// publishing routine for every schedule. Collaborator contracts live
// here as interfaces so runs can be tested against fakes.
package app

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/khabarpress/khabarpress/internal/cfg"
	"github.com/khabarpress/khabarpress/internal/feeds"
	"github.com/khabarpress/khabarpress/internal/gemini"
	"github.com/khabarpress/khabarpress/internal/ledger"
	"github.com/khabarpress/khabarpress/internal/metrics"
	"github.com/khabarpress/khabarpress/internal/scraper"
	"github.com/khabarpress/khabarpress/internal/telegram"
	"github.com/khabarpress/khabarpress/internal/trends"
	"github.com/khabarpress/khabarpress/internal/wordpress"
)

// Per-command post caps, overridable with MAX_POSTS.
const (
	defaultMultiSourcePosts = 3
	defaultViralUPPosts     = 5
	defaultImageRetryPosts  = 10

	// viral and UP publish single-source stories, capped per group
	standaloneTopicLimit = 5
)

// Readers should know AI made the artwork.
const imageAttribution = "\n\n<p style='text-align: left; font-style: italic; color: #666;'>Image Source: AI</p>"

// ArticleWriter generates one article per trend.
type ArticleWriter interface {
	WriteArticle(ctx context.Context, req gemini.Request) (*gemini.Article, error)
}

// ImageMaker produces featured-image bytes for a prompt.
type ImageMaker interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// Publisher is the WordPress surface the pipelines touch.
type Publisher interface {
	CheckConnection(ctx context.Context) error
	CreatePost(ctx context.Context, p wordpress.Post) (int, error)
	UploadImage(ctx context.Context, data []byte, filename, altText string) (int, error)
	RecentPosts(ctx context.Context, limit int) ([]wordpress.PostSummary, error)
	SetFeaturedImage(ctx context.Context, postID, mediaID int) error
}

// Translator turns Hindi into English for slugs and alt text.
type Translator interface {
	ToEnglish(ctx context.Context, text string) (string, error)
}

// FeedFetcher downloads the registry's RSS feeds.
type FeedFetcher interface {
	FetchGroups(ctx context.Context, groups []feeds.SourceGroup) []feeds.Item
	FetchList(ctx context.Context, label string, urls []string) []feeds.Item
}

// ContextFetcher pulls article body text for generator context.
type ContextFetcher interface {
	ExtractArticles(ctx context.Context, urls []string) map[string]*scraper.ArticleContent
}

// App holds one run's collaborators. The ledger is passed in explicitly;
// there is no ambient global to reach for.
type App struct {
	Cfg       *cfg.Config
	Ledger    ledger.Ledger
	Registry  *feeds.Registry
	Fetcher   FeedFetcher
	Writer    ArticleWriter
	Images    ImageMaker
	WP        Publisher
	Translate Translator
	Scrape    ContextFetcher
	Notify    *telegram.Notifier
}

func (a *App) maxPosts(fallback int) int {
	if a.Cfg.MaxPosts > 0 {
		return a.Cfg.MaxPosts
	}
	return fallback
}

// RunMultiSource publishes stories corroborated by several national
// feeds. Cron calls this every 45 minutes.
func (a *App) RunMultiSource(ctx context.Context) error {
	log.Println("Starting MULTI-SOURCE content automation...")
	if err := a.WP.CheckConnection(ctx); err != nil {
		return fmt.Errorf("WordPress connection failed: %w", err)
	}

	items := a.Fetcher.FetchGroups(ctx, a.Registry.Sources)
	log.Printf("📰 Collected %d feed items from %d sources", len(items), len(a.Registry.Sources))

	found := trends.FindMultiSource(items, a.Cfg.FreshWindow, time.Now())
	metrics.Global.IncrementTrendsDiscovered(len(found))
	if len(found) == 0 {
		log.Println("No multi-source trending topics found")
		return nil
	}
	log.Printf("📊 Found %d multi-source trending topics", len(found))

	created := a.publishTrends(ctx, found, cfg.CmdMultiSource, a.maxPosts(defaultMultiSourcePosts))
	log.Printf("✅ MULTI-SOURCE automation completed. Created %d posts.", created)
	a.sendSummary(ctx, "Multi-source", created, len(found))
	return nil
}

// RunViralUP publishes standalone viral and Uttar Pradesh topics, viral
// first. Cron calls this every 3 hours.
func (a *App) RunViralUP(ctx context.Context) error {
	log.Println("Starting VIRAL & UP content automation...")
	if err := a.WP.CheckConnection(ctx); err != nil {
		return fmt.Errorf("WordPress connection failed: %w", err)
	}

	now := time.Now()
	viralItems := a.Fetcher.FetchList(ctx, "viral", a.Registry.Viral)
	upItems := a.Fetcher.FetchList(ctx, "uttarpradesh", a.Registry.UttarPradesh)

	topics := trends.StandaloneTopics(viralItems, "वायरल", a.Cfg.FreshWindow, now, standaloneTopicLimit)
	topics = append(topics, trends.StandaloneTopics(upItems, "उत्तर प्रदेश", a.Cfg.FreshWindow, now, standaloneTopicLimit)...)
	metrics.Global.IncrementTrendsDiscovered(len(topics))
	if len(topics) == 0 {
		log.Println("No viral or UP topics found")
		return nil
	}
	log.Printf("📊 Found %d viral and UP topics", len(topics))

	created := a.publishTrends(ctx, topics, cfg.CmdViralUP, a.maxPosts(defaultViralUPPosts))
	log.Printf("✅ VIRAL & UP automation completed. Created %d posts.", created)
	a.sendSummary(ctx, "Viral & UP", created, len(topics))
	return nil
}

// publishTrends walks the candidates and publishes until the cap.
// Duplicates are skipped, per-item failures move on to the next
// candidate, and a trend enters the ledger only after its post stood.
func (a *App) publishTrends(ctx context.Context, list []trends.Trend, schedule string, maxPosts int) int {
	contexts := a.scrapeCandidates(ctx, list)

	created := 0
	for _, trend := range list {
		if created >= maxPosts {
			break
		}
		if a.Ledger.Contains(ledger.Key(trend.Title)) {
			log.Printf("Skipping already processed trend: %s", trend.Title)
			metrics.Global.IncrementDuplicatesSkipped()
			continue
		}

		log.Printf("Processing trend: %s (sources: %s, category: %s)",
			trend.Title, strings.Join(trend.Sources, ", "), trend.Category)

		var sourceText string
		if art := contexts[trend.Link]; art != nil {
			sourceText = art.Content
		}

		postID := a.publishOne(ctx, trend, sourceText)
		if postID == 0 {
			continue
		}
		created++

		if err := a.Ledger.Record(ledger.NewEntry(trend.Title, trend.Category, schedule, postID)); err != nil {
			// The post stood; losing the bookkeeping is the smaller
			// failure, but it must be visible.
			log.Printf("❌ Failed to record trend %q in ledger: %v", trend.Title, err)
			metrics.Global.IncrementPersistFailures()
		}

		if a.Cfg.PostDelay > 0 {
			time.Sleep(a.Cfg.PostDelay)
		}
	}
	return created
}

// scrapeCandidates fetches source body text for the stories that are
// not already in the ledger. The extractor enforces the per-run fetch
// cap, so handing it the whole candidate list is safe.
func (a *App) scrapeCandidates(ctx context.Context, list []trends.Trend) map[string]*scraper.ArticleContent {
	if a.Scrape == nil {
		return nil
	}
	var links []string
	for _, t := range list {
		if t.Link == "" || a.Ledger.Contains(ledger.Key(t.Title)) {
			continue
		}
		links = append(links, t.Link)
	}
	if len(links) == 0 {
		return nil
	}
	return a.Scrape.ExtractArticles(ctx, links)
}

// publishOne takes a trend through generation, imaging, and publishing.
// It returns the WordPress post ID, zero when the item was skipped.
func (a *App) publishOne(ctx context.Context, trend trends.Trend, sourceText string) int {
	grounded := trend.Category == "वायरल" || trend.Category == "उत्तर प्रदेश"

	article, err := a.Writer.WriteArticle(ctx, gemini.Request{
		Topic:    trend.Title,
		Category: trends.HindiName(trend.Category),
		Sources:  trend.Sources,
		Context:  sourceText,
		Grounded: grounded,
	})
	if err != nil {
		log.Printf("⚠️ Failed to generate content for %q: %v", trend.Title, err)
		metrics.Global.IncrementGenerationFailures()
		return 0
	}
	metrics.Global.IncrementArticlesGenerated()

	english := a.toEnglish(ctx, trend.Title)
	slug := wordpress.Slug(english, trend.Title)

	content := article.Content
	featuredMedia := 0
	if a.Images != nil {
		data, err := a.Images.Generate(ctx, article.ImagePrompt)
		if err != nil {
			// Publish anyway; the imageretry schedule picks it up later.
			log.Printf("⚠️ Image generation failed for %q: %v", trend.Title, err)
			metrics.Global.IncrementImageFailures()
		} else {
			metrics.Global.IncrementImagesGenerated()
			altText := a.altText(ctx, article.Headline)
			mediaID, err := a.WP.UploadImage(ctx, data, slug+"-featured.png", altText)
			if err != nil {
				log.Printf("⚠️ Failed to upload featured image: %v", err)
			} else {
				featuredMedia = mediaID
				content += imageAttribution
			}
		}
	}

	categories := article.Categories
	if len(categories) > 1 {
		categories = categories[:1]
	}
	if grounded {
		categories = []string{trend.Category}
	}
	if len(categories) == 0 {
		categories = []string{trends.HindiName(trend.Category)}
	}

	author := trends.AuthorFor(trend.Category)

	postID, err := a.WP.CreatePost(ctx, wordpress.Post{
		Title:         article.Headline,
		Content:       content,
		Status:        a.Cfg.PostStatus,
		Categories:    categories,
		Tags:          article.Tags,
		FeaturedMedia: featuredMedia,
		Slug:          slug,
		AuthorID:      author.ID,
	})
	if err != nil {
		log.Printf("❌ Failed to create post for %q: %v", trend.Title, err)
		metrics.Global.IncrementPublishFailures()
		return 0
	}
	metrics.Global.IncrementPostsPublished()
	log.Printf("✅ Created post %d by %s for trend: %s", postID, author.Name, trend.Title)
	return postID
}

// RunImageRetry attaches images to recent posts that published without
// one. It needs the ledger opened (corruption still aborts the run) but
// records nothing. Cron calls this every 6 hours.
func (a *App) RunImageRetry(ctx context.Context) error {
	log.Println("Starting image retry for existing posts...")
	if err := a.WP.CheckConnection(ctx); err != nil {
		return fmt.Errorf("WordPress connection failed: %w", err)
	}

	posts, err := a.WP.RecentPosts(ctx, a.maxPosts(defaultImageRetryPosts))
	if err != nil {
		return fmt.Errorf("failed to list recent posts: %w", err)
	}

	var missing []wordpress.PostSummary
	for _, p := range posts {
		if p.FeaturedMedia == 0 {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		log.Println("No posts found without featured images")
		return nil
	}
	log.Printf("Found %d posts without featured images", len(missing))

	fixed := 0
	for _, post := range missing {
		prompt := extractImagePrompt(post.Content)
		if prompt == "" {
			prompt = fallbackPrompt(post.Title)
		}
		log.Printf("Retrying image for post %d: %s", post.ID, post.Title)

		data, err := a.Images.Generate(ctx, prompt)
		if err != nil {
			log.Printf("⚠️ Failed to generate image for post %d: %v", post.ID, err)
			metrics.Global.IncrementImageFailures()
			continue
		}
		metrics.Global.IncrementImagesGenerated()

		english := a.toEnglish(ctx, post.Title)
		slug := wordpress.Slug(english, post.Title)
		mediaID, err := a.WP.UploadImage(ctx, data, slug+"-featured.png", a.altText(ctx, post.Title))
		if err != nil {
			log.Printf("⚠️ Failed to upload image for post %d: %v", post.ID, err)
			continue
		}

		if err := a.WP.SetFeaturedImage(ctx, post.ID, mediaID); err != nil {
			log.Printf("⚠️ Failed to set featured image on post %d: %v", post.ID, err)
			continue
		}
		fixed++

		if a.Cfg.PostDelay > 0 {
			time.Sleep(a.Cfg.PostDelay)
		}
	}

	log.Printf("✅ Image retry completed. Attached %d of %d missing images.", fixed, len(missing))
	a.sendSummary(ctx, "Image retry", fixed, len(missing))
	return nil
}

// RunCompact rewrites the ledger atomically, deduplicating appended
// records. Unlike a publishing run, a persist failure here is the whole
// point of the command, so it is fatal.
func (a *App) RunCompact(ctx context.Context) error {
	_ = ctx
	size := a.Ledger.Size()
	if err := a.Ledger.Persist(); err != nil {
		return fmt.Errorf("ledger compaction failed: %w", err)
	}
	log.Printf("🗑️ Ledger compacted: %d entries", size)
	return nil
}

// toEnglish translates best effort; empty string means the caller's
// fallbacks take over.
func (a *App) toEnglish(ctx context.Context, text string) string {
	if a.Translate == nil {
		return ""
	}
	english, err := a.Translate.ToEnglish(ctx, text)
	if err != nil {
		log.Printf("⚠️ Translation failed for %q: %v", text, err)
		return ""
	}
	return english
}

// altText prefers the English translation, keeping the Hindi headline
// when translation is unavailable.
func (a *App) altText(ctx context.Context, headline string) string {
	if english := a.toEnglish(ctx, headline); english != "" {
		return english
	}
	return headline
}

var (
	imagePromptLine = regexp.MustCompile(`(?i)IMAGE_PROMPT:\s*(.+)`)
	htmlTag         = regexp.MustCompile(`<[^>]*>`)
)

// extractImagePrompt digs the generator's IMAGE_PROMPT line out of
// stored post content. Content cleaning usually strips the label before
// publishing, so most posts end up on the title-based fallback.
func extractImagePrompt(content string) string {
	for _, line := range strings.Split(content, "\n") {
		m := imagePromptLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if prompt := strings.TrimSpace(htmlTag.ReplaceAllString(m[1], "")); prompt != "" {
			return prompt
		}
	}
	return ""
}

func fallbackPrompt(title string) string {
	runes := []rune(title)
	if len(runes) > 100 {
		title = string(runes[:100])
	}
	return "Professional news photography style image representing: " + title
}

// sendSummary posts a short run report to the ops chat when configured.
// Failures are logged only; the run already succeeded.
func (a *App) sendSummary(ctx context.Context, run string, created, found int) {
	if !a.Notify.Enabled() {
		return
	}
	stats := metrics.Global.GetStats()
	msg := fmt.Sprintf(
		"📰 <b>%s run finished</b>\nPosts published: %d\nCandidates: %d\nDuplicates skipped: %v\nFailures: generation %v, image %v, publish %v",
		run, created, found,
		stats["duplicates_skipped"], stats["generation_failures"],
		stats["image_failures"], stats["publish_failures"])
	if err := a.Notify.Send(ctx, msg); err != nil {
		log.Printf("⚠️ Failed to send run summary: %v", err)
	}
}
