package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/khabarpress/khabarpress/internal/ratelimit"
	"github.com/khabarpress/khabarpress/internal/retry"
)

const defaultModel = "gemini-2.5-flash"

// Client wraps the Gemini API for article generation.
type Client struct {
	client  *genai.Client
	model   string
	limiter *ratelimit.Limiter

	// pause between section calls, shortened in tests
	sectionDelay time.Duration
}

// Request describes one story to write about.
type Request struct {
	Topic    string
	Category string // Hindi display name, goes into the prompts
	Sources  []string
	Context  string // scraped source material, may be empty
	Grounded bool   // attach Google Search grounding (viral news)
}

// Article is a fully generated, cleaned post ready for publishing.
type Article struct {
	Headline    string
	Content     string // HTML paragraphs
	Categories  []string
	Tags        []string
	ImagePrompt string
}

type outline struct {
	headline string
	sections []string
	tags     string
}

// NewClient builds a Gemini client. The limiter may be nil, which
// disables budget enforcement; sectionDelay is the pause between
// chained calls, zero meaning none.
func NewClient(ctx context.Context, apiKey, model string, sectionDelay time.Duration, limiter *ratelimit.Limiter) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	if sectionDelay < 0 {
		sectionDelay = 0
	}
	return &Client{
		client:       client,
		model:        model,
		limiter:      limiter,
		sectionDelay: sectionDelay,
	}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// WriteArticle runs the chained generation for one trend: outline
// first, then one call per section, then a closing call that merges
// everything and appends a conclusion. Per-section failures fall back
// to the bare section title so one flaky call does not sink the
// article; outline or finalization failure does.
func (c *Client) WriteArticle(ctx context.Context, req Request) (*Article, error) {
	log.Printf("Starting chained content generation for: %s", req.Topic)

	out, err := c.generateOutline(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("outline generation failed: %w", err)
	}
	log.Printf("Generated outline with %d sections", len(out.sections))

	detailed := c.generateSections(ctx, req, out)

	final, err := c.finalize(ctx, req, out, detailed)
	if err != nil {
		return nil, fmt.Errorf("final content generation failed: %w", err)
	}
	log.Printf("Final content generated with %d words", len(strings.Fields(final)))

	parsed := parseArticle(final)
	if parsed.Headline == "" {
		parsed.Headline = out.headline
	}
	if parsed.Headline == "" {
		parsed.Headline = req.Topic
	}
	if parsed.ImagePrompt == "" {
		parsed.ImagePrompt = "News image related to: " + req.Topic
	}
	if len(parsed.Tags) == 0 && out.tags != "" {
		parsed.Tags = splitList(out.tags)
	}

	title := cleanTitle(parsed.Headline)
	return &Article{
		Headline:    title,
		Content:     cleanContent(parsed.Content, title),
		Categories:  parsed.Categories,
		Tags:        parsed.Tags,
		ImagePrompt: strings.TrimSpace(parsed.ImagePrompt),
	}, nil
}

// generate runs one model call with bounded retries and returns the
// text of the first candidate part.
func (c *Client) generate(ctx context.Context, grounded bool, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.UseGemini(); err != nil {
			return "", err
		}
	}

	model := c.client.GenerativeModel(c.model)
	if grounded {
		model.Tools = []*genai.Tool{
			{GoogleSearchRetrieval: &genai.GoogleSearchRetrieval{}},
		}
	}

	var text string
	err := retry.WithRetry(ctx, retry.Config{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true}, func() error {
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			return errors.New("no response from Gemini")
		}
		text = fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
		return nil
	})
	return text, err
}

func (c *Client) generateOutline(ctx context.Context, req Request) (*outline, error) {
	kind := "news"
	if req.Grounded {
		kind = "viral news"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Create a detailed Hindi %s article outline for this topic:
Topic: %s
Sources: %s
Category: %s
`, kind, req.Topic, strings.Join(req.Sources, ", "), req.Category)

	if req.Context != "" {
		fmt.Fprintf(&b, "\nSource material from the original coverage:\n%s\n", truncateRunes(req.Context, 1800))
	}

	b.WriteString(`
CRITICAL REQUIREMENTS:
- Write ONLY in simple Hindi that common people understand; basic English terms like "computer" or "mobile" are fine
- Do NOT include category labels, the headline inside the body, reporter bylines, or fictional names such as (काल्पनिक नाम)
- Generate 5-6 main sections, each 140-200 words when expanded, conclusion 80-100 words, total 800-900 words
- The headline MUST be specific to this topic, never a generic phrase like "Breaking News"

Format the response as:
HEADLINE: [specific, compelling Hindi headline]
SECTIONS:
1. [Section title - Story Introduction and Key Facts]
2. [Section title - Background and Context]
3. [Section title - Latest Developments]
4. [Section title - Impact and Analysis]
5. [Section title - Future Implications]
TAGS: [comma-separated Hindi tags]
`)

	text, err := c.generate(ctx, req.Grounded, b.String())
	if err != nil {
		return nil, err
	}
	return parseOutline(text), nil
}

// generateSections expands each outline section with its own call. The
// first section gets an introduction-flavored prompt. A failed call
// degrades to the bare section title.
func (c *Client) generateSections(ctx context.Context, req Request, out *outline) string {
	var detailed strings.Builder

	for i, section := range out.sections {
		log.Printf("Generating detailed content for section %d: %s", i+1, section)

		var role string
		if i == 0 {
			role = `Write the opening section of a Hindi news article. Start with a proper
introduction that sets the scene, for example "आज एक महत्वपूर्ण खबर..." or
"हाल ही में...", before moving into facts.`
		} else {
			role = `Expand this section into a detailed Hindi news article section that
connects logically to the overall topic.`
		}

		prompt := fmt.Sprintf(`%s

Topic: %s
Section: %s
Sources: %s

Requirements:
- 140-200 words of simple Hindi with proper spacing, correct Devanagari, no underscores
- Journalistic storytelling with facts, quotes and context in easy language
- No author names, bylines or fictional names such as (काल्पनिक नाम)
- Write only the expanded section content, no headers or formatting.`,
			role, req.Topic, section, strings.Join(req.Sources, ", "))

		text, err := c.generate(ctx, req.Grounded, prompt)
		if err != nil {
			log.Printf("⚠️ Section %d failed, using outline title: %v", i+1, err)
			text = section
		} else {
			log.Printf("Generated %d words for section %d", len(strings.Fields(text)), i+1)
		}

		detailed.WriteString("\n\n")
		detailed.WriteString(text)
		detailed.WriteString("\n\n")

		if c.sectionDelay > 0 && i < len(out.sections)-1 {
			time.Sleep(c.sectionDelay)
		}
	}

	return strings.TrimSpace(detailed.String())
}

func (c *Client) finalize(ctx context.Context, req Request, out *outline, detailed string) (string, error) {
	prompt := fmt.Sprintf(`Create a comprehensive conclusion and finalize this Hindi news article:

Topic: %s
Category: %s

Current content:
%s

Requirements:
- Add a concise 80-100 word conclusion in simple Hindi
- Include ALL the detailed content above in the final output, do not truncate it
- Total article between 800 and 900 words, smooth flow between sections
- Simple accessible Hindi, no underscores, no fictional names, no bylines

Format the final output as:
HEADLINE: [clear, compelling Hindi headline that explains what happened]
CONTENT: [complete article with proper paragraphs, all sections plus conclusion; do NOT repeat CATEGORIES, TAGS or IMAGE_PROMPT inside it]
CATEGORIES: [category name]
TAGS: [comma-separated tags]
IMAGE_PROMPT: [detailed English image prompt for this story, no text in the image]`,
		req.Topic, req.Category, detailed)

	return c.generate(ctx, req.Grounded, prompt)
}

// Label lines tolerate markdown decoration and case noise, the model
// is not reliable about either.
var (
	headlineLabel = regexp.MustCompile(`(?i)^\**\s*HEADLINE\s*\**\s*:\s*`)
	sectionsLabel = regexp.MustCompile(`(?i)^\**\s*SECTIONS\s*\**\s*:?\s*`)
	contentLabel  = regexp.MustCompile(`(?i)^\**\s*CONTENT\s*\**\s*:\s*`)
	categoryLabel = regexp.MustCompile(`(?i)^\**\s*CATEGORIES\s*\**\s*:\s*`)
	tagsLabel     = regexp.MustCompile(`(?i)^\**\s*TAGS\s*\**\s*:\s*`)
	imageLabel    = regexp.MustCompile(`(?i)^\**\s*IMAGE_?PROMPT\s*\**\s*:\s*`)

	numberedLine = regexp.MustCompile(`^\d+\s*[.)]\s*(.+)$`)

	// metadata that leaked into the body
	strayMetadata = regexp.MustCompile(`(?im)^\s*\**\s*(CATEGORIES|TAGS|IMAGE_?PROMPT)\s*\**\s*:.*$`)
)

var defaultSections = []string{
	"Background", "Current Developments", "Analysis", "Reaction", "Future",
}

// parseOutline reads the labeled outline response. When the model
// ignored the format entirely, a stock section list keeps the chain
// going.
func parseOutline(text string) *outline {
	out := &outline{}
	inSections := false

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		switch {
		case headlineLabel.MatchString(line):
			out.headline = strings.TrimSpace(headlineLabel.ReplaceAllString(line, ""))
			inSections = false
		case sectionsLabel.MatchString(line):
			inSections = true
		case tagsLabel.MatchString(line):
			out.tags = strings.TrimSpace(tagsLabel.ReplaceAllString(line, ""))
			inSections = false
		case imageLabel.MatchString(line):
			inSections = false
		case inSections:
			if m := numberedLine.FindStringSubmatch(line); m != nil {
				out.sections = append(out.sections, strings.TrimSpace(m[1]))
			}
		}
	}

	if len(out.sections) == 0 {
		out.sections = append(out.sections, defaultSections...)
		if out.tags == "" {
			out.tags = "समाचार, ताजा खबर"
		}
	}
	return out
}

type parsedArticle struct {
	Headline    string
	Content     string
	Categories  []string
	Tags        []string
	ImagePrompt string
}

// parseArticle reads the labeled final response. Content lines
// accumulate until the next label; a response without labels becomes
// the whole body.
func parseArticle(text string) *parsedArticle {
	p := &parsedArticle{}
	var content strings.Builder
	var imagePrompt strings.Builder
	current := ""

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		switch {
		case headlineLabel.MatchString(line):
			current = "headline"
			p.Headline = strings.TrimSpace(headlineLabel.ReplaceAllString(line, ""))
		case contentLabel.MatchString(line):
			current = "content"
			if rest := strings.TrimSpace(contentLabel.ReplaceAllString(line, "")); rest != "" {
				content.WriteString(strings.ReplaceAll(rest, "_", " "))
				content.WriteString("\n\n")
			}
		case categoryLabel.MatchString(line):
			current = "categories"
			p.Categories = splitList(categoryLabel.ReplaceAllString(line, ""))
		case tagsLabel.MatchString(line):
			current = "tags"
			p.Tags = splitList(tagsLabel.ReplaceAllString(line, ""))
		case imageLabel.MatchString(line):
			current = "image"
			imagePrompt.WriteString(strings.TrimSpace(imageLabel.ReplaceAllString(line, "")))
		case current == "content":
			content.WriteString(strings.ReplaceAll(line, "_", " "))
			content.WriteString("\n\n")
		case current == "image":
			imagePrompt.WriteString(" ")
			imagePrompt.WriteString(line)
		}
	}

	p.Content = strings.TrimSpace(content.String())
	p.ImagePrompt = strings.TrimSpace(imagePrompt.String())

	if p.Content == "" {
		// no structured content, use everything minus metadata lines
		body := strayMetadata.ReplaceAllString(text, "")
		body = headlineLabel.ReplaceAllString(body, "")
		p.Content = strings.TrimSpace(strings.ReplaceAll(body, "_", " "))
	}
	return p
}

func splitList(s string) []string {
	var items []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

// foreignWords are transliteration artifacts that keep showing up in
// otherwise-Hindi output.
var foreignWords = []string{
	"perkembangan", "development", "implementation", "utilization",
	"optimization", "standardization", "modernization", "digitalization",
	"globalization", "industrialization", "urbanization", "commercialization",
}

var (
	categoryLine = regexp.MustCompile(`(?im)^\s*\**\s*(Category|श्रेणी)\s*\**\s*:?[^\n]*$`)
	tagLine      = regexp.MustCompile(`(?im)^\s*\**\s*(TAGS|Tags|टैग)\s*\**\s*:?[^\n]*$`)
	fakeName     = regexp.MustCompile(`[^()\n]*\(काल्पनिक(?: नाम)?\)[^()\n]*`)
	multiBlank   = regexp.MustCompile(`\n\s*\n\s*\n`)
)

// cleanTitle strips markdown noise and foreign-word artifacts from a
// generated headline.
func cleanTitle(title string) string {
	title = strings.ReplaceAll(title, "**", "")
	title = strings.ReplaceAll(title, "*", "")
	title = strings.ReplaceAll(title, "#", "")
	title = strings.ReplaceAll(title, "_", " ")

	title = removeForeignWords(title)

	return strings.TrimSpace(strings.Join(strings.Fields(title), " "))
}

// cleanContent turns a generated body into WordPress-ready HTML
// paragraphs: metadata lines, fictional-name disclaimers, markdown
// noise and a leading title echo all go.
func cleanContent(content, title string) string {
	content = categoryLine.ReplaceAllString(content, "")
	content = tagLine.ReplaceAllString(content, "")
	content = fakeName.ReplaceAllString(content, "")

	if title != "" {
		trimmed := strings.TrimSpace(content)
		if rest, ok := strings.CutPrefix(trimmed, "VIDEO: "+title); ok {
			content = rest
		} else if rest, ok := strings.CutPrefix(trimmed, title); ok {
			content = rest
		}
	}

	content = strings.ReplaceAll(content, "#", "")
	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "*", "")
	content = strings.ReplaceAll(content, "_", " ")
	content = removeForeignWords(content)

	var formatted strings.Builder
	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" || utf8.RuneCountInString(para) <= 10 {
			continue
		}
		para = strings.Join(strings.Fields(para), " ")
		formatted.WriteString("<p>")
		formatted.WriteString(para)
		formatted.WriteString("</p>\n\n")
	}

	result := strings.TrimSpace(formatted.String())
	if result == "" {
		result = "<p>" + strings.TrimSpace(strings.Join(strings.Fields(content), " ")) + "</p>"
	}
	return multiBlank.ReplaceAllString(result, "\n\n")
}

func removeForeignWords(s string) string {
	for _, word := range foreignWords {
		s = strings.ReplaceAll(s, word, "")
		s = strings.ReplaceAll(s, strings.Title(word), "")
	}
	return s
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
