package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/khabarpress/khabarpress/internal/cfg"
	"github.com/khabarpress/khabarpress/internal/feeds"
	"github.com/khabarpress/khabarpress/internal/gemini"
	"github.com/khabarpress/khabarpress/internal/ledger"
	"github.com/khabarpress/khabarpress/internal/scraper"
	"github.com/khabarpress/khabarpress/internal/trends"
	"github.com/khabarpress/khabarpress/internal/wordpress"
)

type fakeWriter struct {
	failTopics map[string]bool
	requests   []gemini.Request
}

func (f *fakeWriter) WriteArticle(_ context.Context, req gemini.Request) (*gemini.Article, error) {
	f.requests = append(f.requests, req)
	if f.failTopics[req.Topic] {
		return nil, errors.New("model overloaded")
	}
	return &gemini.Article{
		Headline:    req.Topic + " की पूरी कहानी",
		Content:     "<p>विस्तृत सामग्री</p>",
		Categories:  []string{"राष्ट्रीय समाचार"},
		Tags:        []string{"समाचार", "भारत"},
		ImagePrompt: "news scene for " + req.Topic,
	}, nil
}

type fakeImages struct {
	fail    bool
	prompts []string
}

func (f *fakeImages) Generate(_ context.Context, prompt string) ([]byte, error) {
	f.prompts = append(f.prompts, prompt)
	if f.fail {
		return nil, errors.New("quota exhausted")
	}
	return []byte("png-bytes"), nil
}

type fakePublisher struct {
	failCreate  bool
	failConnect bool
	posts       []wordpress.Post
	uploads     []string
	recent      []wordpress.PostSummary
	featured    map[int]int
}

func (f *fakePublisher) CheckConnection(context.Context) error {
	if f.failConnect {
		return errors.New("connection refused")
	}
	return nil
}

func (f *fakePublisher) CreatePost(_ context.Context, p wordpress.Post) (int, error) {
	if f.failCreate {
		return 0, errors.New("status 500")
	}
	f.posts = append(f.posts, p)
	return 100 + len(f.posts), nil
}

func (f *fakePublisher) UploadImage(_ context.Context, _ []byte, filename, _ string) (int, error) {
	f.uploads = append(f.uploads, filename)
	return 500 + len(f.uploads), nil
}

func (f *fakePublisher) RecentPosts(context.Context, int) ([]wordpress.PostSummary, error) {
	return f.recent, nil
}

func (f *fakePublisher) SetFeaturedImage(_ context.Context, postID, mediaID int) error {
	if f.featured == nil {
		f.featured = make(map[int]int)
	}
	f.featured[postID] = mediaID
	return nil
}

type fakeFetcher struct {
	multi []feeds.Item
	lists map[string][]feeds.Item
}

func (f *fakeFetcher) FetchGroups(_ context.Context, _ []feeds.SourceGroup) []feeds.Item {
	return f.multi
}

func (f *fakeFetcher) FetchList(_ context.Context, label string, _ []string) []feeds.Item {
	return f.lists[label]
}

type fakeScraper struct {
	byURL map[string]*scraper.ArticleContent
}

func (f *fakeScraper) ExtractArticles(_ context.Context, urls []string) map[string]*scraper.ArticleContent {
	out := make(map[string]*scraper.ArticleContent)
	for _, u := range urls {
		if a := f.byURL[u]; a != nil {
			out[u] = a
		}
	}
	return out
}

type fakeTranslator struct{}

func (fakeTranslator) ToEnglish(_ context.Context, _ string) (string, error) {
	return "delhi flood rescue", nil
}

// failingLedger accepts nothing; Record always errors.
type failingLedger struct {
	*ledger.MemoryLedger
}

func (f *failingLedger) Record(ledger.Entry) error {
	return errors.New("disk full")
}

func testApp(pub *fakePublisher) (*App, *fakeWriter, *fakeImages) {
	writer := &fakeWriter{}
	images := &fakeImages{}
	return &App{
		Cfg:       &cfg.Config{PostStatus: "publish", FreshWindow: 48 * time.Hour},
		Ledger:    ledger.NewMemory(),
		Registry:  &feeds.Registry{},
		Writer:    writer,
		Images:    images,
		WP:        pub,
		Translate: fakeTranslator{},
	}, writer, images
}

func newTrend(title, category string) trends.Trend {
	return trends.Trend{
		Title:     title,
		Category:  category,
		Sources:   []string{"bhaskar", "ndtv"},
		Link:      "https://example.com/" + category,
		Published: time.Now(),
	}
}

func TestPublishTrendsRecordsOnlyAfterSuccess(t *testing.T) {
	pub := &fakePublisher{}
	a, _, _ := testApp(pub)

	title := "दिल्ली में भारी बाढ़ से हजारों लोग प्रभावित"
	created := a.publishTrends(context.Background(), []trends.Trend{newTrend(title, "national")}, cfg.CmdMultiSource, 3)
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}

	if !a.Ledger.Contains(ledger.Key(title)) {
		t.Error("published trend missing from ledger")
	}
	if len(pub.posts) != 1 {
		t.Fatalf("got %d posts", len(pub.posts))
	}
	post := pub.posts[0]
	if post.Status != "publish" {
		t.Errorf("status = %q", post.Status)
	}
	if post.AuthorID != 1 {
		t.Errorf("author = %d, want 1 for national", post.AuthorID)
	}
	if post.Slug != "delhi-flood-rescue" {
		t.Errorf("slug = %q", post.Slug)
	}
	if post.FeaturedMedia == 0 {
		t.Error("featured media not attached")
	}
	if !strings.Contains(post.Content, "Image Source: AI") {
		t.Error("attribution missing from content with image")
	}
	if len(pub.uploads) != 1 || pub.uploads[0] != "delhi-flood-rescue-featured.png" {
		t.Errorf("uploads = %v", pub.uploads)
	}
}

func TestPublishTrendsFailedPublishNotRecorded(t *testing.T) {
	pub := &fakePublisher{failCreate: true}
	a, _, _ := testApp(pub)

	title := "चुनाव आयोग ने नई तारीखों का ऐलान किया"
	created := a.publishTrends(context.Background(), []trends.Trend{newTrend(title, "national")}, cfg.CmdMultiSource, 3)
	if created != 0 {
		t.Fatalf("created = %d, want 0", created)
	}
	if a.Ledger.Contains(ledger.Key(title)) {
		t.Error("failed publish must not be recorded")
	}
	if a.Ledger.Size() != 0 {
		t.Errorf("ledger size = %d", a.Ledger.Size())
	}
}

func TestPublishTrendsOneBadItemContinues(t *testing.T) {
	pub := &fakePublisher{}
	a, writer, _ := testApp(pub)

	bad := "जनरेशन में फेल होने वाली कहानी यहाँ"
	writer.failTopics = map[string]bool{bad: true}

	list := []trends.Trend{
		newTrend("पहली कहानी जो छप जाएगी आराम से", "sports"),
		newTrend(bad, "national"),
		newTrend("तीसरी कहानी भी छप जाएगी", "business"),
	}
	created := a.publishTrends(context.Background(), list, cfg.CmdMultiSource, 5)
	if created != 2 {
		t.Fatalf("created = %d, want 2", created)
	}
	if a.Ledger.Contains(ledger.Key(bad)) {
		t.Error("failed item recorded in ledger")
	}
	if !a.Ledger.Contains(ledger.Key(list[0].Title)) || !a.Ledger.Contains(ledger.Key(list[2].Title)) {
		t.Error("successful items missing from ledger")
	}
}

func TestPublishTrendsSkipsDuplicates(t *testing.T) {
	pub := &fakePublisher{}
	a, writer, _ := testApp(pub)

	title := "पहले से प्रकाशित की गई बड़ी खबर"
	if err := a.Ledger.Record(ledger.NewEntry(title, "national", cfg.CmdMultiSource, 7)); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	created := a.publishTrends(context.Background(), []trends.Trend{newTrend(title, "national")}, cfg.CmdMultiSource, 3)
	if created != 0 {
		t.Fatalf("created = %d, want 0", created)
	}
	if len(writer.requests) != 0 {
		t.Errorf("duplicate reached the generator: %d requests", len(writer.requests))
	}
	if len(pub.posts) != 0 {
		t.Errorf("duplicate was published")
	}
}

func TestPublishTrendsRespectsCap(t *testing.T) {
	pub := &fakePublisher{}
	a, _, _ := testApp(pub)

	list := []trends.Trend{
		newTrend("पहली बड़ी खबर आज के दिन की", "sports"),
		newTrend("दूसरी बड़ी खबर इसी दिन की", "sports"),
		newTrend("तीसरी बड़ी खबर भी आज की है", "sports"),
	}
	created := a.publishTrends(context.Background(), list, cfg.CmdMultiSource, 1)
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}
	if len(pub.posts) != 1 {
		t.Errorf("got %d posts, want 1", len(pub.posts))
	}
}

func TestPublishTrendsImageFailurePublishesWithoutImage(t *testing.T) {
	pub := &fakePublisher{}
	a, _, images := testApp(pub)
	images.fail = true

	title := "तस्वीर के बिना भी छपने वाली खबर"
	created := a.publishTrends(context.Background(), []trends.Trend{newTrend(title, "national")}, cfg.CmdMultiSource, 3)
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}
	post := pub.posts[0]
	if post.FeaturedMedia != 0 {
		t.Errorf("featured media = %d, want 0", post.FeaturedMedia)
	}
	if strings.Contains(post.Content, "Image Source") {
		t.Error("attribution added without an image")
	}
	if len(pub.uploads) != 0 {
		t.Errorf("uploads = %v", pub.uploads)
	}
	if !a.Ledger.Contains(ledger.Key(title)) {
		t.Error("post without image must still be recorded")
	}
}

func TestPublishTrendsRecordFailureStillCounts(t *testing.T) {
	pub := &fakePublisher{}
	a, _, _ := testApp(pub)
	a.Ledger = &failingLedger{ledger.NewMemory()}

	created := a.publishTrends(context.Background(), []trends.Trend{newTrend("खाता बही में नहीं लिखी जाने वाली खबर", "national")}, cfg.CmdMultiSource, 3)
	if created != 1 {
		t.Fatalf("created = %d, want 1: publish stood, bookkeeping is the loss", created)
	}
	if len(pub.posts) != 1 {
		t.Errorf("got %d posts", len(pub.posts))
	}
}

func TestRunMultiSourcePassesScrapedContext(t *testing.T) {
	title := "सरकार ने संसद में नया विधेयक पेश किया"
	link := "https://bhaskar.example/story1"
	items := []feeds.Item{
		{Title: title, Source: "bhaskar", Link: link, Published: time.Now()},
		{Title: title, Source: "ndtv", Published: time.Now()},
		{Title: title, Source: "indiatv", Published: time.Now()},
	}

	pub := &fakePublisher{}
	a, writer, _ := testApp(pub)
	a.Fetcher = &fakeFetcher{multi: items}
	a.Scrape = &fakeScraper{byURL: map[string]*scraper.ArticleContent{
		link: {Title: title, Content: "स्रोत का पूरा विवरण यहाँ है", URL: link},
	}}

	if err := a.RunMultiSource(context.Background()); err != nil {
		t.Fatalf("RunMultiSource: %v", err)
	}
	if len(writer.requests) != 1 {
		t.Fatalf("got %d generation requests", len(writer.requests))
	}
	if writer.requests[0].Context != "स्रोत का पूरा विवरण यहाँ है" {
		t.Errorf("request context = %q", writer.requests[0].Context)
	}
	if writer.requests[0].Grounded {
		t.Error("multi-source request should not be search-grounded")
	}
	if len(pub.posts) != 1 {
		t.Errorf("got %d posts", len(pub.posts))
	}
}

func TestRunMultiSourceConnectionFailureIsFatal(t *testing.T) {
	pub := &fakePublisher{failConnect: true}
	a, _, _ := testApp(pub)
	a.Fetcher = &fakeFetcher{}

	if err := a.RunMultiSource(context.Background()); err == nil {
		t.Fatal("expected error when WordPress is unreachable")
	}
}

func TestRunViralUP(t *testing.T) {
	pub := &fakePublisher{}
	a, writer, _ := testApp(pub)
	a.Fetcher = &fakeFetcher{lists: map[string][]feeds.Item{
		"viral": {
			{Title: "वायरल वीडियो ने मचाया इंटरनेट पर तहलका", Source: "viral", Published: time.Now()},
		},
		"uttarpradesh": {
			{Title: "लखनऊ में मेट्रो के नए रूट की घोषणा", Source: "uttarpradesh", Published: time.Now()},
		},
	}}

	if err := a.RunViralUP(context.Background()); err != nil {
		t.Fatalf("RunViralUP: %v", err)
	}
	if len(pub.posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(pub.posts))
	}

	// Viral topics go out first, with search grounding and the fixed
	// category and author.
	for _, req := range writer.requests {
		if !req.Grounded {
			t.Errorf("request for %q not search-grounded", req.Topic)
		}
	}
	viral := pub.posts[0]
	if len(viral.Categories) != 1 || viral.Categories[0] != "वायरल" {
		t.Errorf("viral categories = %v", viral.Categories)
	}
	if viral.AuthorID != 11 {
		t.Errorf("viral author = %d, want 11", viral.AuthorID)
	}
	up := pub.posts[1]
	if len(up.Categories) != 1 || up.Categories[0] != "उत्तर प्रदेश" {
		t.Errorf("UP categories = %v", up.Categories)
	}
	if up.AuthorID != 10 {
		t.Errorf("UP author = %d, want 10", up.AuthorID)
	}
}

func TestRunImageRetry(t *testing.T) {
	pub := &fakePublisher{recent: []wordpress.PostSummary{
		{ID: 1, Title: "तस्वीर वाली पुरानी खबर यहाँ", FeaturedMedia: 90, Content: "<p>x</p>"},
		{ID: 2, Title: "बिना तस्वीर वाली पहली खबर", FeaturedMedia: 0,
			Content: "<p>कुछ सामग्री</p>\n<p>IMAGE_PROMPT: crowd outside parliament building</p>"},
		{ID: 3, Title: "बिना तस्वीर वाली दूसरी खबर", FeaturedMedia: 0, Content: "<p>और सामग्री</p>"},
	}}
	a, _, images := testApp(pub)

	if err := a.RunImageRetry(context.Background()); err != nil {
		t.Fatalf("RunImageRetry: %v", err)
	}

	if len(images.prompts) != 2 {
		t.Fatalf("generated %d images, want 2", len(images.prompts))
	}
	if images.prompts[0] != "crowd outside parliament building" {
		t.Errorf("first prompt = %q, want the embedded IMAGE_PROMPT", images.prompts[0])
	}
	if want := "Professional news photography style image representing: बिना तस्वीर वाली दूसरी खबर"; images.prompts[1] != want {
		t.Errorf("second prompt = %q, want %q", images.prompts[1], want)
	}

	if _, ok := pub.featured[1]; ok {
		t.Error("post with an image was touched")
	}
	if pub.featured[2] == 0 || pub.featured[3] == 0 {
		t.Errorf("featured images not set: %v", pub.featured)
	}
	if a.Ledger.Size() != 0 {
		t.Errorf("image retry recorded %d ledger entries", a.Ledger.Size())
	}
}

func TestRunCompact(t *testing.T) {
	a, _, _ := testApp(&fakePublisher{})
	if err := a.Ledger.Record(ledger.NewEntry("संकलन से पहले की एक खबर", "national", cfg.CmdMultiSource, 1)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := a.RunCompact(context.Background()); err != nil {
		t.Fatalf("RunCompact: %v", err)
	}
}

func TestExtractImagePrompt(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "wrapped in paragraph tags",
			content: "<p>सामग्री</p>\n<p>IMAGE_PROMPT: flood rescue boats</p>",
			want:    "flood rescue boats",
		},
		{
			name:    "case insensitive label",
			content: "image_prompt: parliament at dusk",
			want:    "parliament at dusk",
		},
		{
			name:    "no label",
			content: "<p>सिर्फ सामग्री, कोई लेबल नहीं</p>",
			want:    "",
		},
		{
			name:    "label with only markup after it",
			content: "IMAGE_PROMPT: <br/>",
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractImagePrompt(tt.content); got != tt.want {
				t.Errorf("extractImagePrompt(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}
