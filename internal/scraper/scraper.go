package scraper

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// ArticleContent is the readable text of one source article.
type ArticleContent struct {
	Title   string
	Content string
	URL     string
}

// Extractor fetches article pages and pulls out their body text. It is
// used to give the article generator real source context instead of a
// bare headline.
type Extractor struct {
	client      *http.Client
	userAgent   string
	maxArticles int
}

// New builds an Extractor. maxArticles caps how many pages one run may
// fetch; zero or negative falls back to 5.
func New(userAgent string, timeout time.Duration, maxArticles int) *Extractor {
	if maxArticles <= 0 {
		maxArticles = 5
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Extractor{
		client:      &http.Client{Timeout: timeout},
		userAgent:   userAgent,
		maxArticles: maxArticles,
	}
}

// ExtractArticle fetches one URL and returns its title and body text.
func (e *Extractor) ExtractArticle(ctx context.Context, url string) (*ArticleContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error building request: %w", err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	content := extractContentBySource(doc, url)
	title := extractTitle(doc)

	if content == "" {
		return nil, fmt.Errorf("can't get content")
	}

	return &ArticleContent{
		Title:   title,
		Content: content,
		URL:     url,
	}, nil
}

// ExtractArticles fetches up to maxArticles of the given URLs, pausing
// between requests so the news sites are not hammered. Failures are
// logged and skipped.
func (e *Extractor) ExtractArticles(ctx context.Context, urls []string) map[string]*ArticleContent {
	result := make(map[string]*ArticleContent)

	for i, url := range urls {
		if i >= e.maxArticles {
			break
		}
		if ctx.Err() != nil {
			break
		}

		log.Printf("Getting full content of article %d/%d: %s", i+1, len(urls), url)

		article, err := e.ExtractArticle(ctx, url)
		if err != nil {
			log.Printf("⚠️ Can't get content %s: %v", url, err)
			continue
		}

		if utf8.RuneCountInString(article.Content) > 100 {
			result[url] = article
			log.Printf("✅ Got content (%d chars)", utf8.RuneCountInString(article.Content))
		} else {
			log.Printf("⚠️ Content too short: %s", url)
		}

		time.Sleep(500 * time.Millisecond)
	}

	return result
}

// extractContentBySource picks the selector set for a known site.
func extractContentBySource(doc *goquery.Document, url string) string {
	var content string

	switch {
	case strings.Contains(url, "bhaskar.com"):
		content = extractBhaskarContent(doc)
	case strings.Contains(url, "ndtv"):
		content = extractNDTVContent(doc)
	case strings.Contains(url, "indiatv.in"):
		content = extractIndiaTVContent(doc)
	case strings.Contains(url, "news18.com"):
		content = extractNews18Content(doc)
	case strings.Contains(url, "abplive.com"):
		content = extractABPContent(doc)
	default:
		content = extractGenericContent(doc)
	}

	return cleanContent(content)
}

func extractBhaskarContent(doc *goquery.Document) string {
	return collectParagraphs(doc, []string{
		".article-content p",
		"article p",
		".db-article-body p",
		".content p",
	}, 1)
}

func extractNDTVContent(doc *goquery.Document) string {
	return collectParagraphs(doc, []string{
		".ins_storybody p",
		"#ins_storybody p",
		".story__content p",
		"article p",
		".content p",
	}, 1)
}

func extractIndiaTVContent(doc *goquery.Document) string {
	return collectParagraphs(doc, []string{
		".article-box p",
		".content p",
		"article p",
	}, 1)
}

func extractNews18Content(doc *goquery.Document) string {
	return collectParagraphs(doc, []string{
		".story-article-box p",
		".article-content p",
		".paragraph p",
		"article p",
	}, 1)
}

func extractABPContent(doc *goquery.Document) string {
	return collectParagraphs(doc, []string{
		".article-body p",
		".story-detail p",
		"article p",
		".content p",
	}, 1)
}

// extractGenericContent is the universal parser for any site.
func extractGenericContent(doc *goquery.Document) string {
	return collectParagraphs(doc, []string{
		"article p",
		".article p",
		".content p",
		".post-content p",
		".entry-content p",
		"main p",
		"#content p",
		".text p",
		"p",
	}, 3)
}

// collectParagraphs tries selectors in order and stops at the first one
// that yields at least minHits usable paragraphs.
func collectParagraphs(doc *goquery.Document, selectors []string, minHits int) string {
	var paragraphs []string

	for _, selector := range selectors {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if text != "" && utf8.RuneCountInString(text) > 10 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= minHits {
			break
		}
		paragraphs = paragraphs[:0]
	}

	return strings.Join(paragraphs, "\n\n")
}

// extractTitle gets the article title.
func extractTitle(doc *goquery.Document) string {
	selectors := []string{
		"h1",
		"title",
		".article-title",
		".headline",
		".entry-title",
	}

	for _, selector := range selectors {
		title := doc.Find(selector).First().Text()
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	return ""
}

// junkPhrases are boilerplate fragments the Hindi news sites append to
// article bodies. They are removed wholesale.
var junkPhrases = []string{
	"यह भी पढ़ें",
	"ये भी पढ़ें",
	"इसे भी पढ़ें",
	"और पढ़ें",
	"पूरी खबर पढ़ें",
	"Also Read",
	"Read Also",
	"ALSO READ",
	"अपने शहर की खबरें पढ़ने के लिए",
	"ऐप डाउनलोड करें",
	"हमारे WhatsApp चैनल से जुड़ें",
	"हमें फॉलो करें",
	"Follow us on",
	"Join our channel",
	"Subscribe to our newsletter",
	"विज्ञापन",
	"Advertisement",
	"Cookie",
	"Privacy Policy",
}

// junkIndicators mark whole lines as boilerplate.
var junkIndicators = []string{
	"cookie", "विज्ञापन", "advertisement", "भी पढ़ें", "read also",
	"also read", "डाउनलोड करें", "फॉलो करें", "follow us", "subscribe",
	"whatsapp चैनल", "शेयर करें",
}

// cleanContent normalizes scraped text into clean paragraphs.
func cleanContent(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "<br/>", " ")
	content = strings.ReplaceAll(content, "<p>", "\n\n")
	content = strings.ReplaceAll(content, "</p>", "")

	// Strip any remaining tags.
	inTag := false
	var result strings.Builder
	for _, char := range content {
		if char == '<' {
			inTag = true
		} else if char == '>' {
			inTag = false
		} else if !inTag {
			result.WriteRune(char)
		}
	}

	content = strings.TrimSpace(result.String())

	for _, phrase := range junkPhrases {
		content = strings.ReplaceAll(content, phrase, "")
	}

	// Reassemble lines into paragraphs. Hindi sentences end with the
	// danda, so it counts as a terminator alongside ./!/?.
	lines := strings.Split(content, "\n")
	var cleanLines []string
	var currentParagraph strings.Builder

	flush := func() {
		if currentParagraph.Len() == 0 {
			return
		}
		paragraph := strings.TrimSpace(currentParagraph.String())
		if utf8.RuneCountInString(paragraph) > 30 {
			cleanLines = append(cleanLines, paragraph)
		}
		currentParagraph.Reset()
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)

		if utf8.RuneCountInString(line) < 8 {
			flush()
			continue
		}

		lower := strings.ToLower(line)
		isJunk := false
		for _, indicator := range junkIndicators {
			if strings.Contains(lower, indicator) {
				isJunk = true
				break
			}
		}
		if isJunk {
			continue
		}

		if currentParagraph.Len() > 0 {
			currentParagraph.WriteString(" ")
		}
		currentParagraph.WriteString(line)

		if sentenceEnd(line) {
			flush()
		}
	}
	flush()

	resultText := strings.Join(cleanLines, "\n\n")

	for strings.Contains(resultText, "  ") {
		resultText = strings.ReplaceAll(resultText, "  ", " ")
	}
	for strings.Contains(resultText, "\n\n\n") {
		resultText = strings.ReplaceAll(resultText, "\n\n\n", "\n\n")
	}

	resultText = strings.TrimSpace(resultText)

	// Keep the generator context bounded, on whole paragraphs.
	if utf8.RuneCountInString(resultText) > 1800 {
		paragraphs := strings.Split(resultText, "\n\n")
		var selected []string
		total := 0

		for _, paragraph := range paragraphs {
			n := utf8.RuneCountInString(paragraph)
			if total+n < 1600 {
				selected = append(selected, paragraph)
				total += n + 2
			} else {
				break
			}
		}

		if len(selected) > 0 {
			resultText = strings.Join(selected, "\n\n")
		}
	}

	return resultText
}

func sentenceEnd(line string) bool {
	return strings.HasSuffix(line, "।") ||
		strings.HasSuffix(line, ".") ||
		strings.HasSuffix(line, "!") ||
		strings.HasSuffix(line, "?")
}
