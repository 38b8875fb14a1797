package feeds

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"
)

// SourceGroup is one named outlet with its feed URLs.
type SourceGroup struct {
	Name string   `yaml:"name"`
	URLs []string `yaml:"urls"`
}

// Registry is the YAML source registry:
//
//	sources:
//	  - name: bhaskar
//	    urls:
//	      - https://www.bhaskar.com/rss-v1--category-1061.xml
//	viral:
//	  - https://...
//	uttarpradesh:
//	  - https://...
type Registry struct {
	Sources      []SourceGroup `yaml:"sources"`
	Viral        []string      `yaml:"viral"`
	UttarPradesh []string      `yaml:"uttarpradesh"`
}

// LoadRegistry reads the source registry from a YAML file.
func LoadRegistry(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var reg Registry
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&reg); err != nil {
		return nil, fmt.Errorf("failed to parse source registry: %w", err)
	}

	if len(reg.Sources) == 0 && len(reg.Viral) == 0 && len(reg.UttarPradesh) == 0 {
		return nil, fmt.Errorf("source registry %s has no feeds", path)
	}

	return &reg, nil
}

// AllGroups returns every group in the registry, with the viral and
// Uttar Pradesh lists folded in as groups of their own. The multi-source
// matcher counts group names, so these two count as sources too.
func (r *Registry) AllGroups() []SourceGroup {
	groups := make([]SourceGroup, 0, len(r.Sources)+2)
	groups = append(groups, r.Sources...)
	if len(r.Viral) > 0 {
		groups = append(groups, SourceGroup{Name: "viral", URLs: r.Viral})
	}
	if len(r.UttarPradesh) > 0 {
		groups = append(groups, SourceGroup{Name: "uttarpradesh", URLs: r.UttarPradesh})
	}
	return groups
}

// Item is one feed entry plus where it came from.
type Item struct {
	Title       string
	Link        string
	Description string
	Published   time.Time
	Source      string
	FeedURL     string
}

// Fetcher downloads and parses feeds.
type Fetcher struct {
	parser *gofeed.Parser
}

func NewFetcher(userAgent string, timeout time.Duration) *Fetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: timeout}

	return &Fetcher{parser: parser}
}

// FetchGroups downloads every feed of every group. Broken feeds are
// logged and skipped so one dead outlet cannot starve the pipeline.
func (f *Fetcher) FetchGroups(ctx context.Context, groups []SourceGroup) []Item {
	var all []Item
	attempted, ok := 0, 0

	for _, group := range groups {
		for _, url := range group.URLs {
			attempted++

			feed, err := f.parser.ParseURLWithContext(url, ctx)
			if err != nil {
				log.Printf("Error parsing RSS %s: %v", url, err)
				continue
			}

			items := mapItems(feed.Items, group.Name, url)
			all = append(all, items...)
			ok++
			log.Printf("Loaded %d items from %s", len(items), url)
		}
	}

	log.Printf("Processed RSS feeds: %d/%d ok", ok, attempted)
	return all
}

// FetchList downloads a flat URL list under one label. The viral and
// Uttar Pradesh pools are flat lists, not named outlets.
func (f *Fetcher) FetchList(ctx context.Context, label string, urls []string) []Item {
	return f.FetchGroups(ctx, []SourceGroup{{Name: label, URLs: urls}})
}

func mapItems(raw []*gofeed.Item, source, feedURL string) []Item {
	items := make([]Item, 0, len(raw))

	for _, it := range raw {
		if it == nil || strings.TrimSpace(it.Title) == "" {
			continue
		}

		items = append(items, Item{
			Title:       strings.TrimSpace(it.Title),
			Link:        it.Link,
			Description: it.Description,
			Published:   publishedTime(it),
			Source:      source,
			FeedURL:     feedURL,
		})
	}

	return items
}

func publishedTime(it *gofeed.Item) time.Time {
	if it.PublishedParsed != nil {
		return *it.PublishedParsed
	}
	if it.UpdatedParsed != nil {
		return *it.UpdatedParsed
	}
	return time.Time{}
}
