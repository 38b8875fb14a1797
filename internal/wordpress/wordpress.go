// Package wordpress is a REST API v2 client for the publishing site.
// It covers the slice of the API the pipeline needs: taxonomy
// get-or-create, post creation, multipart media upload with alt text,
// and the recent-post listing the image retry run walks.
package wordpress

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

// Client talks to a WordPress site over REST v2 with basic auth.
type Client struct {
	apiURL     string
	authHeader string
	client     *http.Client
}

// NewClient builds a client for the site. siteURL is the site root
// ("https://example.com"); the wp-json prefix is added here.
func NewClient(siteURL, username, password string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return &Client{
		apiURL:     strings.TrimRight(siteURL, "/") + "/wp-json/wp/v2",
		authHeader: "Basic " + creds,
		client:     &http.Client{Timeout: timeout},
	}
}

// CheckConnection verifies the site is reachable and the credentials
// work. Runs before any pipeline; its failure is fatal to the run.
func (c *Client) CheckConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/posts?per_page=1", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.authHeader)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("WordPress connection test failed: %w", err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("WordPress connection test failed: status %d", resp.StatusCode)
	}
	return nil
}

// Post is everything CreatePost sends. Categories and Tags are names;
// they are resolved to term IDs on the way out.
type Post struct {
	Title         string
	Content       string
	Status        string
	Categories    []string
	Tags          []string
	FeaturedMedia int
	Slug          string
	AuthorID      int
}

// CreatePost publishes a post and returns its ID. Taxonomy terms that
// fail to resolve are skipped, not fatal; the post still goes out.
func (c *Client) CreatePost(ctx context.Context, p Post) (int, error) {
	var categoryIDs []int
	for _, name := range p.Categories {
		id, err := c.EnsureCategory(ctx, name)
		if err != nil {
			log.Printf("⚠️ Skipping category %q: %v", name, err)
			continue
		}
		categoryIDs = append(categoryIDs, id)
	}

	var tagIDs []int
	for _, name := range p.Tags {
		id, err := c.EnsureTag(ctx, name)
		if err != nil {
			log.Printf("⚠️ Skipping tag %q: %v", name, err)
			continue
		}
		tagIDs = append(tagIDs, id)
	}

	payload := map[string]any{
		"title":          p.Title,
		"content":        p.Content,
		"status":         p.Status,
		"format":         "standard",
		"categories":     categoryIDs,
		"tags":           tagIDs,
		"featured_media": p.FeaturedMedia,
	}
	if p.AuthorID > 0 {
		payload["author"] = p.AuthorID
	}
	if p.Slug != "" {
		payload["slug"] = p.Slug
	}

	var created struct {
		ID int `json:"id"`
	}
	status, err := c.postJSON(ctx, c.apiURL+"/posts", payload, &created)
	if err != nil {
		return 0, fmt.Errorf("error creating WordPress post: %w", err)
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return 0, fmt.Errorf("failed to create WordPress post: status %d", status)
	}

	log.Printf("✅ Created WordPress post ID %d (categories: %v, tags: %v)", created.ID, p.Categories, p.Tags)
	return created.ID, nil
}

// EnsureCategory returns the ID for a category name, creating it when
// missing. WordPress answers 400 for an existing term, so that status
// falls back to a search.
func (c *Client) EnsureCategory(ctx context.Context, name string) (int, error) {
	return c.ensureTerm(ctx, "categories", name)
}

// EnsureTag is EnsureCategory for tags.
func (c *Client) EnsureTag(ctx context.Context, name string) (int, error) {
	return c.ensureTerm(ctx, "tags", name)
}

func (c *Client) ensureTerm(ctx context.Context, taxonomy, name string) (int, error) {
	var created struct {
		ID int `json:"id"`
	}
	status, err := c.postJSON(ctx, c.apiURL+"/"+taxonomy, map[string]string{"name": name}, &created)
	if err != nil {
		return 0, fmt.Errorf("error creating %s %q: %w", taxonomy, name, err)
	}
	switch {
	case status == http.StatusCreated || status == http.StatusOK:
		return created.ID, nil
	case status == http.StatusBadRequest:
		// Term already exists.
		return c.findTerm(ctx, taxonomy, name)
	default:
		return 0, fmt.Errorf("failed to create %s %q: status %d", taxonomy, name, status)
	}
}

func (c *Client) findTerm(ctx context.Context, taxonomy, name string) (int, error) {
	u := fmt.Sprintf("%s/%s?search=%s", c.apiURL, taxonomy, url.QueryEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", c.authHeader)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("error searching %s %q: %w", taxonomy, name, err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("failed to search %s %q: status %d", taxonomy, name, resp.StatusCode)
	}

	var terms []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&terms); err != nil {
		return 0, fmt.Errorf("error parsing %s search: %w", taxonomy, err)
	}
	for _, term := range terms {
		if strings.EqualFold(term.Name, name) {
			return term.ID, nil
		}
	}
	return 0, fmt.Errorf("%s %q not found", taxonomy, name)
}

// UploadImage sends PNG bytes as a media item and returns the media ID.
// When altText is non-empty a follow-up request sets it; that update is
// best effort and only logged on failure.
func (c *Client) UploadImage(ctx context.Context, data []byte, filename, altText string) (int, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(header)
	if err != nil {
		return 0, err
	}
	if _, err := part.Write(data); err != nil {
		return 0, err
	}
	if err := writer.Close(); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/media", &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("error uploading image: %w", err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("failed to upload image: status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	var media struct {
		ID        int    `json:"id"`
		SourceURL string `json:"source_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&media); err != nil {
		return 0, fmt.Errorf("error parsing media response: %w", err)
	}
	log.Printf("✅ Uploaded image ID %d: %s", media.ID, media.SourceURL)

	if altText != "" {
		if err := c.updateAltText(ctx, media.ID, altText); err != nil {
			log.Printf("⚠️ Failed to set alt text for media %d: %v", media.ID, err)
		}
	}
	return media.ID, nil
}

func (c *Client) updateAltText(ctx context.Context, mediaID int, altText string) error {
	u := fmt.Sprintf("%s/media/%d", c.apiURL, mediaID)
	status, err := c.postJSON(ctx, u, map[string]string{"alt_text": altText}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("status %d", status)
	}
	return nil
}

// PostSummary is the slice of a post the image retry run needs.
type PostSummary struct {
	ID            int
	Title         string
	Content       string
	FeaturedMedia int
}

// RecentPosts lists the newest posts, rendered title and content
// included.
func (c *Client) RecentPosts(ctx context.Context, limit int) ([]PostSummary, error) {
	u := fmt.Sprintf("%s/posts?per_page=%d&orderby=date&order=desc", c.apiURL, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.authHeader)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list posts: status %d", resp.StatusCode)
	}

	var raw []struct {
		ID    int `json:"id"`
		Title struct {
			Rendered string `json:"rendered"`
		} `json:"title"`
		Content struct {
			Rendered string `json:"rendered"`
		} `json:"content"`
		FeaturedMedia int `json:"featured_media"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("error parsing posts: %w", err)
	}

	posts := make([]PostSummary, 0, len(raw))
	for _, p := range raw {
		posts = append(posts, PostSummary{
			ID:            p.ID,
			Title:         p.Title.Rendered,
			Content:       p.Content.Rendered,
			FeaturedMedia: p.FeaturedMedia,
		})
	}
	return posts, nil
}

// SetFeaturedImage attaches an uploaded media item to an existing post.
func (c *Client) SetFeaturedImage(ctx context.Context, postID, mediaID int) error {
	u := fmt.Sprintf("%s/posts/%d", c.apiURL, postID)
	status, err := c.postJSON(ctx, u, map[string]int{"featured_media": mediaID}, nil)
	if err != nil {
		return fmt.Errorf("error updating post %d: %w", postID, err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("failed to update post %d: status %d", postID, status)
	}
	log.Printf("✅ Set featured image %d on post %d", mediaID, postID)
	return nil
}

// postJSON does an authenticated POST and decodes the response into out
// when out is non-nil and the status is 2xx. The status code comes back
// so callers can branch on 400 and friends.
func (c *Client) postJSON(ctx context.Context, url string, payload, out any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("error make JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("error HTTP request: %w", err)
	}
	defer closeBody(resp.Body)

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("error parsing response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		log.Printf("Warning: failed to close response body: %v", err)
	}
}
