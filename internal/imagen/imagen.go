// Package imagen generates featured images through the Imagen predict
// endpoint. The generative-ai-go client does not cover the :predict
// verb, so this is a plain HTTP client like the WordPress one.
package imagen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/khabarpress/khabarpress/internal/ratelimit"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Posts want no lettering baked into the artwork; WordPress renders the
// headline itself.
const noTextPrefix = "**Image should not contain any text**, "

// Models in preference order. The preview model produces better news
// imagery but fails more often, so the stable model backs it up.
var defaultModels = []string{
	"imagen-4.0-generate-preview-06-06",
	"imagen-3.0-generate-002",
}

// Client calls the Imagen predict endpoint.
type Client struct {
	apiKey  string
	baseURL string
	models  []string
	client  *http.Client
	limiter *ratelimit.Limiter
}

// NewClient builds an Imagen client. The limiter may be nil, which
// disables budget enforcement.
func NewClient(apiKey string, timeout time.Duration, limiter *ratelimit.Limiter) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		models:  defaultModels,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParams     `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParams struct {
	SampleCount int    `json:"sampleCount"`
	AspectRatio string `json:"aspectRatio"`
}

type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}

// Generate produces one 16:9 PNG for the prompt, trying each model in
// order until one delivers.
func (c *Client) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.UseImagen(); err != nil {
			return nil, err
		}
	}

	log.Printf("Generating image with prompt: %s", prompt)

	var lastErr error
	for _, model := range c.models {
		data, err := c.predict(ctx, model, noTextPrefix+prompt)
		if err == nil {
			log.Printf("✅ Generated image with %s (%d bytes)", model, len(data))
			return data, nil
		}
		lastErr = err
		log.Printf("⚠️ Image generation with %s failed: %v", model, err)
	}

	return nil, fmt.Errorf("all image models failed: %w", lastErr)
}

func (c *Client) predict(ctx context.Context, model, prompt string) ([]byte, error) {
	body, err := json.Marshal(predictRequest{
		Instances:  []predictInstance{{Prompt: prompt}},
		Parameters: predictParams{SampleCount: 1, AspectRatio: "16:9"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal predict request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:predict", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP error: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("Warning: failed to close response body: %v", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("imagen API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	var parsed predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}

	if len(parsed.Predictions) == 0 || parsed.Predictions[0].BytesBase64Encoded == "" {
		return nil, fmt.Errorf("no image in response")
	}

	data, err := base64.StdEncoding.DecodeString(parsed.Predictions[0].BytesBase64Encoded)
	if err != nil {
		return nil, fmt.Errorf("error decoding image data: %w", err)
	}

	return data, nil
}
