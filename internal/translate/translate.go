package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/khabarpress/khabarpress/internal/cache"
)

const googleEndpoint = "https://translate.googleapis.com/translate_a/single"

// Translator turns Hindi text into English, used for post slugs and
// image alt text. Google's public endpoint is tried first because it is
// free; OpenAI is the fallback when a key is configured. Results are
// memoized so a slug and an alt text built from the same title cost one
// call.
type Translator struct {
	client    *http.Client
	endpoint  string
	openaiKey string
	memo      *cache.Cache
}

// New builds a Translator. openaiKey may be empty, which disables the
// OpenAI fallback.
func New(openaiKey string, timeout time.Duration) *Translator {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Translator{
		client:    &http.Client{Timeout: timeout},
		endpoint:  googleEndpoint,
		openaiKey: openaiKey,
		memo:      cache.New(),
	}
}

// ToEnglish translates Hindi text to English. Translation is best
// effort: when every service fails the original text comes back
// unchanged, and the caller's fallbacks (ASCII slug parts, date slugs)
// take over.
func (t *Translator) ToEnglish(ctx context.Context, text string) (string, error) {
	if text == "" {
		return text, nil
	}

	cleaned := cleanForTranslation(text)
	if cleaned == "" {
		return text, nil
	}

	// Keep requests inside API limits, on a rune boundary.
	if runes := []rune(cleaned); len(runes) > 4000 {
		cleaned = string(runes[:4000])
	}

	key := cache.Key(cleaned, "en")
	if hit, ok := t.memo.Get(key); ok {
		return hit, nil
	}

	result, err := t.googleTranslate(ctx, cleaned)
	if err == nil && result != "" && result != cleaned {
		t.memo.Set(key, result, 24*time.Hour)
		return result, nil
	}
	log.Printf("⚠️ Google Translate not work for hi->en: %v", err)

	if t.openaiKey != "" {
		result, err := t.openaiTranslate(ctx, cleaned)
		if err == nil && result != "" && result != cleaned {
			t.memo.Set(key, result, 24*time.Hour)
			return result, nil
		}
		log.Printf("⚠️ OpenAI not work for hi->en: %v", err)
	}

	log.Printf("⚠️ All translate services not work for hi->en, use original")
	return text, nil
}

// googleTranslate uses the free public Google Translate endpoint.
func (t *Translator) googleTranslate(ctx context.Context, text string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", "hi")
	params.Set("tl", "en")
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP error: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("Warning: failed to close response body: %v", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google Translate API returned status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response: %w", err)
	}

	translation, err := parseGoogleResponse(body)
	if err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}

	return translation, nil
}

// parseGoogleResponse unpacks the nested-array response of the public
// endpoint: the first element is a list of [translatedSegment, ...]
// pairs that concatenate into the full translation.
func parseGoogleResponse(body []byte) (string, error) {
	var response []interface{}

	if err := json.Unmarshal(body, &response); err != nil {
		return "", err
	}

	if len(response) == 0 {
		return "", errors.New("empty response from Google Translate")
	}

	segments, ok := response[0].([]interface{})
	if !ok {
		return "", errors.New("unexpected response format")
	}

	var result strings.Builder
	for _, segment := range segments {
		if pair, ok := segment.([]interface{}); ok && len(pair) > 0 {
			if translated, ok := pair[0].(string); ok {
				result.WriteString(translated)
			}
		}
	}

	return result.String(), nil
}

// openaiTranslate is the paid fallback.
func (t *Translator) openaiTranslate(ctx context.Context, text string) (string, error) {
	client := openai.NewClient(t.openaiKey)

	prompt := fmt.Sprintf(`Translate the following Hindi news text to English.
Keep the meaning, tone and journalistic style of the original.
Translate only the text itself, without additional comments.

Text to translate:
%s`, text)

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT3Dot5Turbo,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxCompletionTokens: 2000,
	})

	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// cleanForTranslation collapses the text to a single line and drops
// fragments too short to mean anything.
func cleanForTranslation(text string) string {
	lines := strings.Split(text, "\n")
	var cleanLines []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" && len([]rune(line)) > 1 {
			cleanLines = append(cleanLines, line)
		}
	}

	return strings.Join(cleanLines, " ")
}
