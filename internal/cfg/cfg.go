package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

// Commands understood by the binary. Cron picks the cadence, the
// command picks the pipeline.
const (
	CmdMultiSource = "multisource"
	CmdViralUP     = "viralup"
	CmdImageRetry  = "imageretry"
	CmdCompact     = "compact"
)

type rawCfg struct {
	// WordPress
	SiteURL     string `long:"site-url" env:"WORDPRESS_URL" description:"WordPress site URL, e.g. https://example.com"`
	Username    string `long:"wp-user" env:"WORDPRESS_USERNAME" description:"WordPress username"`
	AppPassword string `long:"wp-password" env:"WORDPRESS_APP_PASSWORD" description:"WordPress application password"`
	PostStatus  string `long:"post-status" env:"POST_STATUS" default:"publish" description:"Status for created posts (publish or draft)"`

	// AI services
	GeminiAPIKey      string `long:"gemini-key" env:"GEMINI_API_KEY" description:"Gemini API key for article generation"`
	GeminiModel       string `long:"gemini-model" env:"GEMINI_MODEL" default:"gemini-2.5-flash" description:"Gemini model for article generation"`
	ImagenAPIKey      string `long:"imagen-key" env:"IMAGEN_API_KEY" description:"Imagen API key (falls back to the Gemini key)"`
	OpenAIAPIKey      string `long:"openai-key" env:"OPENAI_API_KEY" description:"Optional OpenAI key, translation fallback only"`
	MaxGeminiRequests int    `long:"max-gemini-requests" env:"MAX_GEMINI_REQUESTS" default:"40" description:"Gemini request budget per run (0 = unlimited)"`
	MaxImagenRequests int    `long:"max-imagen-requests" env:"MAX_IMAGEN_REQUESTS" default:"12" description:"Imagen request budget per run (0 = unlimited)"`

	// Ledger
	LedgerPath  string `long:"ledger-path" env:"LEDGER_PATH" default:"data/processed_trends.jsonl" description:"Path of the processed-trends ledger file"`
	DatabaseURL string `long:"database-url" env:"DATABASE_URL" description:"Postgres URL; when set the ledger lives in Postgres instead of a file"`

	// Feeds and pipeline
	SourcesPath       string        `long:"sources" env:"SOURCES_PATH" default:"configs/sources.yaml" description:"YAML registry of RSS sources"`
	MaxPosts          int           `long:"max-posts" env:"MAX_POSTS" description:"Override the per-command post cap (0 = command default)"`
	FreshWindow       time.Duration `long:"fresh-window" env:"FRESH_WINDOW" default:"48h" description:"Ignore feed items older than this"`
	PostDelay         time.Duration `long:"post-delay" env:"POST_DELAY" default:"3s" description:"Pause between consecutive posts"`
	SectionDelay      time.Duration `long:"section-delay" env:"SECTION_DELAY" default:"1s" description:"Pause between chained generation calls"`
	ScrapeMaxArticles int           `long:"scrape-max-articles" env:"SCRAPE_MAX_ARTICLES" default:"5" description:"Cap of source articles scraped per run"`

	// Notifications
	TelegramToken string `long:"telegram-token" env:"TELEGRAM_TOKEN" description:"Bot token for run-summary notifications (empty = off)"`
	TelegramChat  string `long:"telegram-chat" env:"TELEGRAM_CHAT_ID" description:"Chat ID for run-summary notifications"`

	// App
	RequestTimeout time.Duration `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"30s" description:"HTTP timeout for external calls"`
	UserAgent      string        `long:"user-agent" env:"USER_AGENT" default:"khabarpress/1.0" description:"User agent for feed and scrape requests"`
	MonitorAddr    string        `long:"monitor-addr" env:"MONITOR_ADDR" description:"Serve /health and /metrics here while a run is in flight (empty = off)"`
	Debug          bool          `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	Args struct {
		Command string `positional-arg-name:"command" description:"multisource | viralup | imageretry | compact"`
	} `positional-args:"yes"`
}

type Config struct {
	// WordPress
	SiteURL     string
	Username    string
	AppPassword string
	PostStatus  string

	// AI services
	GeminiAPIKey      string
	GeminiModel       string
	ImagenAPIKey      string
	OpenAIAPIKey      string
	MaxGeminiRequests int
	MaxImagenRequests int

	// Ledger
	LedgerPath  string
	DatabaseURL string

	// Feeds and pipeline
	SourcesPath       string
	MaxPosts          int
	FreshWindow       time.Duration
	PostDelay         time.Duration
	SectionDelay      time.Duration
	ScrapeMaxArticles int

	// Notifications
	TelegramToken string
	TelegramChat  string

	// App
	RequestTimeout time.Duration
	UserAgent      string
	MonitorAddr    string
	Debug          bool

	Command string
	Version string
}

// Load parses flags and environment. A nil Config with a nil error
// means help was requested and printed.
func Load(args []string) (*Config, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)
	parser.Usage = "<command> [OPTIONS]"

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Config{
		SiteURL:           raw.SiteURL,
		Username:          raw.Username,
		AppPassword:       raw.AppPassword,
		PostStatus:        raw.PostStatus,
		GeminiAPIKey:      raw.GeminiAPIKey,
		GeminiModel:       raw.GeminiModel,
		ImagenAPIKey:      raw.ImagenAPIKey,
		OpenAIAPIKey:      raw.OpenAIAPIKey,
		MaxGeminiRequests: raw.MaxGeminiRequests,
		MaxImagenRequests: raw.MaxImagenRequests,
		LedgerPath:        raw.LedgerPath,
		DatabaseURL:       raw.DatabaseURL,
		SourcesPath:       raw.SourcesPath,
		MaxPosts:          raw.MaxPosts,
		FreshWindow:       raw.FreshWindow,
		PostDelay:         raw.PostDelay,
		SectionDelay:      raw.SectionDelay,
		ScrapeMaxArticles: raw.ScrapeMaxArticles,
		TelegramToken:     raw.TelegramToken,
		TelegramChat:      raw.TelegramChat,
		RequestTimeout:    raw.RequestTimeout,
		UserAgent:         raw.UserAgent,
		MonitorAddr:       raw.MonitorAddr,
		Debug:             raw.Debug,
		Command:           raw.Args.Command,
		Version:           GetVersion(),
	}

	return cfg, nil
}

// ImagenKey returns the key to use for image generation.
func (c *Config) ImagenKey() string {
	return cmp.Or(c.ImagenAPIKey, c.GeminiAPIKey)
}

// Validate checks that the selected command has what it needs. The
// compact command only touches the ledger, so it skips the credential
// checks entirely.
func (c *Config) Validate() error {
	switch c.Command {
	case CmdMultiSource, CmdViralUP:
		if err := c.validateWordPress(); err != nil {
			return err
		}
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	case CmdImageRetry:
		if err := c.validateWordPress(); err != nil {
			return err
		}
		if c.ImagenKey() == "" {
			return fmt.Errorf("IMAGEN_API_KEY or GEMINI_API_KEY is required")
		}
	case CmdCompact:
		if c.LedgerPath == "" && c.DatabaseURL == "" {
			return fmt.Errorf("LEDGER_PATH is required")
		}
	case "":
		return fmt.Errorf("command is required: multisource | viralup | imageretry | compact")
	default:
		return fmt.Errorf("unknown command %q", c.Command)
	}

	if c.PostStatus != "publish" && c.PostStatus != "draft" {
		return fmt.Errorf("POST_STATUS must be 'publish' or 'draft'")
	}

	return nil
}

func (c *Config) validateWordPress() error {
	if c.SiteURL == "" {
		return fmt.Errorf("WORDPRESS_URL is required")
	}
	if c.Username == "" {
		return fmt.Errorf("WORDPRESS_USERNAME is required")
	}
	if c.AppPassword == "" {
		return fmt.Errorf("WORDPRESS_APP_PASSWORD is required")
	}
	return nil
}
