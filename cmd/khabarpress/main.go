package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/khabarpress/khabarpress/internal/app"
	"github.com/khabarpress/khabarpress/internal/cfg"
	"github.com/khabarpress/khabarpress/internal/feeds"
	"github.com/khabarpress/khabarpress/internal/gemini"
	"github.com/khabarpress/khabarpress/internal/imagen"
	"github.com/khabarpress/khabarpress/internal/ledger"
	"github.com/khabarpress/khabarpress/internal/logger"
	"github.com/khabarpress/khabarpress/internal/metrics"
	"github.com/khabarpress/khabarpress/internal/ratelimit"
	"github.com/khabarpress/khabarpress/internal/scraper"
	"github.com/khabarpress/khabarpress/internal/telegram"
	"github.com/khabarpress/khabarpress/internal/translate"
	"github.com/khabarpress/khabarpress/internal/wordpress"
)

func main() {
	config, err := cfg.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if config == nil {
		// help was requested and printed
		return
	}

	logger.Init(config.Debug)

	if err := config.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	log.Printf("khabarpress %s starting command %q", config.Version, config.Command)

	if config.MonitorAddr != "" {
		go startMonitoringServer(config.MonitorAddr)
	}

	start := time.Now()
	if err := run(config); err != nil {
		metrics.Global.SetError(err.Error())
		log.Fatalf("❌ %v", err)
	}
	metrics.Global.RecordRunDuration(time.Since(start))
	metrics.Global.SetLastRun()
	log.Printf("Run finished in %s", time.Since(start).Round(time.Millisecond))
}

func run(config *cfg.Config) error {
	ctx := context.Background()

	led, err := openLedger(config)
	if err != nil {
		return err
	}
	defer func() {
		if err := led.Close(); err != nil {
			log.Printf("Warning: failed to close ledger: %v", err)
		}
	}()

	// compact touches nothing but the ledger
	if config.Command == cfg.CmdCompact {
		a := &app.App{Cfg: config, Ledger: led}
		return a.RunCompact(ctx)
	}

	registry, err := feeds.LoadRegistry(config.SourcesPath)
	if err != nil {
		return fmt.Errorf("failed to load source registry: %w", err)
	}

	limiter := ratelimit.New(config.MaxGeminiRequests, config.MaxImagenRequests, 0)

	a := &app.App{
		Cfg:       config,
		Ledger:    led,
		Registry:  registry,
		Fetcher:   feeds.NewFetcher(config.UserAgent, config.RequestTimeout),
		Images:    imagen.NewClient(config.ImagenKey(), 60*time.Second, limiter),
		WP:        wordpress.NewClient(config.SiteURL, config.Username, config.AppPassword, config.RequestTimeout),
		Translate: translate.New(config.OpenAIAPIKey, config.RequestTimeout),
		Scrape:    scraper.New(config.UserAgent, config.RequestTimeout, config.ScrapeMaxArticles),
		Notify:    telegram.New(config.TelegramToken, config.TelegramChat),
	}

	switch config.Command {
	case cfg.CmdMultiSource, cfg.CmdViralUP:
		writer, err := gemini.NewClient(ctx, config.GeminiAPIKey, config.GeminiModel, config.SectionDelay, limiter)
		if err != nil {
			return err
		}
		defer writer.Close()
		a.Writer = writer

		if config.Command == cfg.CmdMultiSource {
			return a.RunMultiSource(ctx)
		}
		return a.RunViralUP(ctx)
	case cfg.CmdImageRetry:
		return a.RunImageRetry(ctx)
	default:
		return fmt.Errorf("unknown command %q", config.Command)
	}
}

// openLedger picks the backend: Postgres when DATABASE_URL is set, the
// JSONL file otherwise. A corrupt file comes back as ledger.CorruptError
// and the run dies without touching it.
func openLedger(config *cfg.Config) (ledger.Ledger, error) {
	if config.DatabaseURL != "" {
		return ledger.OpenPostgres(config.DatabaseURL)
	}
	return ledger.Open(config.LedgerPath)
}

func startMonitoringServer(addr string) {
	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/metrics", metricsHandler)

	log.Printf("Starting monitoring server on %s", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Printf("Monitoring server error: %v", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	if !stats["is_healthy"].(bool) {
		status = "error"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response := map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func metricsHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
