package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"jumiascan/internal/browser"
	"jumiascan/internal/config"
	"jumiascan/internal/imaging"
	"jumiascan/internal/input"
	"jumiascan/internal/models"
	"jumiascan/internal/ratelimit"
	"jumiascan/internal/report"
	"jumiascan/internal/scrape"
	"jumiascan/pkg/logger"
)

func main() {
	var (
		inputPath   = flag.String("input", "", "file with one SKU or product URL per line")
		categoryURL = flag.String("category", "", "category listing URL to expand into product targets")
		region      = flag.String("region", "", "marketplace region code (overrides SCRAPER_REGION)")
		workers     = flag.Int("workers", 0, "worker count (overrides SCRAPER_WORKERS)")
		timeoutSec  = flag.Int("timeout", 0, "per-page timeout in seconds (overrides SCRAPER_TIMEOUT)")
		visible     = flag.Bool("visible", false, "run the browser with a visible window")
		noBadge     = flag.Bool("no-badge-check", false, "skip the image badge analysis")
		outPrefix   = flag.String("out", "reports/audit", "output path prefix (writes <prefix>.csv, <prefix>.jsonl, <prefix>-failures.csv)")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *region != "" {
		cfg.Scraper.Region = *region
	}
	if *workers > 0 {
		cfg.Scraper.Workers = *workers
	}
	if *timeoutSec > 0 {
		cfg.Scraper.TimeoutSeconds = *timeoutSec
	}
	if *visible {
		cfg.Scraper.Headless = false
	}
	if *noBadge {
		cfg.Imaging.BadgeCheck = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	var lines []string
	if *inputPath != "" {
		lines, err = input.ReadLines(*inputPath)
		if err != nil {
			log.Error("failed to read input file", "error", err)
			os.Exit(1)
		}
	}
	lines = append(lines, flag.Args()...)

	normalizer := input.NewNormalizer(cfg.BaseURL())
	targets := normalizer.Normalize(lines)

	browserOpts := &browser.Options{
		Headless:       cfg.Scraper.Headless,
		Timeout:        time.Duration(cfg.Scraper.TimeoutSeconds) * time.Second,
		UserAgent:      cfg.Browser.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
	}

	if *categoryURL != "" {
		expanded, err := expandCategory(log, *categoryURL, browserOpts)
		if err != nil {
			log.Error("failed to expand category", "url", *categoryURL, "error", err)
			os.Exit(1)
		}
		targets = append(targets, expanded...)
	}

	if len(targets) == 0 {
		fmt.Fprintln(os.Stderr, "nothing to do: supply -input, -category, or SKUs/URLs as arguments")
		os.Exit(2)
	}

	analyzer, err := imaging.NewAnalyzer(imaging.Options{
		ReferenceImageURL: cfg.Imaging.ReferenceImageURL,
		FetchTimeout:      cfg.Imaging.FetchTimeout,
		CacheSize:         cfg.Imaging.CacheSize,
	}, log)
	if err != nil {
		log.Error("failed to initialize image analyzer", "error", err)
		os.Exit(1)
	}

	auditor := scrape.NewPageAuditor(scrape.PageAuditorOptions{
		BrowserOptions: browserOpts,
		Analyzer:       analyzer,
		Limiter:        ratelimit.New(cfg.Scraper.PolitenessMin, cfg.Scraper.PolitenessMax),
		BadgeCheck:     cfg.Imaging.BadgeCheck,
	}, log)

	orchestrator := scrape.NewOrchestrator(auditor, cfg.Scraper.Workers, scrape.NewMetrics(), log)
	orchestrator.OnProgress = func(p scrape.Progress) {
		fmt.Fprintf(os.Stderr, "progress: %d/%d (eta %s)\n", p.Completed, p.Total, p.ETA.Round(time.Second))
	}

	rep := orchestrator.Run(context.Background(), targets)

	if err := writeReport(rep, *outPrefix); err != nil {
		log.Error("failed to write report", "error", err)
		os.Exit(1)
	}

	fmt.Printf("done: %d succeeded, %d failed, %d skipped (%s)\n",
		len(rep.Results), len(rep.Failures), rep.Skipped, rep.Duration().Round(time.Second))
	if len(rep.Failures) > 0 {
		os.Exit(1)
	}
}

// expandCategory uses a short-lived session of its own; the per-target
// sessions belong to the workers.
func expandCategory(log *slog.Logger, categoryURL string, opts *browser.Options) ([]models.Target, error) {
	session, err := browser.Acquire(opts)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	return scrape.NewFetcher(log).ExpandCategory(session, categoryURL)
}

func writeReport(rep *models.Report, prefix string) error {
	csvWriter, err := report.NewCSVWriter(prefix + ".csv")
	if err != nil {
		return err
	}
	if err := csvWriter.Write(rep.Results); err != nil {
		csvWriter.Close()
		return err
	}
	if err := csvWriter.Close(); err != nil {
		return err
	}

	jsonlWriter, err := report.NewJSONLWriter(prefix + ".jsonl")
	if err != nil {
		return err
	}
	if err := jsonlWriter.Write(rep.Results); err != nil {
		jsonlWriter.Close()
		return err
	}
	if err := jsonlWriter.Close(); err != nil {
		return err
	}

	if len(rep.Failures) > 0 {
		return report.WriteFailures(prefix+"-failures.csv", rep.Failures)
	}
	return nil
}
