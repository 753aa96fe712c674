package scrape

import (
	"context"
	"fmt"
	"log/slog"

	"jumiascan/internal/browser"
	"jumiascan/internal/extract"
	"jumiascan/internal/imaging"
	"jumiascan/internal/models"
	"jumiascan/internal/ratelimit"
)

// Processor turns one Target into a ProductRecord or a classified error.
// The orchestrator only depends on this interface, which keeps it testable
// without a browser.
type Processor interface {
	Process(ctx context.Context, target models.Target) (*models.ProductRecord, error)
}

// PageAuditor is the real Processor: per target it acquires a fresh browser
// session, fetches and snapshots the page, runs the extractors, and adds
// the image signals. The session is closed on every exit path.
type PageAuditor struct {
	browserOpts *browser.Options
	fetcher     *Fetcher
	extractor   *extract.Extractor
	analyzer    *imaging.Analyzer
	limiter     ratelimit.Limiter
	badgeCheck  bool
	logger      *slog.Logger
}

type PageAuditorOptions struct {
	BrowserOptions *browser.Options
	Analyzer       *imaging.Analyzer
	Limiter        ratelimit.Limiter
	BadgeCheck     bool
}

func NewPageAuditor(opts PageAuditorOptions, logger *slog.Logger) *PageAuditor {
	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.NopLimiter{}
	}
	return &PageAuditor{
		browserOpts: opts.BrowserOptions,
		fetcher:     NewFetcher(logger),
		extractor:   extract.New(logger),
		analyzer:    opts.Analyzer,
		limiter:     limiter,
		badgeCheck:  opts.BadgeCheck,
		logger:      logger.With("component", "auditor"),
	}
}

func (p *PageAuditor) Process(ctx context.Context, target models.Target) (*models.ProductRecord, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	session, err := browser.Acquire(p.browserOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			p.logger.Warn("session close failed", "error", cerr)
		}
	}()

	snap, err := p.fetcher.Fetch(session, target)
	if err != nil {
		return nil, err
	}

	rec := models.NewProductRecord(target.Source)
	p.extractor.Apply(snap, target, rec)
	p.addImageSignals(rec)

	p.logger.Info("target processed",
		"input", target.Source,
		"sku", rec.SKU,
		"refurbished", rec.IsRefurbished,
	)
	return rec, nil
}

// addImageSignals attaches the grading and badge classifications. Signal
// failures never fail the target; fields stay at their sentinels.
func (p *PageAuditor) addImageSignals(rec *models.ProductRecord) {
	if !p.badgeCheck || p.analyzer == nil {
		return
	}

	if n := len(rec.ImageURLs); n > 0 {
		last := rec.ImageURLs[n-1]
		if match, err := p.analyzer.GradingMatch(last); err == nil {
			if match {
				rec.GradingLastImage = models.Yes
			} else {
				rec.GradingLastImage = models.No
			}
		} else {
			p.logger.Debug("grading signal unavailable", "url", last, "error", err)
		}
	}

	if rec.PrimaryImageURL != models.Unknown {
		rec.GradingTag = p.analyzer.ClassifyBadge(rec.PrimaryImageURL)
	}
}
