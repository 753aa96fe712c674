// Package imaging computes the two visual signals used by the audit: a
// perceptual-hash match against a fixed grading reference image, and a red
// color-mask test for refurbishment badges. Both signals degrade to sentinel
// classifications instead of failing the surrounding extraction.
package imaging

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/corona10/goimagehash"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nfnt/resize"
)

const (
	// Maximum Hamming distance between two difference hashes to still count
	// as the same promotional image. Chosen empirically; keep as is.
	gradingHashThreshold = 12

	// Badge mask parameters: a pixel counts as "vivid red" when R > 180 and
	// both G and B < 100; a badge is declared when more than 3% of a fixed
	// 300x300 canvas is masked.
	badgeCanvasSize  = 300
	badgeRedMin      = 180
	badgeOtherMax    = 100
	badgeRatioCutoff = 0.03

	errorDetailLimit = 60
)

// Analyzer downloads images and computes the grading and badge signals.
// The reference hash is fetched once and shared read-only afterward; a
// small cache keyed by URL absorbs repeated gallery images within a run.
type Analyzer struct {
	client       *http.Client
	logger       *slog.Logger
	referenceURL string

	refOnce sync.Once
	refHash *goimagehash.ImageHash
	refErr  error

	cache *lru.Cache[string, *goimagehash.ImageHash]
}

type Options struct {
	ReferenceImageURL string
	FetchTimeout      time.Duration
	CacheSize         int
	// Client overrides the default HTTP client, for tests.
	Client *http.Client
}

func NewAnalyzer(opts Options, logger *slog.Logger) (*Analyzer, error) {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.FetchTimeout}
	}

	cache, err := lru.New[string, *goimagehash.ImageHash](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create hash cache: %w", err)
	}

	return &Analyzer{
		client:       client,
		logger:       logger.With("component", "imaging"),
		referenceURL: opts.ReferenceImageURL,
		cache:        cache,
	}, nil
}

// GradingMatch reports whether the image at url is a near-duplicate of the
// grading reference image. Any fetch or decode problem yields (false, err);
// callers treat that as "no signal", never as a target failure.
func (a *Analyzer) GradingMatch(url string) (bool, error) {
	a.refOnce.Do(func() {
		a.refHash, a.refErr = a.hashFor(a.referenceURL)
		if a.refErr != nil {
			a.logger.Warn("reference image unavailable", "url", a.referenceURL, "error", a.refErr)
		}
	})
	if a.refErr != nil {
		return false, fmt.Errorf("reference hash unavailable: %w", a.refErr)
	}

	h, err := a.hashFor(url)
	if err != nil {
		return false, err
	}

	distance, err := a.refHash.Distance(h)
	if err != nil {
		return false, fmt.Errorf("failed to compare hashes: %w", err)
	}
	return distance <= gradingHashThreshold, nil
}

// ClassifyBadge downloads the primary image and runs the red color-mask
// test. The return value is the literal classification used downstream:
// "YES", "NO", or "ERROR: <detail>".
func (a *Analyzer) ClassifyBadge(url string) string {
	img, err := a.fetchImage(url)
	if err != nil {
		return "ERROR: " + truncate(err.Error(), errorDetailLimit)
	}

	canvas := resize.Resize(badgeCanvasSize, badgeCanvasSize, img, resize.Bilinear)

	masked := 0
	bounds := canvas.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := canvas.At(x, y).RGBA()
			if r>>8 > badgeRedMin && g>>8 < badgeOtherMax && b>>8 < badgeOtherMax {
				masked++
			}
		}
	}

	ratio := float64(masked) / float64(badgeCanvasSize*badgeCanvasSize)
	if ratio > badgeRatioCutoff {
		return "YES"
	}
	return "NO"
}

func (a *Analyzer) hashFor(url string) (*goimagehash.ImageHash, error) {
	if h, ok := a.cache.Get(url); ok {
		return h, nil
	}

	img, err := a.fetchImage(url)
	if err != nil {
		return nil, err
	}

	h, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return nil, fmt.Errorf("failed to hash image: %w", err)
	}

	a.cache.Add(url, h)
	return h, nil
}

func (a *Analyzer) fetchImage(url string) (image.Image, error) {
	resp, err := a.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching image", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
