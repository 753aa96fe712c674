// Package input turns free-text lines (pasted or read from a file) into
// typed scrape targets. A line that parses as an absolute URL is a direct
// product-page target; everything else is treated as a SKU and wrapped in
// a catalog search URL.
package input

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"jumiascan/internal/models"
)

const searchPath = "/catalog/?q="

// Normalizer builds fetchable Targets against one marketplace domain.
type Normalizer struct {
	baseURL string
}

func NewNormalizer(baseURL string) *Normalizer {
	return &Normalizer{baseURL: strings.TrimRight(baseURL, "/")}
}

// Normalize converts raw lines into Targets, skipping blanks and comment
// lines. Order is preserved; the report mirrors it.
func (n *Normalizer) Normalize(lines []string) []models.Target {
	var targets []models.Target
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, n.normalizeOne(line))
	}
	return targets
}

func (n *Normalizer) normalizeOne(line string) models.Target {
	if isAbsoluteURL(line) {
		return models.Target{Kind: models.KindURL, Value: line, Source: line}
	}
	return models.Target{
		Kind:   models.KindSKUSearch,
		Value:  n.baseURL + searchPath + url.QueryEscape(line),
		Source: line,
	}
}

// CategoryTarget wraps a category-listing URL for later expansion into
// product-page targets.
func (n *Normalizer) CategoryTarget(categoryURL string) (models.Target, error) {
	categoryURL = strings.TrimSpace(categoryURL)
	if !isAbsoluteURL(categoryURL) {
		return models.Target{}, fmt.Errorf("category URL must be absolute: %q", categoryURL)
	}
	return models.Target{Kind: models.KindCategory, Value: categoryURL, Source: categoryURL}, nil
}

// ReadLines loads input lines from a file.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()
	return scanLines(f)
}

func scanLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return lines, nil
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
