// Package fetch downloads the study collection from the registry API and
// persists a raw snapshot to the local data file, so a load can re-run
// from the snapshot without re-downloading.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"trialsearch/internal/trial/document"
)

// downloadTimeout bounds one full collection download.
const downloadTimeout = 5 * time.Minute

type Fetcher struct {
	client   *http.Client
	url      string
	limit    int
	dataFile string
	logger   *slog.Logger
}

func New(apiURL string, limit int, dataFile string, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: downloadTimeout},
		url:      apiURL,
		limit:    limit,
		dataFile: dataFile,
		logger:   logger,
	}
}

// Download fetches the collection, writes the raw snapshot to the data
// file, and returns the decoded documents.
func (f *Fetcher) Download(ctx context.Context) ([]document.Document, error) {
	reqURL, err := url.Parse(f.url)
	if err != nil {
		return nil, fmt.Errorf("parse fetch url: %w", err)
	}
	q := reqURL.Query()
	q.Set("format", "json")
	q.Set("sort", "@relevance")
	q.Set("limit", strconv.Itoa(f.limit))
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}

	start := time.Now()
	f.logger.InfoContext(ctx, "downloading study collection", "url", f.url, "limit", f.limit)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch studies: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch studies: unexpected status %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read fetch response: %w", err)
	}

	docs, err := DecodeStudies(raw)
	if err != nil {
		return nil, err
	}

	if err := f.saveSnapshot(raw); err != nil {
		return nil, err
	}

	f.logger.InfoContext(ctx, "download finished",
		"studies", len(docs),
		"bytes", len(raw),
		"duration", time.Since(start),
	)
	return docs, nil
}

// LoadSnapshot reads the previously downloaded collection from the data
// file.
func (f *Fetcher) LoadSnapshot() ([]document.Document, error) {
	raw, err := os.ReadFile(f.dataFile)
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}
	return DecodeStudies(raw)
}

func (f *Fetcher) saveSnapshot(raw []byte) error {
	if dir := filepath.Dir(f.dataFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	if err := os.WriteFile(f.dataFile, raw, 0o644); err != nil {
		return fmt.Errorf("write data file: %w", err)
	}
	return nil
}

// DecodeStudies accepts the two payload shapes the registry serves: a bare
// array of study documents, or an object wrapping the array under
// "studies".
func DecodeStudies(raw []byte) ([]document.Document, error) {
	var docs []document.Document
	if err := json.Unmarshal(raw, &docs); err == nil {
		return docs, nil
	}
	var wrapped struct {
		Studies []document.Document `json:"studies"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode studies payload: %w", err)
	}
	if wrapped.Studies == nil {
		return nil, fmt.Errorf("decode studies payload: no study array found")
	}
	return wrapped.Studies, nil
}
