package feed

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultDelay   = 50 * time.Millisecond
	DefaultTimeout = 30 * time.Second

	maxPayloadSize = 50 << 20
)

type FetcherConfig struct {
	BaseURL   string // defaults to Mode.DefaultBaseURL()
	Mode      Mode
	UserAgent string
	Delay     time.Duration // pause between two network requests; zero disables pacing
	Client    *http.Client  // defaults to a client with DefaultTimeout
}

type FetchStats struct {
	Requests  int
	CacheHits int
}

// Fetcher downloads and decompresses feed payloads. Every payload, and every
// failure, is remembered for the lifetime of the Fetcher, so a key is requested
// from the network at most once. A Fetcher is not safe for concurrent use.
type Fetcher struct {
	baseURL   string
	mode      Mode
	userAgent string
	delay     time.Duration
	client    *http.Client

	cache    map[Key][]byte
	failures map[Key]error
	stats    FetchStats
}

func NewFetcher(config FetcherConfig) *Fetcher {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = config.Mode.DefaultBaseURL()
	}

	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	return &Fetcher{
		baseURL:   strings.TrimRight(baseURL, "/"),
		mode:      config.Mode,
		userAgent: config.UserAgent,
		delay:     config.Delay,
		client:    client,
		cache:     make(map[Key][]byte),
		failures:  make(map[Key]error),
	}
}

func (f *Fetcher) URL(key Key) string {
	return f.baseURL + "/" + key.Path(f.mode)
}

func (f *Fetcher) Stats() FetchStats {
	return f.stats
}

func (f *Fetcher) Fetch(ctx context.Context, key Key) ([]byte, error) {
	if payload, ok := f.cache[key]; ok {
		f.stats.CacheHits++
		slog.Debug("Feed served from cache", "key", key.String())
		return payload, nil
	}
	if err, ok := f.failures[key]; ok {
		f.stats.CacheHits++
		return nil, err
	}

	if f.stats.Requests > 0 && f.delay > 0 {
		if err := sleep(ctx, f.delay); err != nil {
			return nil, &FetchError{Key: key, URL: f.URL(key), Err: err}
		}
	}
	f.stats.Requests++

	url := f.URL(key)
	payload, err := f.download(ctx, url)
	if err != nil {
		fetchErr := &FetchError{Key: key, URL: url, Err: err}
		// Cancelled requests say nothing about the feed, so a later call retries.
		if ctx.Err() == nil {
			f.failures[key] = fetchErr
		}
		return nil, fetchErr
	}

	f.cache[key] = payload
	slog.Debug("Feed fetched", "key", key.String(), "bytes", len(payload))

	return payload, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	data, err := readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return decompress(data)
}

// decompress gunzips data. Bodies without the gzip magic number are returned
// unchanged: the transport may already have decoded a Content-Encoding: gzip response.
func decompress(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer zr.Close()

	payload, err := readLimited(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress payload: %w", err)
	}

	return payload, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxPayloadSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxPayloadSize {
		return nil, fmt.Errorf("payload exceeds %d bytes", maxPayloadSize)
	}
	return data, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
