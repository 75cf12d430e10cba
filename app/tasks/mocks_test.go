package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/epgfetch/app/catalog"
	"github.com/lysyi3m/epgfetch/app/database"
	"github.com/lysyi3m/epgfetch/app/feed"
)

// MockFetcher serves payloads by key and counts calls
type MockFetcher struct {
	payloads map[feed.Key][]byte
	errs     map[feed.Key]error
	calls    []feed.Key
	stats    feed.FetchStats
}

func (m *MockFetcher) Fetch(ctx context.Context, key feed.Key) ([]byte, error) {
	m.calls = append(m.calls, key)
	m.stats.Requests++
	if err, ok := m.errs[key]; ok {
		return nil, &feed.FetchError{Key: key, URL: "http://mock/" + key.String(), Err: err}
	}
	return m.payloads[key], nil
}

func (m *MockFetcher) Stats() feed.FetchStats {
	return m.stats
}

// MockParser returns one programme per payload, titled with the payload text
type MockParser struct {
	err error
}

func (m *MockParser) Run(payload []byte, entry catalog.Entry, key feed.Key) (*feed.Result, error) {
	if m.err != nil {
		return nil, &feed.ParseError{Key: key, Channel: entry.DisplayName, Err: m.err}
	}
	start := time.Date(key.Date.Year, key.Date.Month, key.Date.Day, 18, 0, 0, 0, time.UTC)
	return &feed.Result{
		Programmes: []feed.Programme{{
			Start:   start,
			Stop:    start.Add(time.Hour),
			Title:   string(payload),
			Channel: entry.DisplayName,
		}},
		Dropped: 1,
	}, nil
}

// MockStore keeps programmes in memory by channel
type MockStore struct {
	rows     map[string][]database.Programme
	replaces int
	err      error
}

func NewMockStore() *MockStore {
	return &MockStore{rows: make(map[string][]database.Programme)}
}

func (m *MockStore) ReplaceChannelProgrammes(ctx context.Context, channel string, programmes []database.Programme) (int, error) {
	if m.err != nil {
		return 0, &database.StoreError{Op: "insert", Channel: channel, Err: m.err}
	}
	m.replaces++
	m.rows[channel] = append([]database.Programme(nil), programmes...)
	return len(programmes), nil
}

func (m *MockStore) ListChannelProgrammes(ctx context.Context, channel string, from time.Time, limit int) ([]database.Programme, error) {
	return m.rows[channel], nil
}

func (m *MockStore) CountChannelProgrammes(ctx context.Context, channel string) (int, error) {
	return len(m.rows[channel]), nil
}
