package tasks

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/epgfetch/app/catalog"
	"github.com/lysyi3m/epgfetch/app/database"
	"github.com/lysyi3m/epgfetch/app/feed"
	"github.com/lysyi3m/epgfetch/app/metrics"
)

func xmltvFixture(providerID string, date feed.Date) string {
	day := fmt.Sprintf("%04d%02d%02d", date.Year, int(date.Month), date.Day)
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<tv>
  <programme start="%[1]s180000 +0000" stop="%[1]s190000 +0000" channel="%[2]s">
    <title lang="no">Dagsrevyen %[3]s</title>
    <title lang="en">Evening News</title>
    <desc lang="no">Nyheter</desc>
  </programme>
  <programme start="%[1]s190000 +0000" stop="%[1]s200000 +0000" channel="%[2]s">
    <title lang="en">Documentary %[3]s</title>
  </programme>
</tv>`, day, providerID, date.String())
}

// feedServer serves gzipped XMLTV for any {provider}_{date}.xml.gz path
type feedServer struct {
	mu   sync.Mutex
	hits map[string]int
}

func newFeedServer(t *testing.T) (*feedServer, *httptest.Server) {
	t.Helper()
	fs := &feedServer{hits: make(map[string]int)}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".xml.gz")
		sep := strings.LastIndex(name, "_")
		if sep < 0 {
			http.NotFound(w, r)
			return
		}

		parsed, err := time.Parse("2006-01-02", name[sep+1:])
		if err != nil {
			http.NotFound(w, r)
			return
		}

		fs.mu.Lock()
		fs.hits[name]++
		fs.mu.Unlock()

		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		zw.Write([]byte(xmltvFixture(name[:sep], feed.DateOf(parsed))))
		zw.Close()

		w.Header().Set("Content-Type", "application/gzip")
		w.Write(buf.Bytes())
	}))
	t.Cleanup(server.Close)

	return fs, server
}

func TestPipelineEndToEnd(t *testing.T) {
	fs, server := newFeedServer(t)

	db, err := database.NewSQLiteConnection(filepath.Join(t.TempDir(), "epg.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	repo := database.NewProgrammeRepository(db, time.UTC)
	ctx := context.Background()

	stale := []database.Programme{{
		Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Stop:  time.Date(2020, 1, 1, 1, 0, 0, 0, time.UTC),
		Title: "Stale",
	}}
	if _, err := repo.ReplaceChannelProgrammes(ctx, "NRK2", stale); err != nil {
		t.Fatalf("Failed to seed stale rows: %v", err)
	}

	cat, err := catalog.New([]catalog.Entry{
		{ProviderID: "nrk1.nrk.no", DisplayName: "NRK1 HD"},
		{ProviderID: "nrk1.nrk.no", DisplayName: "NRK1 Midtnytt"},
		{ProviderID: "nrk2.nrk.no", DisplayName: "NRK2"},
	})
	if err != nil {
		t.Fatalf("Failed to build catalog: %v", err)
	}

	fetcher := feed.NewFetcher(feed.FetcherConfig{BaseURL: server.URL, Mode: feed.ModeXML, UserAgent: "epgfetch/test"})
	parser := feed.NewParser(feed.ModeXML, []string{"no", "en"}, time.UTC)
	recorder := metrics.NewRecorder()

	tasks := NewSyncTasks(cat, dates, fetcher, parser, repo, recorder, false)
	if err := NewRunner(recorder).Run(ctx, tasks); err != nil {
		t.Fatalf("Expected run to succeed, got: %v", err)
	}

	if fs.hits["nrk2.nrk.no_2024-01-31"] != 1 || fs.hits["nrk2.nrk.no_2024-02-01"] != 1 {
		t.Errorf("Expected one fetch per NRK2 date, got %v", fs.hits)
	}
	if fs.hits["nrk1.nrk.no_2024-01-31"] != 1 {
		t.Errorf("Expected shared provider to be fetched once per date, got %v", fs.hits)
	}

	stats := fetcher.Stats()
	if stats.Requests != 4 || stats.CacheHits != 2 {
		t.Errorf("Expected 4 requests and 2 cache hits, got %+v", stats)
	}

	stored, err := repo.ListChannelProgrammes(ctx, "NRK2", time.Time{}, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(stored) != 4 {
		t.Fatalf("Expected 4 NRK2 programmes, got %d", len(stored))
	}
	for _, p := range stored {
		if p.Title == "Stale" {
			t.Error("Stale row survived the replace")
		}
	}
	if stored[0].Title != "Dagsrevyen 2024-01-31" {
		t.Errorf("Expected Norwegian title first, got %s", stored[0].Title)
	}
	if stored[1].Title != "Documentary 2024-01-31" || stored[1].Description != "" {
		t.Errorf("Unexpected second programme %+v", stored[1])
	}
	if stored[3].Start.Day() != 1 || stored[3].Start.Month() != time.February {
		t.Errorf("Expected last programme on 2024-02-01, got %v", stored[3].Start)
	}

	for _, channel := range []string{"NRK1 HD", "NRK1 Midtnytt"} {
		count, err := repo.CountChannelProgrammes(ctx, channel)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if count != 4 {
			t.Errorf("Expected 4 programmes for %s, got %d", channel, count)
		}
	}

	if got := counterValue(t, recorder, "epgfetch_feed_requests_total", map[string]string{"result": metrics.ResultCached}); got != 2 {
		t.Errorf("Expected 2 cached lookups recorded, got %v", got)
	}
	if got := counterValue(t, recorder, "epgfetch_channels_total", map[string]string{"outcome": metrics.OutcomeSynced}); got != 3 {
		t.Errorf("Expected 3 synced channels, got %v", got)
	}
}

func TestPipelineFetchFailureStopsRun(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	store := NewMockStore()
	fetcher := feed.NewFetcher(feed.FetcherConfig{BaseURL: server.URL, Mode: feed.ModeXML})
	parser := feed.NewParser(feed.ModeXML, nil, time.UTC)

	cat, _ := catalog.New([]catalog.Entry{nrk2, {ProviderID: "cnn.com", DisplayName: "CNN"}})
	err := NewRunner(metrics.NewRecorder()).Run(context.Background(), NewSyncTasks(cat, dates, fetcher, parser, store, metrics.NewRecorder(), false))
	if err == nil {
		t.Fatal("Expected run to fail")
	}
	if fetcher.Stats().Requests != 1 {
		t.Errorf("Expected run to stop after the first failed request, got %d", fetcher.Stats().Requests)
	}
	if store.replaces != 0 {
		t.Error("Expected no store writes")
	}
}
