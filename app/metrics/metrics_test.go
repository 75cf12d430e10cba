package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounters(t *testing.T) {
	r := NewRecorder()

	r.FeedRequest(ResultFetched)
	r.FeedRequest(ResultFetched)
	r.FeedRequest(ResultCached)
	r.ProgrammesStored("NRK2", 40)
	r.ProgrammesStored("NRK2", 2)
	r.ProgrammesDropped(3)
	r.Channel(OutcomeSynced)

	if got := testutil.ToFloat64(r.feedRequests.WithLabelValues(ResultFetched)); got != 2 {
		t.Errorf("Expected 2 fetched requests, got %v", got)
	}
	if got := testutil.ToFloat64(r.feedRequests.WithLabelValues(ResultCached)); got != 1 {
		t.Errorf("Expected 1 cached request, got %v", got)
	}
	if got := testutil.ToFloat64(r.programmesStored.WithLabelValues("NRK2")); got != 42 {
		t.Errorf("Expected 42 stored programmes, got %v", got)
	}
	if got := testutil.ToFloat64(r.programmesDropped); got != 3 {
		t.Errorf("Expected 3 dropped programmes, got %v", got)
	}
	if got := testutil.ToFloat64(r.channels.WithLabelValues(OutcomeSynced)); got != 1 {
		t.Errorf("Expected 1 synced channel, got %v", got)
	}
}

func TestRecorderRunFinished(t *testing.T) {
	r := NewRecorder()

	r.RunFinished(1500*time.Millisecond, false)
	if got := testutil.ToFloat64(r.runDuration); got != 1.5 {
		t.Errorf("Expected run duration 1.5, got %v", got)
	}
	if got := testutil.ToFloat64(r.lastSuccess); got != 0 {
		t.Errorf("Expected no success timestamp after failed run, got %v", got)
	}

	r.RunFinished(time.Second, true)
	if got := testutil.ToFloat64(r.lastSuccess); got < float64(time.Now().Add(-time.Minute).Unix()) {
		t.Errorf("Expected recent success timestamp, got %v", got)
	}
}

func TestRecorderRegistryIsPrivate(t *testing.T) {
	a := NewRecorder()
	b := NewRecorder()

	a.FeedRequest(ResultFailed)

	if got := testutil.ToFloat64(b.feedRequests.WithLabelValues(ResultFailed)); got != 0 {
		t.Errorf("Expected independent registries, got %v", got)
	}
}

func TestRecorderPush(t *testing.T) {
	var (
		method, path string
		body         string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	r := NewRecorder()
	r.FeedRequest(ResultFetched)

	if err := r.Push(context.Background(), server.URL, "", "tv-host"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if method != http.MethodPut {
		t.Errorf("Expected PUT, got %s", method)
	}
	if path != "/metrics/job/epgfetch/instance/tv-host" {
		t.Errorf("Unexpected push path %s", path)
	}
	if !strings.Contains(body, "epgfetch_feed_requests_total") {
		t.Error("Expected pushed body to contain feed request counter")
	}
}

func TestRecorderPushFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if err := NewRecorder().Push(context.Background(), server.URL, DefaultJob, ""); err == nil {
		t.Error("Expected error when the Pushgateway rejects the push")
	}
}
