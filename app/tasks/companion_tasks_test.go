package tasks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lysyi3m/epgfetch/app/companion"
)

func TestCheckSubscriptionsTaskNeverFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	task := NewCheckSubscriptionsTask(companion.NewClient(server.URL, nil, ""))
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if task.Outcome.OK() {
		t.Error("Expected failed outcome to be recorded")
	}
}

func TestRegisterStreamsTaskNeverFails(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	streams := []companion.Stream{{Name: "NRK2 HD", PlaylistURL: server.URL + "/master.m3u8", Variant: "#EXT-X-STREAM-INF:BANDWIDTH=1"}}
	task := NewRegisterStreamsTask(companion.NewClient(server.URL, nil, ""), streams, []string{"NRK2 HD"})

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(task.Outcomes) != 1 || task.Outcomes[0].OK() {
		t.Errorf("Expected one failed outcome, got %+v", task.Outcomes)
	}
}
