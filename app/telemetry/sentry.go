// Package telemetry reports failed runs to Sentry.
//
// Usage in main.go:
//
//	telemetry.InitSentry(opts.SentryDSN, cfg.Version)
//	defer telemetry.Flush()
package telemetry

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lysyi3m/epgfetch/app/database"
	"github.com/lysyi3m/epgfetch/app/feed"
)

const serviceName = "epgfetch"

var enabled bool

// InitSentry initializes the Sentry SDK. An empty dsn leaves Sentry disabled.
func InitSentry(dsn, release string) error {
	if dsn == "" {
		slog.Debug("Sentry DSN not set, error reporting disabled")
		return nil
	}

	env := os.Getenv("EPGFETCH_ENV")
	if env == "" {
		env = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		Release:          release,
		AttachStacktrace: true,
		Tags: map[string]string{
			"service": serviceName,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}

	enabled = true
	return nil
}

func Enabled() bool {
	return enabled
}

// CaptureError sends err to Sentry. Channel and date tags are taken from the
// typed pipeline errors when present. Safe to call when Sentry is disabled.
func CaptureError(err error, tags map[string]string) {
	if err == nil || !enabled {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range ErrorTags(err) {
			scope.SetTag(k, v)
		}
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// ErrorTags extracts diagnostic tags from pipeline errors.
func ErrorTags(err error) map[string]string {
	tags := make(map[string]string)

	var fetchErr *feed.FetchError
	var parseErr *feed.ParseError
	var storeErr *database.StoreError

	switch {
	case errors.As(err, &fetchErr):
		tags["stage"] = "fetch"
		tags["provider_id"] = fetchErr.Key.ProviderID
		tags["date"] = fetchErr.Key.Date.String()
	case errors.As(err, &parseErr):
		tags["stage"] = "parse"
		tags["channel"] = parseErr.Channel
		tags["provider_id"] = parseErr.Key.ProviderID
		tags["date"] = parseErr.Key.Date.String()
	case errors.As(err, &storeErr):
		tags["stage"] = "store"
		tags["operation"] = storeErr.Op
		if storeErr.Channel != "" {
			tags["channel"] = storeErr.Channel
		}
	}

	return tags
}

// Flush waits for buffered Sentry events to be sent.
func Flush() {
	if enabled {
		sentry.Flush(2 * time.Second)
	}
}
