// Package companion talks to the local web service that tracks subscriptions
// and live-stream channels. Every call is best-effort: failures are logged and
// reported as an Outcome, never returned as an error.
package companion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	OperationCheckSubscriptions = "checkSubscriptions"
	OperationAddChannel         = "addChannel"
	OperationResolveStream      = "resolveStream"

	DefaultTimeout = 10 * time.Second
)

// Outcome is the result of one best-effort companion call.
type Outcome struct {
	Operation string
	Target    string
	Err       error
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

// BaseURL builds http://{hostname}{:port}{basePath}. The port is only included
// when debug is set, matching how the service is exposed in development.
func BaseURL(hostname, webPort, basePath string, debug bool) string {
	port := ""
	if debug && webPort != "" {
		port = ":" + webPort
	}
	if !strings.HasSuffix(basePath, "/") {
		basePath += "/"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return "http://" + hostname + port + basePath
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

func NewClient(baseURL string, httpClient *http.Client, userAgent string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

func (c *Client) CheckSubscriptions(ctx context.Context) Outcome {
	endpoint := c.baseURL + OperationCheckSubscriptions
	return c.call(ctx, OperationCheckSubscriptions, endpoint, endpoint)
}

// AddChannel registers a live stream URL under the channel name.
func (c *Client) AddChannel(ctx context.Context, name, streamURL string) Outcome {
	params := url.Values{}
	params.Set("cname", name)
	params.Set("url", streamURL)

	endpoint := c.baseURL + OperationAddChannel + "?" + params.Encode()
	return c.call(ctx, OperationAddChannel, name, endpoint)
}

func (c *Client) call(ctx context.Context, operation, target, endpoint string) Outcome {
	outcome := Outcome{Operation: operation, Target: target}

	body, err := c.get(ctx, endpoint)
	if err != nil {
		outcome.Err = err
		slog.Warn("Companion call failed", "operation", operation, "target", target, "error", err)
		return outcome
	}
	body.Close()

	slog.Debug("Companion call succeeded", "operation", operation, "target", target)
	return outcome
}

func (c *Client) get(ctx context.Context, endpoint string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	return resp.Body, nil
}
