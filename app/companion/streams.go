package companion

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"slices"
	"strings"
)

const maxPlaylistSize = 1 << 20

// Stream is a live channel published as an HLS master playlist. Variant is
// the exact #EXT-X-STREAM-INF line of the rendition to register.
type Stream struct {
	Name        string `yaml:"Name"`
	PlaylistURL string `yaml:"PlaylistURL"`
	Variant     string `yaml:"Variant"`
}

func DefaultStreams() []Stream {
	return []Stream{
		{
			Name:        "NRK2 HD",
			PlaylistURL: "https://nrk2us-f.akamaihd.net/i/nrk2us_0@107231/master.m3u8?dw=31",
			Variant:     "#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=3528000,RESOLUTION=1280x720",
		},
		{
			Name:        "NRK3 HD",
			PlaylistURL: "https://nrk3us-f.akamaihd.net/i/nrk3us_0@107233/master.m3u8?dw=31",
			Variant:     "#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=3528000,RESOLUTION=1280x720",
		},
	}
}

// ResolveStream downloads the master playlist and returns the URI following
// the stream's variant line, resolved against the playlist URL.
func (c *Client) ResolveStream(ctx context.Context, stream Stream) (string, error) {
	base, err := url.Parse(stream.PlaylistURL)
	if err != nil {
		return "", fmt.Errorf("invalid playlist URL: %w", err)
	}

	body, err := c.get(ctx, stream.PlaylistURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	uri, err := findVariant(io.LimitReader(body, maxPlaylistSize), stream.Variant)
	if err != nil {
		return "", err
	}

	ref, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid variant URI '%s': %w", uri, err)
	}

	return base.ResolveReference(ref).String(), nil
}

func findVariant(r io.Reader, variant string) (string, error) {
	variant = strings.TrimSpace(variant)
	scanner := bufio.NewScanner(r)

	matched := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if matched {
			if line == "" {
				continue
			}
			return line, nil
		}
		if line == variant {
			matched = true
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read playlist: %w", err)
	}
	if matched {
		return "", fmt.Errorf("variant has no URI line")
	}
	return "", fmt.Errorf("variant not found in playlist")
}

// RegisterStreams resolves each stream whose name is in known and registers it
// with the companion service. Streams outside known are skipped silently.
func (c *Client) RegisterStreams(ctx context.Context, streams []Stream, known []string) []Outcome {
	var outcomes []Outcome

	for _, stream := range streams {
		if !slices.Contains(known, stream.Name) {
			slog.Debug("Stream not configured as a channel, skipping", "stream", stream.Name)
			continue
		}

		streamURL, err := c.ResolveStream(ctx, stream)
		if err != nil {
			slog.Warn("Failed to resolve stream", "stream", stream.Name, "playlist", stream.PlaylistURL, "error", err)
			outcomes = append(outcomes, Outcome{Operation: OperationResolveStream, Target: stream.Name, Err: err})
			continue
		}

		outcomes = append(outcomes, c.AddChannel(ctx, stream.Name, streamURL))
	}

	return outcomes
}
