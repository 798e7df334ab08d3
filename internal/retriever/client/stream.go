package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/otpbridge/internal/retriever/entity"
)

// Events subscribes to the server event stream. The stream reconnects with
// backoff until ctx is done, then the channel is closed.
func (c *Client) Events(ctx context.Context) (<-chan entity.Event, error) {
	resp, err := c.openStream(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan entity.Event, 10)
	go func() {
		defer close(out)

		c.readStream(ctx, resp, out)

		b := retry.NewFibonacci(200 * time.Millisecond)
		b = retry.WithCappedDuration(c.reconnectMax, b)

		//nolint:errcheck // only ends when ctx is done
		_ = retry.Do(ctx, b, func(ctx context.Context) error {
			resp, err := c.openStream(ctx)
			if err != nil {
				slog.DebugContext(ctx, "event stream reconnect failed", "error", err)
				return retry.RetryableError(err)
			}
			c.readStream(ctx, resp, out)
			if ctx.Err() != nil {
				return nil
			}
			return retry.RetryableError(fmt.Errorf("event stream closed"))
		})
	}()

	return out, nil
}

func (c *Client) openStream(ctx context.Context) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/retriever/stream", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	hc := *c.http
	hc.Timeout = 0
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "event stream unavailable"}
	}
	return resp, nil
}

// readStream forwards data frames until the body ends. Comments and the
// event name line are skipped; the payload carries the type.
func (c *Client) readStream(ctx context.Context, resp *http.Response, out chan<- entity.Event) {
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}

		var evt entity.Event
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			slog.WarnContext(ctx, "skipping malformed event", "error", err)
			continue
		}

		select {
		case out <- evt:
		case <-ctx.Done():
			return
		}
	}
}
