package executor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"qa-harness/internal/client"
)

const (
	// PollTimeout bounds a single readiness request
	PollTimeout = 2 * time.Second
	// PollInterval is the pause between readiness requests
	PollInterval = 500 * time.Millisecond
)

// WaitForHTTP polls url until it answers 200 or timeout elapses
func WaitForHTTP(ctx context.Context, url string, timeout time.Duration) error {
	c := client.New(client.WithTimeouts(PollTimeout, PollTimeout))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	for {
		resp, err := c.Get(ctx, url)
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode == http.StatusOK:
			return nil
		default:
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("service did not become ready in %s, last error: %v", timeout, lastErr)
		case <-time.After(PollInterval):
		}
	}
}
