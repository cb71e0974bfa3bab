package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// StatusError is a non-200 reply from a model API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed if sent again.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Do sends the request built by newReq up to attempts times and returns the
// body of the first 200 reply. Transport errors and 5xx/429 replies are
// retried; other statuses fail at once.
func Do(ctx context.Context, client *http.Client, attempts int, newReq func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := newReq(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("making request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading response: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
			if statusErr.Temporary() {
				lastErr = statusErr
				continue
			}
			return nil, statusErr
		}

		return body, nil
	}

	return nil, lastErr
}
