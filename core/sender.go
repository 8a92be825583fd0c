package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPSender posts event payloads to target URLs. Every call is bounded by
// the configured total timeout and every failure mode is folded into the
// returned SendOutcome; Send never returns an error.
type HTTPSender struct {
	client    *http.Client
	bodyLimit int
}

func NewHTTPSender(timeout time.Duration, bodyLimit int) *HTTPSender {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if bodyLimit <= 0 {
		bodyLimit = 2048
	}
	return &HTTPSender{
		client:    &http.Client{Timeout: timeout},
		bodyLimit: bodyLimit,
	}
}

func (s *HTTPSender) Send(ctx context.Context, targetURL string, body []byte, headers http.Header) SendOutcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(body))
	if err != nil {
		return SendOutcome{Err: fmt.Errorf("build request: %w", err)}
	}
	for name, values := range headers {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return SendOutcome{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	truncated, err := io.ReadAll(io.LimitReader(resp.Body, int64(s.bodyLimit)))
	if err != nil {
		// The status line arrived; a torn body still counts as a response.
		truncated = nil
	}
	return SendOutcome{
		StatusCode: resp.StatusCode,
		Body:       truncated,
	}
}

var _ Sender = (*HTTPSender)(nil)
