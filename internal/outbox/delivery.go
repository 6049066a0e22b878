package outbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const activityContentType = "application/activity+json"

const defaultDeliveryTimeout = 15 * time.Second

// Deliverer posts one encoded activity to one remote inbox.
type Deliverer interface {
	Deliver(ctx context.Context, inboxURL string, body []byte) error
}

// HTTPDeliverer delivers activities over plain HTTP POST. Remote instances
// acknowledge with any 2xx; everything else is a failed attempt.
type HTTPDeliverer struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewHTTPDeliverer builds a deliverer with a bounded per-request timeout.
func NewHTTPDeliverer(httpClient *http.Client, timeout time.Duration) *HTTPDeliverer {
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &HTTPDeliverer{httpClient: httpClient, timeout: timeout}
}

func (d *HTTPDeliverer) Deliver(ctx context.Context, inboxURL string, body []byte) error {
	if inboxURL == "" {
		return errors.New("inbox URL is required")
	}

	reqCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, inboxURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", activityContentType)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("inbox %s responded with status %d", inboxURL, resp.StatusCode)
	}
	return nil
}
