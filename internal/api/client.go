// Package api is the HTTP client for the remote ordering service. It
// speaks the three-endpoint guest contract: menu fetch, order-window
// status, and guest order submission.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/frietavond/bestel/internal/menu"
)

// Submit failure kinds, used to pick the user-facing message.
const (
	KindTimeout = "timeout"
	KindNetwork = "network"
	KindServer  = "server"
)

var ErrMenuFetch = errors.New("menu fetch failed")

// Status is the order-window state as reported by the service. Replaced
// wholesale on every poll. NextOpening is only meaningful while closed,
// Deadline only while open.
type Status struct {
	IsOpen      bool       `json:"isOpen"`
	NextOpening *time.Time `json:"nextOpening"`
	Deadline    *time.Time `json:"deadline"`
}

// Payload is a guest order as submitted to the service. Built fresh from
// the selection state at submission time.
type Payload struct {
	UserID   string        `json:"user_id"`
	UserName string        `json:"user_name"`
	Items    []PayloadItem `json:"items"`
}

// PayloadItem is a single ordered item. NeedsQuantity is always false in
// this client; the field exists because the service expects it.
type PayloadItem struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	Quantity      int    `json:"quantity"`
	NeedsQuantity bool   `json:"needsQuantity"`
}

// SubmitError is a classified submission failure.
type SubmitError struct {
	Kind   string
	Status int // HTTP status for KindServer, zero otherwise
	Err    error
}

func (e *SubmitError) Error() string {
	if e.Kind == KindServer {
		return fmt.Sprintf("submit order: server responded with status %d", e.Status)
	}
	return fmt.Sprintf("submit order (%s): %v", e.Kind, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// Client talks to the remote ordering service.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the given base URL. Requests other than the
// submission carry no explicit timeout and rely on transport failure.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
	}
}

// setHeaders adds the headers every request carries: JSON accept plus the
// header that tells a dev tunnel to skip its interstitial page.
func setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("ngrok-skip-browser-warning", "true")
}

// FetchMenu retrieves the raw category map. Non-2xx responses and decode
// failures are load failures for the caller to surface.
func (c *Client) FetchMenu(ctx context.Context) (map[string][]menu.RawItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/menu", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMenuFetch, err)
	}
	setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMenuFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrMenuFetch, resp.StatusCode)
	}

	var raw map[string][]menu.RawItem
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrMenuFetch, err)
	}
	return raw, nil
}

// FetchStatus retrieves the current order-window status. Callers treat any
// error as "keep the previous status".
func (c *Client) FetchStatus(ctx context.Context) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/order/status", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch order status: %w", err)
	}
	setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch order status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch order status: status %d", resp.StatusCode)
	}

	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("fetch order status: decode: %w", err)
	}
	return &st, nil
}

// SubmitOrder posts a guest order, bounded by the given timeout. The
// request is aborted when the timeout elapses; failures are classified so
// the session can show the right message.
func (c *Client) SubmitOrder(ctx context.Context, p Payload, timeout time.Duration) error {
	body, err := json.Marshal(p)
	if err != nil {
		return &SubmitError{Kind: KindNetwork, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/order/guest", bytes.NewReader(body))
	if err != nil {
		return &SubmitError{Kind: KindNetwork, Err: err}
	}
	setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &SubmitError{Kind: KindTimeout, Err: err}
		}
		return &SubmitError{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &SubmitError{Kind: KindServer, Status: resp.StatusCode}
	}
	return nil
}
