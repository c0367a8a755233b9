package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"campaign-fulfillment/internal/core/domain"
)

// errNothingToClaim is returned by Next when every running instance is
// leased.
var errNothingToClaim = errors.New("no instance available")

// client talks to the fulfillment service's lease and task endpoints.
type client struct {
	base string
	http *http.Client
}

func newClient(base string, hc *http.Client) *client {
	return &client{base: strings.TrimRight(base, "/"), http: hc}
}

func (c *client) Next(ctx context.Context, who domain.Claimant) (json.RawMessage, error) {
	body, code, err := c.do(ctx, http.MethodPost, "/api/v1/leases/next", who)
	if code == http.StatusNotFound {
		return nil, errNothingToClaim
	}
	return body, err
}

func (c *client) Renew(ctx context.Context, instanceID string, who domain.Claimant) (json.RawMessage, error) {
	body, _, err := c.do(ctx, http.MethodPost, "/api/v1/leases/"+url.PathEscape(instanceID)+"/renew", who)
	return body, err
}

func (c *client) Break(ctx context.Context, instanceID string, who domain.Claimant) (json.RawMessage, error) {
	body, _, err := c.do(ctx, http.MethodDelete, "/api/v1/leases/"+url.PathEscape(instanceID), who)
	return body, err
}

func (c *client) Status(ctx context.Context, instanceID string) (json.RawMessage, error) {
	body, _, err := c.do(ctx, http.MethodGet, "/api/v1/tasks/"+url.PathEscape(instanceID), nil)
	return body, err
}

// do sends payload as JSON and returns the response body. Non-2xx answers
// are reported as errors carrying the server's message.
func (c *client) do(ctx context.Context, method, path string, payload any) (json.RawMessage, int, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, resp.StatusCode, nil
}
