// Package sdk provides the client-side library for interacting with the
// Celerix Guard. It supports both remote connections over HTTP and local
// embedded mode.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Client is a remote client for the guard daemon.
// It implements the UserAPI interface.
type Client struct {
	baseURL string
	actor   string
	groups  []string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithActor sets the identity headers sent with every request. Without
// it, requests are unauthorized (which still permits signup).
func WithActor(id string, groups ...string) ClientOption {
	return func(c *Client) {
		c.actor = id
		c.groups = groups
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient returns a remote client for the daemon at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Create(ctx context.Context, attrs map[string]any) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/users", attrs, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) Get(ctx context.Context, id string) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/users/"+id, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) List(ctx context.Context) (map[string]map[string]any, error) {
	var out map[string]map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Update(ctx context.Context, id string, attrs map[string]any) error {
	return c.do(ctx, http.MethodPatch, "/api/users/"+id, attrs, nil)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/users/"+id, nil, nil)
}

func (c *Client) ConfirmKey(ctx context.Context, id string, key string) error {
	body := map[string]any{"key": key}
	return c.do(ctx, http.MethodPost, "/api/users/"+id+"/confirm", body, nil)
}

// do performs one API call, retrying transport-level failures up to 3
// times with backoff. HTTP-level rejections (4xx) are returned as-is:
// the guard already decided, and repeating the question will not help.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return err
		}
	}

	var lastErr error
	for i := 0; i < 3; i++ {
		if i > 0 {
			fmt.Fprintf(os.Stderr, "[Guard SDK] Attempt %d failed: %v. Retrying...\n", i, lastErr)
			time.Sleep(time.Duration(i*200) * time.Millisecond)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.actor != "" {
			req.Header.Set("X-Guard-Actor", c.actor)
			if len(c.groups) > 0 {
				req.Header.Set("X-Guard-Groups", strings.Join(c.groups, ","))
			}
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 400 {
			var apiErr struct {
				Error string `json:"error"`
			}
			if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
				return fmt.Errorf("%s", apiErr.Error)
			}
			return fmt.Errorf("request failed with status %d", resp.StatusCode)
		}

		if out != nil {
			return json.Unmarshal(body, out)
		}
		return nil
	}

	return fmt.Errorf("failed after 3 attempts. last error: %v", lastErr)
}
