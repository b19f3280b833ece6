// Package api is the storefront's only way to reach the remote commerce API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// Credentials supplies the bearer token for one visitor and is told when the
// API rejects it. Invalidate must clear every stored auth value.
type Credentials interface {
	AccessToken(ctx context.Context) string
	Invalidate(ctx context.Context)
}

// Observer receives one call per finished request. status is 0 on transport failure.
type Observer func(op string, status int, elapsed time.Duration)

type Client struct {
	baseURL string
	hc      *http.Client
	creds   Credentials
	log     *logrus.Entry
	observe Observer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

func WithLogger(l *logrus.Entry) Option { return func(c *Client) { c.log = l } }

func WithObserver(o Observer) Option { return func(c *Client) { c.observe = o } }

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		hc:      http.DefaultClient,
		log:     logrus.NewEntry(logrus.StandardLogger()),
		observe: func(string, int, time.Duration) {},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// As returns a client that authenticates with creds. The transport is shared.
func (c *Client) As(creds Credentials) *Client {
	cp := *c
	cp.creds = creds
	return &cp
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.creds != nil {
		if tok := c.creds.AccessToken(ctx); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.observe(op, 0, time.Since(start))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	c.observe(op, resp.StatusCode, time.Since(start))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newError(resp.StatusCode, raw)
		if resp.StatusCode == http.StatusUnauthorized && c.creds != nil {
			c.creds.Invalidate(ctx)
		}
		c.log.WithFields(logrus.Fields{
			"op":     op,
			"status": resp.StatusCode,
		}).Debug(apiErr.Message)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func withQuery(path string, v url.Values) string {
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}
