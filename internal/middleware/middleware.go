// Package middleware is the narrow HTTP client for the downstream channel
// middleware (spec.md §6): list/create/update/delete channels, list streams.
// The client is a plain *http.Client wrapper, grounded in the teacher's
// net/dialer_default.go HTTP-client-factory idiom and
// services/sports/source_registry.go's probeURL reachability check (kept
// here as Probe; no code in this module calls it).
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/unyeco/sportguide/internal/errs"
)

const probeTimeout = 5 * time.Second

// Channel is the middleware's channel projection (spec.md §6).
type Channel struct {
	ID                string   `json:"id"`
	TvgID             string   `json:"tvg_id"`
	Name              string   `json:"name"`
	Logo              string   `json:"logo"`
	GroupID           string   `json:"group_id"`
	AttachedStreamIDs []string `json:"attached_stream_ids"`
}

// Stream is the middleware's stream projection for list_streams.
type Stream struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	M3UAccountID   string `json:"m3u_account_id"`
	M3UAccountName string `json:"m3u_account_name"`
}

// ChannelSpec is the payload for create_channel/update_channel.
type ChannelSpec struct {
	TvgID             string   `json:"tvg_id"`
	Name              string   `json:"name"`
	Logo              string   `json:"logo,omitempty"`
	GroupID           string   `json:"group_id"`
	AttachedStreamIDs []string `json:"attached_stream_ids"`
}

// Client is the narrow surface other packages use to reach the downstream
// middleware: list_channels/create_channel/update_channel/delete_channel/
// list_streams, nothing else.
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a middleware Client. httpClient may be nil, in which case
// a plain *http.Client with default transport is used — the same
// unrestricted-transport idiom as the teacher's NewHTTPClient in
// net/dialer_default.go, since this daemon has no egress-restriction build
// requirement of its own.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errs.Wrap(errs.KindInvariantViolation, "middleware", "marshal request", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errs.Wrap(errs.KindInvariantViolation, "middleware", "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindTransientUpstream, "middleware", fmt.Sprintf("%s %s", method, path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errs.NotFound("middleware", fmt.Sprintf("%s %s", method, path))
	}
	if resp.StatusCode >= 400 {
		return errs.New(errs.KindUpstreamMalformed, "middleware", fmt.Sprintf("%s %s: HTTP %d", method, path, resp.StatusCode))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Wrap(errs.KindUpstreamMalformed, "middleware", "decode response", err)
	}
	return nil
}

// ListChannels returns every channel the middleware currently knows about.
func (c *Client) ListChannels(ctx context.Context) ([]Channel, error) {
	var out struct {
		Channels []Channel `json:"channels"`
	}
	if err := c.do(ctx, http.MethodGet, "/channels", nil, &out); err != nil {
		return nil, err
	}
	return out.Channels, nil
}

// CreateChannel creates a new middleware channel from spec.
func (c *Client) CreateChannel(ctx context.Context, spec ChannelSpec) (Channel, error) {
	var out Channel
	err := c.do(ctx, http.MethodPost, "/channels", spec, &out)
	return out, err
}

// UpdateChannel patches an existing middleware channel by id.
func (c *Client) UpdateChannel(ctx context.Context, id string, spec ChannelSpec) (Channel, error) {
	var out Channel
	err := c.do(ctx, http.MethodPatch, "/channels/"+id, spec, &out)
	return out, err
}

// DeleteChannel removes a middleware channel by id. A not-found response
// is treated as success — the end state (channel absent) already holds.
func (c *Client) DeleteChannel(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, "/channels/"+id, nil, nil)
	if err != nil && errs.IsKind(err, errs.KindNotFound) {
		return nil
	}
	return err
}

// ListStreams returns streams matching filter (an opaque query-param map).
func (c *Client) ListStreams(ctx context.Context, filter map[string]string) ([]Stream, error) {
	path := "/streams"
	sep := "?"
	for k, v := range filter {
		path += sep + k + "=" + v
		sep = "&"
	}
	var out struct {
		Streams []Stream `json:"streams"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Streams, nil
}

// Probe reports whether the middleware's base URL is reachable, mirroring
// services/sports/source_registry.go's probeURL HEAD-request health check.
func (c *Client) Probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, c.baseURL+"/health", nil)
	if err != nil {
		return errs.Wrap(errs.KindInvariantViolation, "middleware", "build probe request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindTransientUpstream, "middleware", "probe", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return errs.New(errs.KindTransientUpstream, "middleware", fmt.Sprintf("probe: HTTP %d", resp.StatusCode))
	}
	return nil
}
