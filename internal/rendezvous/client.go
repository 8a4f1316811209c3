package rendezvous

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vovakirdan/nyatetris/internal/relay"
)

// Client talks to a rendezvous server.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) peerURL(id string) string {
	return c.base + "/peers/" + url.PathEscape(id)
}

// Claim publishes url under id. Returns relay.ErrAddressTaken when another
// URL already holds it.
func (c *Client) Claim(ctx context.Context, id, target string) error {
	body, err := json.Marshal(claimRequest{URL: target})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.peerURL(id), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("rendezvous: claim %s: %w", id, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rendezvous: claim %s: %w", id, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusConflict:
		return fmt.Errorf("rendezvous: claim %s: %w", id, relay.ErrAddressTaken)
	default:
		return fmt.Errorf("rendezvous: claim %s: unexpected status %s", id, resp.Status)
	}
}

// Resolve returns the URL published under id, or relay.ErrPeerUnreachable.
func (c *Client) Resolve(ctx context.Context, id string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.peerURL(id), nil)
	if err != nil {
		return "", fmt.Errorf("rendezvous: resolve %s: %w", id, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("rendezvous: resolve %s: %w", id, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var rec Record
		if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
			return "", fmt.Errorf("rendezvous: resolve %s: decode: %w", id, err)
		}
		return rec.URL, nil
	case http.StatusNotFound:
		return "", fmt.Errorf("rendezvous: resolve %s: %w", id, relay.ErrPeerUnreachable)
	default:
		return "", fmt.Errorf("rendezvous: resolve %s: unexpected status %s", id, resp.Status)
	}
}

// Release drops the claim on id.
func (c *Client) Release(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.peerURL(id), nil)
	if err != nil {
		return fmt.Errorf("rendezvous: release %s: %w", id, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rendezvous: release %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("rendezvous: release %s: unexpected status %s", id, resp.Status)
	}
	return nil
}
