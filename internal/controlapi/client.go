package controlapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrEmptySnapshot is returned by LoadSnapshot when the remote node answered
// but has never committed a snapshot. Callers distinguish this from a
// transport failure: an empty store on a fresh cluster is normal.
var ErrEmptySnapshot = errors.New("remote store is empty")

// Client calls a remote node's Control API.
// Used by internal/cluster (leader -> backups, adapted to
// replication.PeerClient) and internal/gateway (front-end -> pinned back-end
// leader).
type Client struct {
	baseURL string
	hc      *http.Client
}

// NewClient wraps baseURL ("http://host:port") with deadline as the HTTP
// client timeout; individual calls can still pass a shorter context deadline.
func NewClient(baseURL string, deadline time.Duration) *Client {
	return &Client{baseURL: baseURL, hc: &http.Client{Timeout: deadline}}
}

// BaseURL returns the address this client talks to, for gateway-side
// leader-change detection.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, respBody any) error {
	var body bytes.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		body = *bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &body)
	if err != nil {
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if respBody == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(respBody)
}

// GetLeaderInfo calls GET /rpc/get-leader.
func (c *Client) GetLeaderInfo(ctx context.Context) (string, error) {
	var resp leaderInfoResponse
	if err := c.doJSON(ctx, http.MethodGet, "/rpc/get-leader", nil, &resp); err != nil {
		return "", err
	}
	return resp.Info, nil
}

// SaveSnapshot calls POST /rpc/save-snapshot.
func (c *Client) SaveSnapshot(ctx context.Context, data []byte) (bool, error) {
	var resp successResponse
	if err := c.doJSON(ctx, http.MethodPost, "/rpc/save-snapshot", saveSnapshotRequest{SnapshotBytes: data}, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

// ReplicateSaveSnapshot calls POST /rpc/replicate.
func (c *Client) ReplicateSaveSnapshot(ctx context.Context, data []byte) (bool, error) {
	var resp successResponse
	if err := c.doJSON(ctx, http.MethodPost, "/rpc/replicate", saveSnapshotRequest{SnapshotBytes: data}, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

// LoadSnapshot calls GET /rpc/load-snapshot.
func (c *Client) LoadSnapshot(ctx context.Context) ([]byte, error) {
	var resp loadSnapshotResponse
	if err := c.doJSON(ctx, http.MethodGet, "/rpc/load-snapshot", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("load-snapshot from %s: %w", c.baseURL, ErrEmptySnapshot)
	}
	return resp.SnapshotBytes, nil
}

// CheckVersion calls POST /rpc/check-version.
func (c *Client) CheckVersion(ctx context.Context, version string) (bool, string, error) {
	var resp checkVersionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/rpc/check-version", checkVersionRequest{Version: version}, &resp); err != nil {
		return false, "", err
	}
	return resp.Success, resp.Message, nil
}

// Ping calls GET /rpc/ping.
func (c *Client) Ping(ctx context.Context) (bool, error) {
	var resp pingResponse
	if err := c.doJSON(ctx, http.MethodGet, "/rpc/ping", nil, &resp); err != nil {
		return false, err
	}
	return resp.Alive, nil
}
