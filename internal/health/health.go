// Package health implements the liveness probes used by both leader-election
// roles: a raw TCP dial for back-end cluster peers and an HTTP GET for
// front-end siblings' /healthz endpoint. Both are pure "bool, with a
// deadline" checks; any transport or timeout error is a liveness failure,
// never a fatal one.
package health

import (
	"context"
	"net"
	"net/http"
	"time"
)

// PingTCP reports whether addr accepts a TCP connection within deadline. This
// is the back-end cluster peer probe.
func PingTCP(ctx context.Context, addr string, deadline time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// PingHTTP reports whether a GET to url+"/healthz" returns 200 within
// deadline. This is the front-end sibling probe.
func PingHTTP(ctx context.Context, client *http.Client, url string, deadline time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
