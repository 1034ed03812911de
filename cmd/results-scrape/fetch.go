package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

const userAgent = "shootingboard-scrape/1.0 (+https://github.com/poku-e/shootingboard)"

// backoffs are the waits before each attempt; the first is immediate.
var backoffs = []time.Duration{0, 500 * time.Millisecond, 1 * time.Second, 2 * time.Second}

func httpClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// fetch GETs rawURL, retrying network errors, 429 and 5xx responses. It
// returns the body and the final URL after redirects.
func fetch(ctx context.Context, client *http.Client, rawURL string) ([]byte, *url.URL, error) {
	var resp *http.Response
	for i, d := range backoffs {
		if d > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

		last := i == len(backoffs)-1
		resp, err = client.Do(req)
		if err != nil {
			if ctx.Err() != nil || last {
				return nil, nil, err
			}
			slog.Debug("fetch failed, retrying", "url", rawURL, "attempt", i+1, "err", err)
			continue
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			_ = resp.Body.Close()
			if last {
				return nil, nil, fmt.Errorf("server error: %s", resp.Status)
			}
			slog.Debug("fetch got transient status, retrying", "url", rawURL, "attempt", i+1, "status", resp.StatusCode)
			continue
		}
		break
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, string(b))
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return b, resp.Request.URL, nil
}
