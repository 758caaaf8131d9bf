package probes

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
)

const maxHTMLBytes = 512 * 1024

// fetchHTML downloads the site root for HTML parsing probes, trying
// HTTPS before HTTP. The body is capped at maxHTMLBytes.
func fetchHTML(ctx context.Context, domain string, cfg Config) ([]byte, string, error) {
	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}

	var lastErr error
	for _, scheme := range []string{"https", "http"} {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, scheme+"://"+domain+"/", nil)
		if err != nil {
			lastErr = err
			continue
		}
		req.Header.Set("User-Agent", cfg.UserAgent)

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 400 {
			resp.Body.Close()
			lastErr = fmt.Errorf("fetching %s: status %d", domain, resp.StatusCode)
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTMLBytes))
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		return body, resp.Request.URL.String(), nil
	}

	return nil, "", lastErr
}
