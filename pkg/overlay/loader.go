package overlay

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPLoader checks that an image URL answers with a success status before
// browser sources are told to fade it in.
type HTTPLoader struct {
	Client *http.Client
}

// NewHTTPLoader returns a loader with a bounded request timeout.
func NewHTTPLoader() *HTTPLoader {
	return &HTTPLoader{Client: &http.Client{Timeout: 10 * time.Second}}
}

// Load issues a HEAD request and falls back to GET for servers rejecting it.
func (l *HTTPLoader) Load(ctx context.Context, url string) error {
	status, err := l.probe(ctx, http.MethodHead, url)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = l.probe(ctx, http.MethodGet, url)
	}
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("HTTP %d", status)
	}
	return nil
}

func (l *HTTPLoader) probe(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}
