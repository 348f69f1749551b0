package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// HTTPSink publishes results to a remote key-value service under
// /kv/outlines/<slug>-<doc id>.
type HTTPSink struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPSink(baseURL, apiKey string) *HTTPSink {
	return &HTTPSink{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// nodeRequest is the body for PUT /kv/{key}.
type nodeRequest struct {
	Value  any    `json:"value"`
	Source string `json:"source,omitempty"`
}

// Key returns the remote key for a record.
func Key(rec Record) string {
	base := filepath.Base(rec.Filename)
	slug := Slugify(strings.TrimSuffix(base, filepath.Ext(base)))
	if slug == "" {
		return "outlines/" + rec.DocID
	}
	return "outlines/" + slug + "-" + rec.DocID
}

func (c *HTTPSink) Put(ctx context.Context, rec Record) error {
	key := Key(rec)
	body, err := json.Marshal(nodeRequest{Value: rec.Result, Source: rec.Filename})
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/kv/"+key, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("put node: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	return fmt.Errorf("put node %s: status %d: %s", key, resp.StatusCode, string(respBody))
}

// Close releases idle connections.
func (c *HTTPSink) Close() {
	c.httpClient.CloseIdleConnections()
}
