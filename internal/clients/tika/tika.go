// Package tika is a client for the Apache Tika server REST API.
package tika

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/liquidinvestigations/hoover4/internal/platform/envutil"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New() *Client {
	return &Client{
		BaseURL: envutil.Str("TIKA_URL", "http://tika:9998"),
		HTTP:    &http.Client{Timeout: 50 * time.Minute},
	}
}

// ExtractText runs the full parser chain and returns the plain text body.
func (c *Client) ExtractText(ctx context.Context, filePath, contentType string) (string, error) {
	resp, err := c.put(ctx, "/tika", filePath, contentType, "text/plain")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("tika text: status %d: %s", resp.StatusCode, msg)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("tika text read: %w", err)
	}
	return string(body), nil
}

// Metadata returns the document metadata as a flat JSON object. Tika emits
// multi-valued fields as arrays; callers handle both shapes.
func (c *Client) Metadata(ctx context.Context, filePath, contentType string) (map[string]interface{}, error) {
	resp, err := c.put(ctx, "/meta", filePath, contentType, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tika meta: status %d: %s", resp.StatusCode, msg)
	}
	var meta map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("tika meta decode: %w", err)
	}
	return meta, nil
}

func (c *Client) put(ctx context.Context, endpoint, filePath, contentType, accept string) (*http.Response, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.BaseURL+endpoint, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", accept)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("tika %s: %w", endpoint, err)
	}
	f.Close()
	return resp, nil
}
