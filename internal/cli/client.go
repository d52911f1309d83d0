package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/ragstore/internal/models"
)

// Client talks to a running ragstore server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL, e.g. "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}, want int) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// AddText sends text to the server and returns the number of chunks stored.
func (c *Client) AddText(ctx context.Context, text, source string) (int, error) {
	var out struct {
		Chunks int `json:"chunks"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/texts", models.TextInput{Text: text, Source: source}, &out, http.StatusCreated)
	return out.Chunks, err
}

// Search runs a similarity search on the server.
func (c *Client) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	var out models.SearchResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/search", query, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Context returns the RAG context block for query.
func (c *Client) Context(ctx context.Context, query *models.SearchQuery) (string, error) {
	var out struct {
		Context string `json:"context"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/context", query, &out, http.StatusOK)
	return out.Context, err
}

// Sources lists the distinct source labels in the server's store.
func (c *Client) Sources(ctx context.Context) ([]string, error) {
	var out struct {
		Sources []string `json:"sources"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/sources", nil, &out, http.StatusOK)
	return out.Sources, err
}

// Clear empties the server's store.
func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/store", nil, nil, http.StatusOK)
}

// Status fetches the server's store status.
func (c *Client) Status(ctx context.Context) (*models.StoreStatus, error) {
	var out models.StoreStatus
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// WatchDirectories lists the server's watched directories.
func (c *Client) WatchDirectories(ctx context.Context) ([]string, error) {
	var out struct {
		Directories []string `json:"directories"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/watch/directories", nil, &out, http.StatusOK)
	return out.Directories, err
}

// AddWatchDirectory asks the server to watch path, ingesting existing files.
func (c *Client) AddWatchDirectory(ctx context.Context, path string) error {
	body := map[string]interface{}{"path": path, "sync": true}
	return c.do(ctx, http.MethodPost, "/api/v1/watch/directories", body, nil, http.StatusCreated)
}

// RemoveWatchDirectory stops watching path.
func (c *Client) RemoveWatchDirectory(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/watch/directories?path="+url.QueryEscape(path), nil, nil, http.StatusOK)
}
