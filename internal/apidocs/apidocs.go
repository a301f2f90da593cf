// Package apidocs fetches external API documentation and filters it down to
// the paths relevant to one edit request.
package apidocs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// maxDocumentBytes caps how much of the documentation response is read.
const maxDocumentBytes = 4 << 20

// Operation is one HTTP method on a documented path.
type Operation struct {
	Summary     string `json:"summary,omitempty"`
	Description string `json:"description,omitempty"`
}

// Document is the subset of an OpenAPI document kiln uses.
type Document struct {
	Paths map[string]map[string]Operation `json:"paths"`
}

// Endpoint is one documented method+path pair.
type Endpoint struct {
	Method  string
	Path    string
	Summary string
}

// Client fetches the documentation document.
type Client struct {
	URL        string
	HTTPClient *http.Client
}

// NewClient returns a client with the given fetch timeout.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{URL: url, HTTPClient: &http.Client{Timeout: timeout}}
}

// Fetch downloads and decodes the document.
func (c *Client) Fetch(ctx context.Context) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build api docs request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch api docs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch api docs: unexpected status %d", resp.StatusCode)
	}

	var doc Document
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDocumentBytes)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode api docs: %w", err)
	}
	return &doc, nil
}

// Endpoints flattens the document into a path-then-method sorted list.
func (d *Document) Endpoints() []Endpoint {
	var out []Endpoint
	for path, methods := range d.Paths {
		for method, op := range methods {
			summary := op.Summary
			if summary == "" {
				summary = op.Description
			}
			out = append(out, Endpoint{Method: strings.ToUpper(method), Path: path, Summary: summary})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// Render formats endpoints as a compact block for a prompt.
func Render(endpoints []Endpoint) string {
	if len(endpoints) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Available API endpoints:\n")
	for _, e := range endpoints {
		fmt.Fprintf(&b, "- %s %s", e.Method, e.Path)
		if e.Summary != "" {
			fmt.Fprintf(&b, ": %s", e.Summary)
		}
		b.WriteString("\n")
	}
	return b.String()
}
