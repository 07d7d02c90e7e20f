package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound indicates the requested document does not exist.
var ErrNotFound = errors.New("docstore: document not found")

// Config holds document store client configuration.
type Config struct {
	// BaseURL is the REST endpoint root, e.g. "https://firestore.googleapis.com/v1".
	BaseURL string
	// Project is the project identifier the databases live under.
	Project string
	// APIKey is sent on every request as the X-Goog-Api-Key header.
	APIKey string
	// Timeout bounds each request. Zero means 15 seconds.
	Timeout time.Duration
	// HTTPClient overrides the transport, mainly for tests. When nil a
	// client with Timeout is used.
	HTTPClient *http.Client
}

// Client provides typed access to the document store over its REST API.
// All methods are safe for concurrent use.
type Client struct {
	baseURL string
	project string
	apiKey  string
	http    *http.Client
}

// New creates a document store client.
func New(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://firestore.googleapis.com/v1"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: base,
		project: cfg.Project,
		apiKey:  cfg.APIKey,
		http:    hc,
	}
}

// documentsRoot is the resource prefix shared by every collection path.
func (c *Client) documentsRoot() string {
	return fmt.Sprintf("%s/projects/%s/databases/(default)/documents", c.baseURL, c.project)
}

// Get fetches one document by collection and ID.
func (c *Client) Get(ctx context.Context, collection, id string) (*Document, error) {
	var doc Document
	u := fmt.Sprintf("%s/%s/%s", c.documentsRoot(), collection, url.PathEscape(id))
	if err := c.do(ctx, http.MethodGet, u, nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Create stores a new document under collection with the caller-chosen ID.
// The store rejects the call when a document with that ID already exists.
func (c *Client) Create(ctx context.Context, collection, id string, fields Fields) (*Document, error) {
	u := fmt.Sprintf("%s/%s?documentId=%s", c.documentsRoot(), collection, url.QueryEscape(id))
	body, err := json.Marshal(Document{Fields: fields})
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := c.do(ctx, http.MethodPost, u, body, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Patch updates only the named fields of an existing document, leaving the
// rest untouched. The update mask is built from the keys of fields.
func (c *Client) Patch(ctx context.Context, collection, id string, fields Fields) (*Document, error) {
	q := url.Values{}
	for key := range fields {
		q.Add("updateMask.fieldPaths", key)
	}
	u := fmt.Sprintf("%s/%s/%s?%s", c.documentsRoot(), collection, url.PathEscape(id), q.Encode())
	body, err := json.Marshal(Document{Fields: fields})
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := c.do(ctx, http.MethodPatch, u, body, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Set writes the full document at collection/id, creating it when missing
// and replacing every field when present. The store treats an unmasked
// patch as a whole-document write.
func (c *Client) Set(ctx context.Context, collection, id string, fields Fields) (*Document, error) {
	u := fmt.Sprintf("%s/%s/%s", c.documentsRoot(), collection, url.PathEscape(id))
	body, err := json.Marshal(Document{Fields: fields})
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := c.do(ctx, http.MethodPatch, u, body, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Delete removes one document. Deleting a missing document is not an error
// on the wire, so callers that need existence semantics should Get first.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	u := fmt.Sprintf("%s/%s/%s", c.documentsRoot(), collection, url.PathEscape(id))
	return c.do(ctx, http.MethodDelete, u, nil, nil)
}

// List returns every document in a collection, following pagination until
// the store reports no next page.
func (c *Client) List(ctx context.Context, collection string) ([]Document, error) {
	var out []Document
	pageToken := ""
	for {
		u := fmt.Sprintf("%s/%s?pageSize=300", c.documentsRoot(), collection)
		if pageToken != "" {
			u += "&pageToken=" + url.QueryEscape(pageToken)
		}
		var page struct {
			Documents     []Document `json:"documents"`
			NextPageToken string     `json:"nextPageToken"`
		}
		if err := c.do(ctx, http.MethodGet, u, nil, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Documents...)
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

// QueryEqual returns the documents in the named child collection of parent
// whose field equals value. Parent is a document path relative to the root,
// or "" to query a top-level collection. Only string equality is needed by
// the engine, so that is all this builds.
func (c *Client) QueryEqual(ctx context.Context, parent, collection, field, value string) ([]Document, error) {
	sq := map[string]any{
		"from": []map[string]any{{"collectionId": collection}},
		"where": map[string]any{
			"fieldFilter": map[string]any{
				"field": map[string]any{"fieldPath": field},
				"op":    "EQUAL",
				"value": String(value),
			},
		},
	}
	return c.runQuery(ctx, parent, sq)
}

// QueryAllEqual returns the documents in the named child collection of
// parent matching every (field, value) pair at once. Limit bounds the
// result when positive.
func (c *Client) QueryAllEqual(ctx context.Context, parent, collection string, filters map[string]string, limit int) ([]Document, error) {
	clauses := make([]map[string]any, 0, len(filters))
	for field, value := range filters {
		clauses = append(clauses, map[string]any{
			"fieldFilter": map[string]any{
				"field": map[string]any{"fieldPath": field},
				"op":    "EQUAL",
				"value": String(value),
			},
		})
	}
	sq := map[string]any{
		"from": []map[string]any{{"collectionId": collection}},
		"where": map[string]any{
			"compositeFilter": map[string]any{
				"op":      "AND",
				"filters": clauses,
			},
		},
	}
	if limit > 0 {
		sq["limit"] = limit
	}
	return c.runQuery(ctx, parent, sq)
}

// QueryOrdered returns the documents in the named child collection of
// parent sorted by orderField, descending when desc is set.
func (c *Client) QueryOrdered(ctx context.Context, parent, collection, orderField string, desc bool) ([]Document, error) {
	direction := "ASCENDING"
	if desc {
		direction = "DESCENDING"
	}
	sq := map[string]any{
		"from": []map[string]any{{"collectionId": collection}},
		"orderBy": []map[string]any{{
			"field":     map[string]any{"fieldPath": orderField},
			"direction": direction,
		}},
	}
	return c.runQuery(ctx, parent, sq)
}

func (c *Client) runQuery(ctx context.Context, parent string, structuredQuery map[string]any) ([]Document, error) {
	body, err := json.Marshal(map[string]any{"structuredQuery": structuredQuery})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	u := c.documentsRoot() + ":runQuery"
	if parent != "" {
		u = c.documentsRoot() + "/" + parent + ":runQuery"
	}
	var rows []struct {
		Document *Document `json:"document"`
	}
	if err := c.do(ctx, http.MethodPost, u, body, &rows); err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(rows))
	for _, row := range rows {
		if row.Document != nil {
			out = append(out, *row.Document)
		}
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, body []byte, dest any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Goog-Api-Key", c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("docstore request: %w", err)
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if res.StatusCode >= 400 {
		return fmt.Errorf("docstore error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(payload)))
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
