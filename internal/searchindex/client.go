package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/surveysense/backend/internal/metrics"
	"github.com/surveysense/backend/pkg/logger"
)

const (
	// uploadBatchSize is the document cap per index write call.
	uploadBatchSize = 10
	// clearPageSize is the id enumeration page used by ClearAll.
	clearPageSize = 1000
)

// Document is one indexed (response, sentiment) observation.
type Document struct {
	ID        string `json:"id"`
	Column    string `json:"column"`
	Sentiment string `json:"sentiment"`
	Text      string `json:"text"`
}

// Passage is the read projection of a Document returned by Search.
type Passage struct {
	Column    string `json:"column"`
	Sentiment string `json:"sentiment"`
	Text      string `json:"text"`
}

// BatchResult carries the raw index response for one upsert batch.
// A transport failure is recorded with StatusCode 0.
type BatchResult struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
}

type SearchQuery struct {
	Search          string
	Top             int
	ColumnFilter    string
	SentimentFilter string
}

// Client talks to a hosted search index over its REST surface.
type Client struct {
	endpoint      string
	apiKey        string
	index         string
	apiVersion    string
	queryLanguage string
	httpClient    *http.Client
}

func NewClient(endpoint, apiKey, index, apiVersion, queryLanguage string, timeoutSec int) *Client {
	logger.Info("Search index client initialized",
		zap.String("endpoint", endpoint),
		zap.String("index", index),
	)

	return &Client{
		endpoint:      endpoint,
		apiKey:        apiKey,
		index:         index,
		apiVersion:    apiVersion,
		queryLanguage: queryLanguage,
		httpClient:    &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}
}

type indexAction struct {
	Action    string `json:"@search.action"`
	ID        string `json:"id"`
	Column    string `json:"column,omitempty"`
	Sentiment string `json:"sentiment,omitempty"`
	Text      string `json:"text,omitempty"`
}

type indexPayload struct {
	Value []indexAction `json:"value"`
}

// Upsert writes documents in batches of ten with a mergeOrUpload action.
// Every batch yields one BatchResult; a failed batch never aborts the
// batches after it.
func (c *Client) Upsert(ctx context.Context, docs []Document) []BatchResult {
	results := make([]BatchResult, 0, (len(docs)+uploadBatchSize-1)/uploadBatchSize)

	for start := 0; start < len(docs); start += uploadBatchSize {
		end := start + uploadBatchSize
		if end > len(docs) {
			end = len(docs)
		}

		actions := make([]indexAction, 0, end-start)
		for _, doc := range docs[start:end] {
			actions = append(actions, indexAction{
				Action:    "mergeOrUpload",
				ID:        doc.ID,
				Column:    doc.Column,
				Sentiment: doc.Sentiment,
				Text:      doc.Text,
			})
		}

		result := c.postIndexBatch(ctx, actions)
		if result.StatusCode >= 200 && result.StatusCode < 300 {
			metrics.IndexBatches.WithLabelValues("ok").Inc()
		} else {
			metrics.IndexBatches.WithLabelValues("error").Inc()
			logger.Warn("Index batch failed",
				zap.Int("status", result.StatusCode),
				zap.Int("batch_start", start),
			)
		}
		results = append(results, result)
	}

	return results
}

// ClearAll wipes the index: enumerate up to 1000 ids at a time and delete
// them until none remain. The first delete failure stops the loop; the
// count deleted before the failure is still reported.
func (c *Client) ClearAll(ctx context.Context) (int, error) {
	total := 0

	for {
		ids, err := c.listIDs(ctx)
		if err != nil {
			return total, fmt.Errorf("failed to enumerate ids: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		if err := c.deleteByIDs(ctx, ids); err != nil {
			return total, fmt.Errorf("failed to delete batch: %w", err)
		}
		total += len(ids)
	}

	logger.Info("Index cleared", zap.Int("deleted", total))
	return total, nil
}

// ListColumns samples up to limit documents and returns the distinct
// non-empty column names seen, in first-seen order. Best effort: a large
// index may hold columns outside the sample.
func (c *Client) ListColumns(ctx context.Context, limit int) ([]string, error) {
	body := map[string]interface{}{
		"search": "*",
		"top":    limit,
		"select": "column",
	}

	var parsed struct {
		Value []struct {
			Column string `json:"column"`
		} `json:"value"`
	}
	if err := c.postSearch(ctx, body, &parsed); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(parsed.Value))
	columns := make([]string, 0, len(parsed.Value))
	for _, v := range parsed.Value {
		if v.Column == "" {
			continue
		}
		if _, ok := seen[v.Column]; ok {
			continue
		}
		seen[v.Column] = struct{}{}
		columns = append(columns, v.Column)
	}

	return columns, nil
}

// Search runs one semantic query. Filters narrow by stored fields with
// odata equality clauses. A non-success status is an error; callers treat
// it as zero evidence.
func (c *Client) Search(ctx context.Context, query SearchQuery) ([]Passage, error) {
	search := strings.TrimSpace(query.Search)
	if search == "" {
		search = "*"
	}

	body := map[string]interface{}{
		"search":                search,
		"top":                   query.Top,
		"queryType":             "semantic",
		"queryLanguage":         c.queryLanguage,
		"semanticConfiguration": "default",
	}
	if filter := buildFilter(query); filter != "" {
		body["filter"] = filter
	}

	var parsed struct {
		Value []Passage `json:"value"`
	}
	if err := c.postSearch(ctx, body, &parsed); err != nil {
		return nil, err
	}

	return parsed.Value, nil
}

func buildFilter(query SearchQuery) string {
	clauses := make([]string, 0, 2)
	if query.ColumnFilter != "" {
		clauses = append(clauses, fmt.Sprintf("column eq '%s'", escapeFilterValue(query.ColumnFilter)))
	}
	if query.SentimentFilter != "" {
		clauses = append(clauses, fmt.Sprintf("sentiment eq '%s'", escapeFilterValue(query.SentimentFilter)))
	}
	return strings.Join(clauses, " and ")
}

// odata string literals escape single quotes by doubling them.
func escapeFilterValue(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

func (c *Client) listIDs(ctx context.Context) ([]string, error) {
	body := map[string]interface{}{
		"search": "*",
		"top":    clearPageSize,
		"select": "id",
	}

	var parsed struct {
		Value []struct {
			ID string `json:"id"`
		} `json:"value"`
	}
	if err := c.postSearch(ctx, body, &parsed); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(parsed.Value))
	for _, v := range parsed.Value {
		if v.ID != "" {
			ids = append(ids, v.ID)
		}
	}
	return ids, nil
}

func (c *Client) deleteByIDs(ctx context.Context, ids []string) error {
	actions := make([]indexAction, 0, len(ids))
	for _, id := range ids {
		actions = append(actions, indexAction{Action: "delete", ID: id})
	}

	result := c.postIndexBatch(ctx, actions)
	if result.StatusCode < 200 || result.StatusCode >= 300 {
		return fmt.Errorf("delete returned status %d: %s", result.StatusCode, result.Body)
	}
	return nil
}

func (c *Client) postIndexBatch(ctx context.Context, actions []indexAction) BatchResult {
	payload, err := json.Marshal(indexPayload{Value: actions})
	if err != nil {
		return BatchResult{Body: err.Error()}
	}

	url := fmt.Sprintf("%s/indexes/%s/docs/index?api-version=%s", c.endpoint, c.index, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return BatchResult{Body: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return BatchResult{Body: err.Error()}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	return BatchResult{StatusCode: resp.StatusCode, Body: string(raw)}
}

func (c *Client) postSearch(ctx context.Context, body map[string]interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal search request: %w", err)
	}

	url := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s", c.endpoint, c.index, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode search response: %w", err)
	}

	return nil
}
