// Package qdrant is a VectorIndex backed by a Qdrant server over its REST API.
//
// Qdrant has no notion of an embedding model, so a collection's model
// version is taken from its stored points. An empty collection accepts
// whichever model writes to it first.
package qdrant

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
	"sync"
	"time"

	"github.com/custodia-labs/groundwork/internal/adapters/driven/storage/vectors"
	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/retry"
)

const providerName = "qdrant"

// Config configures the client.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	Retry   retry.Policy
}

// Index is a driven.VectorIndex over Qdrant.
type Index struct {
	url    string
	apiKey string
	client *http.Client
	policy retry.Policy
	docs   vectors.KeyedMutex

	mu      sync.RWMutex
	configs map[string]domain.CollectionConfig
}

var _ driven.VectorIndex = (*Index)(nil)

// New creates a client for the server at cfg.URL.
func New(cfg Config) (*Index, error) {
	base := strings.TrimRight(cfg.URL, "/")
	if _, err := url.ParseRequestURI(base); err != nil || base == "" {
		return nil, domain.NewInvalidInput("index.qdrant_url", "invalid URL %q", cfg.URL)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	policy := cfg.Retry
	policy.Provider = providerName
	return &Index{
		url:     base,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		policy:  policy,
		configs: make(map[string]domain.CollectionConfig),
	}, nil
}

var metricNames = map[domain.DistanceMetric]string{
	domain.MetricCosine:    "Cosine",
	domain.MetricDot:       "Dot",
	domain.MetricEuclidean: "Euclid",
}

func metricFromName(name string) domain.DistanceMetric {
	for m, n := range metricNames {
		if strings.EqualFold(n, name) {
			return m
		}
	}
	return domain.DistanceMetric(strings.ToLower(name))
}

// EnsureCollection creates the collection or verifies an existing one.
func (q *Index) EnsureCollection(ctx context.Context, cfg domain.CollectionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	existing, err := q.fetchConfig(ctx, cfg.Name)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		body := map[string]any{
			"vectors": map[string]any{
				"size":     cfg.Dimension,
				"distance": metricNames[cfg.Metric],
			},
		}
		if err := q.call(ctx, "create collection", http.MethodPut, "/collections/"+url.PathEscape(cfg.Name), body, nil); err != nil {
			return err
		}
		for _, field := range []string{domain.FilterFieldModule, domain.FilterFieldDocumentID, domain.FilterFieldSource} {
			index := map[string]any{"field_name": field, "field_schema": "keyword"}
			if err := q.call(ctx, "create payload index", http.MethodPut,
				"/collections/"+url.PathEscape(cfg.Name)+"/index?wait=true", index, nil); err != nil {
				return err
			}
		}
	case err != nil:
		return err
	default:
		if existing.ModelVersion == "" {
			existing.ModelVersion = cfg.ModelVersion
		}
		if err := existing.CheckCompatible(cfg); err != nil {
			return err
		}
	}

	q.mu.Lock()
	q.configs[cfg.Name] = cfg
	q.mu.Unlock()
	return nil
}

// CollectionInfo returns the collection config and point count.
func (q *Index) CollectionInfo(ctx context.Context, name string) (*domain.CollectionInfo, error) {
	cfg, err := q.fetchConfig(ctx, name)
	if err != nil {
		return nil, err
	}
	var out struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := q.call(ctx, "count", http.MethodPost, "/collections/"+url.PathEscape(name)+"/points/count",
		map[string]any{"exact": true}, &out); err != nil {
		return nil, err
	}
	return &domain.CollectionInfo{Config: *cfg, Entries: out.Result.Count}, nil
}

// ReplaceDocument upserts the points, then deletes the document's other points.
func (q *Index) ReplaceDocument(ctx context.Context, collection, documentID string, entries []domain.IndexEntry) error {
	unlock := q.docs.Lock(documentID)
	defer unlock()

	cfg, err := q.config(ctx, collection, entries)
	if err != nil {
		return err
	}
	if err := vectors.CheckEntries(*cfg, documentID, entries); err != nil {
		return err
	}

	path := "/collections/" + url.PathEscape(collection)
	keep := make([]string, 0, len(entries))
	if len(entries) > 0 {
		points := make([]map[string]any, len(entries))
		for i, e := range entries {
			points[i] = map[string]any{
				"id":      e.ID,
				"vector":  e.Vector,
				"payload": e.Payload.Map(),
			}
			keep = append(keep, e.ID)
		}
		if err := q.call(ctx, "upsert", http.MethodPut, path+"/points?wait=true",
			map[string]any{"points": points}, nil); err != nil {
			return err
		}
	}

	filter := map[string]any{
		"must": []any{matchClause(domain.FilterFieldDocumentID, []string{documentID})},
	}
	if len(keep) > 0 {
		filter["must_not"] = []any{map[string]any{"has_id": keep}}
	}
	return q.call(ctx, "delete", http.MethodPost, path+"/points/delete?wait=true",
		map[string]any{"filter": filter}, nil)
}

// DeleteDocument removes every point belonging to documentID.
func (q *Index) DeleteDocument(ctx context.Context, collection, documentID string) error {
	unlock := q.docs.Lock(documentID)
	defer unlock()

	filter := map[string]any{
		"must": []any{matchClause(domain.FilterFieldDocumentID, []string{documentID})},
	}
	return q.call(ctx, "delete", http.MethodPost, "/collections/"+url.PathEscape(collection)+"/points/delete?wait=true",
		map[string]any{"filter": filter}, nil)
}

// Search runs a filtered nearest-neighbour query on the server.
func (q *Index) Search(ctx context.Context, collection string, query []float32, limit int, filter *domain.MetadataFilter) ([]driven.VectorHit, error) {
	cfg, err := q.config(ctx, collection, nil)
	if err != nil {
		return nil, err
	}
	if err := vectors.CheckQuery(*cfg, query); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	req := map[string]any{
		"vector":       query,
		"limit":        limit,
		"with_payload": true,
	}
	if !filter.IsEmpty() {
		must := make([]any, 0, len(filter.Clauses))
		for _, c := range filter.Clauses {
			if _, ok := (domain.Payload{}).Field(c.Field); !ok {
				return nil, domain.NewInvalidInput("metadata_filter", "unknown field %q", c.Field)
			}
			must = append(must, matchClause(c.Field, c.Values))
		}
		req["filter"] = map[string]any{"must": must}
	}

	var out struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := q.call(ctx, "search", http.MethodPost, "/collections/"+url.PathEscape(collection)+"/points/search", req, &out); err != nil {
		return nil, err
	}

	hits := make([]driven.VectorHit, 0, len(out.Result))
	for _, r := range out.Result {
		score := r.Score
		if cfg.Metric == domain.MetricEuclidean {
			score = -score
		}
		hits = append(hits, driven.VectorHit{
			EntryID: fmt.Sprint(r.ID),
			Payload: domain.PayloadFromMap(r.Payload),
			Score:   score,
		})
	}
	return vectors.Rank(hits, limit), nil
}

// Close releases idle connections.
func (q *Index) Close() error {
	q.client.CloseIdleConnections()
	return nil
}

// config returns the cached config for collection, fetching it on first use.
// A collection with no points takes its model version from entries.
func (q *Index) config(ctx context.Context, collection string, entries []domain.IndexEntry) (*domain.CollectionConfig, error) {
	q.mu.RLock()
	cfg, ok := q.configs[collection]
	q.mu.RUnlock()
	if ok {
		return &cfg, nil
	}

	fetched, err := q.fetchConfig(ctx, collection)
	if err != nil {
		return nil, err
	}
	if fetched.ModelVersion == "" && len(entries) > 0 {
		fetched.ModelVersion = entries[0].Payload.ModelVersion
	}
	if fetched.ModelVersion != "" {
		q.mu.Lock()
		q.configs[collection] = *fetched
		q.mu.Unlock()
	}
	return fetched, nil
}

// fetchConfig reads dimension and metric from the server and the model
// version from one stored point.
func (q *Index) fetchConfig(ctx context.Context, name string) (*domain.CollectionConfig, error) {
	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size     int    `json:"size"`
						Distance string `json:"distance"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := q.call(ctx, "get collection", http.MethodGet, "/collections/"+url.PathEscape(name), nil, &info); err != nil {
		return nil, err
	}

	var scroll struct {
		Result struct {
			Points []struct {
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	req := map[string]any{
		"limit":        1,
		"with_payload": []string{domain.PayloadKeyModelVersion},
		"with_vector":  false,
	}
	if err := q.call(ctx, "scroll", http.MethodPost, "/collections/"+url.PathEscape(name)+"/points/scroll", req, &scroll); err != nil {
		return nil, err
	}

	cfg := &domain.CollectionConfig{
		Name:      name,
		Dimension: info.Result.Config.Params.Vectors.Size,
		Metric:    metricFromName(info.Result.Config.Params.Vectors.Distance),
	}
	if pts := scroll.Result.Points; len(pts) > 0 {
		cfg.ModelVersion, _ = pts[0].Payload[domain.PayloadKeyModelVersion].(string)
	}
	return cfg, nil
}

func matchClause(field string, values []string) map[string]any {
	if len(values) == 1 {
		return map[string]any{"key": field, "match": map[string]any{"value": values[0]}}
	}
	return map[string]any{"key": field, "match": map[string]any{"any": values}}
}

// call sends one JSON request under the retry policy and decodes the
// response into out when out is non-nil. 404 maps to domain.ErrNotFound.
func (q *Index) call(ctx context.Context, op, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("qdrant %s: encoding request: %w", op, err)
		}
	}

	return q.policy.Do(ctx, op, func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, q.url+path, reader)
		if err != nil {
			return fmt.Errorf("qdrant %s: %w", op, err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if q.apiKey != "" {
			req.Header.Set("api-key", q.apiKey)
		}

		resp, err := q.client.Do(req)
		if err != nil {
			return retry.TransportError(ctx, providerName, op, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.TransportError(ctx, providerName, op, err)
		}
		if resp.StatusCode == http.StatusNotFound {
			return domain.ErrNotFound
		}
		if resp.StatusCode >= 300 {
			return retry.StatusError(providerName, op, resp, data)
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("qdrant %s: decoding response: %w", op, err)
		}
		return nil
	})
}
