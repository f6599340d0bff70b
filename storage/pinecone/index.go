package pinecone

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/go-resty/resty/v2"

	"github.com/poiesic/ragchat/core"
	"github.com/poiesic/ragchat/storage"
)

// upsertBatchSize stays well below the service's per-request vector limit.
const upsertBatchSize = 100

// Index implements storage.VectorIndex for one Pinecone index namespace.
type Index struct {
	client    *resty.Client
	namespace string
	closed    atomic.Bool
	logger    *slog.Logger
}

type vector struct {
	ID       string              `json:"id"`
	Values   []float32           `json:"values"`
	Metadata core.RecordMetadata `json:"metadata"`
}

type upsertRequest struct {
	Vectors   []vector `json:"vectors"`
	Namespace string   `json:"namespace"`
}

type upsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

type queryRequest struct {
	Namespace       string    `json:"namespace"`
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
	IncludeValues   bool      `json:"includeValues"`
}

type queryMatch struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata"`
}

type queryResponse struct {
	Matches   []queryMatch `json:"matches"`
	Namespace string       `json:"namespace"`
}

type describeIndexResponse struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Host      string `json:"host"`
}

// NewIndex connects to the configured index, resolving its host if needed.
//
// Returns storage.VectorIndex interface to enforce abstraction.
func NewIndex(ctx context.Context, cfg *Config) (storage.VectorIndex, error) {
	return newIndex(ctx, cfg)
}

func newIndex(ctx context.Context, cfg *Config) (*Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := slog.Default().With("component", "pinecone-index")

	host := cfg.Host
	if host == "" {
		resolved, err := resolveHost(ctx, cfg)
		if err != nil {
			return nil, err
		}
		host = resolved
		logger.Debug("resolved index host", "index", cfg.IndexName, "host", host)
	}

	return &Index{
		client:    newClient(cfg, host),
		namespace: cfg.Namespace,
		logger:    logger.With("namespace", cfg.Namespace),
	}, nil
}

func newClient(cfg *Config, baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("Api-Key", cfg.APIKey).
		SetHeader("X-Pinecone-API-Version", cfg.APIVersion)
}

// resolveHost asks the control plane for the data plane host of cfg.IndexName.
func resolveHost(ctx context.Context, cfg *Config) (string, error) {
	var out describeIndexResponse
	resp, err := newClient(cfg, cfg.ControlPlaneURL).R().
		SetContext(ctx).
		SetResult(&out).
		Get("/indexes/" + url.PathEscape(cfg.IndexName))
	if err != nil {
		return "", fmt.Errorf("describing index %s: %w", cfg.IndexName, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", storage.ErrIndexNotFound, cfg.IndexName)
	}
	if resp.IsError() {
		return "", requestError("describe index", resp)
	}
	if out.Host == "" {
		return "", fmt.Errorf("%w: %s has no host", storage.ErrIndexNotFound, cfg.IndexName)
	}
	return normalizeHost(out.Host), nil
}

// Upsert writes records in batches. A failed batch stops the call; earlier
// batches stay written.
func (i *Index) Upsert(ctx context.Context, records ...*core.EmbeddingRecord) (int, error) {
	if i.closed.Load() {
		return 0, storage.ErrIndexClosed
	}
	if len(records) == 0 {
		return 0, nil
	}

	vectors := make([]vector, len(records))
	for n, record := range records {
		if err := storage.ValidateRecord(record); err != nil {
			return 0, err
		}
		vectors[n] = vector{ID: record.ID, Values: record.Vector, Metadata: record.Metadata}
	}

	total := 0
	for start := 0; start < len(vectors); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(vectors))

		var out upsertResponse
		resp, err := i.client.R().
			SetContext(ctx).
			SetBody(upsertRequest{Vectors: vectors[start:end], Namespace: i.namespace}).
			SetResult(&out).
			Post("/vectors/upsert")
		if err != nil {
			i.logger.Error("upsert failed", "count", end-start, "err", err)
			return total, fmt.Errorf("upserting vectors: %w", err)
		}
		if resp.IsError() {
			i.logger.Error("upsert rejected", "status", resp.StatusCode(), "body", resp.String())
			return total, requestError("upsert", resp)
		}
		total += out.UpsertedCount
	}

	i.logger.Debug("upserted vectors", "count", total)
	return total, nil
}

// Query runs a top-K similarity search in the configured namespace.
func (i *Index) Query(ctx context.Context, q *storage.Query) ([]*core.Match, error) {
	if i.closed.Load() {
		return nil, storage.ErrIndexClosed
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var out queryResponse
	resp, err := i.client.R().
		SetContext(ctx).
		SetBody(queryRequest{
			Namespace:       i.namespace,
			Vector:          q.Vector,
			TopK:            q.TopK,
			IncludeMetadata: q.IncludeMetadata,
			IncludeValues:   q.IncludeValues,
		}).
		SetResult(&out).
		Post("/query")
	if err != nil {
		i.logger.Error("query failed", "err", err)
		return nil, fmt.Errorf("querying index: %w", err)
	}
	if resp.IsError() {
		i.logger.Error("query rejected", "status", resp.StatusCode(), "body", resp.String())
		return nil, requestError("query", resp)
	}

	matches := make([]*core.Match, 0, len(out.Matches))
	for _, m := range out.Matches {
		matches = append(matches, &core.Match{
			ID:       m.ID,
			Score:    m.Score,
			Values:   m.Values,
			Metadata: metadataFromMap(m.Metadata),
		})
	}
	i.logger.Debug("query returned matches", "count", len(matches))
	return matches, nil
}

// Close marks the index closed. Later calls fail with storage.ErrIndexClosed.
func (i *Index) Close() error {
	i.closed.Store(true)
	return nil
}

func requestError(op string, resp *resty.Response) error {
	return fmt.Errorf("%w: %s: status %d: %s", storage.ErrRequestFailed, op, resp.StatusCode(), resp.String())
}

// metadataFromMap decodes stored metadata. Numbers come back as floats, and
// records written by other tools may lack some fields.
func metadataFromMap(m map[string]any) core.RecordMetadata {
	var md core.RecordMetadata
	if s, ok := m["chunk_text"].(string); ok {
		md.ChunkText = s
	}
	if s, ok := m["category"].(string); ok {
		md.Category = s
	}
	if s, ok := m["url"].(string); ok {
		md.URL = s
	}
	if f, ok := m["chunk_index"].(float64); ok {
		md.ChunkIndex = int(f)
	}
	return md
}
