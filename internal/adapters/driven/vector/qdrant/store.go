// Package qdrant implements the namespace store on a Qdrant server over its
// REST API. Each namespace is a collection named prefix+namespace.
package qdrant

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/pdfchat/internal/adapters/driven/provider"
	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.NamespaceStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultURL     = "http://localhost:6333"
	DefaultPrefix  = "pdfchat_"
	DefaultTimeout = 30 * time.Second
)

// Payload keys written with every point.
const (
	payloadRecordID = "record_id"
	payloadText     = "text"
	payloadPosition = "position"
	payloadMetadata = "metadata"
)

// Config holds configuration for the Qdrant store.
type Config struct {
	URL string

	// APIKey is sent as the api-key header when set.
	APIKey string

	// CollectionPrefix is prepended to namespace IDs.
	CollectionPrefix string

	Timeout    time.Duration
	HTTPClient *http.Client
}

// Store is a driven.NamespaceStore backed by Qdrant collections.
type Store struct {
	api    *provider.Client
	prefix string

	mu      sync.Mutex
	created map[string]bool
}

// New creates a Qdrant store.
func New(cfg Config) *Store {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	var headers map[string]string
	if cfg.APIKey != "" {
		headers = map[string]string{"api-key": cfg.APIKey}
	}

	return &Store{
		api:     provider.NewClient("qdrant", cfg.URL, cfg.HTTPClient, cfg.Timeout, headers),
		prefix:  cfg.CollectionPrefix,
		created: make(map[string]bool),
	}
}

func (s *Store) collectionPath(namespace string) string {
	return "collections/" + url.PathEscape(s.prefix+namespace)
}

// NamespaceExists reports whether the namespace's collection exists.
func (s *Store) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	err := s.api.Get(ctx, s.collectionPath(namespace), nil)
	switch {
	case err == nil:
		return true, nil
	case provider.IsStatus(err, http.StatusNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("checking collection: %w", err)
	}
}

type createCollection struct {
	Vectors vectorParams `json:"vectors"`
}

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type upsertPoints struct {
	Points []point `json:"points"`
}

// Upsert writes all records in one points request. The collection is
// created with cosine distance on first write.
func (s *Store) Upsert(ctx context.Context, namespace string, records []domain.VectorRecord) error {
	if namespace == "" {
		return domain.ErrInvalidInput
	}
	if len(records) == 0 {
		return nil
	}

	dims := len(records[0].Vector)
	points := make([]point, len(records))
	for i, r := range records {
		if r.ID == "" || len(r.Vector) != dims || dims == 0 {
			return fmt.Errorf("%w: record %q has no id or a mismatched vector", domain.ErrInvalidInput, r.ID)
		}
		payload := map[string]any{
			payloadRecordID: r.ID,
			payloadText:     r.Text,
			payloadPosition: r.Position,
		}
		if len(r.Metadata) > 0 {
			payload[payloadMetadata] = r.Metadata
		}
		points[i] = point{ID: PointID(r.ID), Vector: r.Vector, Payload: payload}
	}

	if err := s.ensureCollection(ctx, namespace, dims); err != nil {
		return err
	}

	path := s.collectionPath(namespace) + "/points?wait=true"
	if err := s.api.SendJSON(ctx, http.MethodPut, path, upsertPoints{Points: points}, nil); err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}
	return nil
}

func (s *Store) ensureCollection(ctx context.Context, namespace string, dims int) error {
	s.mu.Lock()
	done := s.created[namespace]
	s.mu.Unlock()
	if done {
		return nil
	}

	exists, err := s.NamespaceExists(ctx, namespace)
	if err != nil {
		return err
	}
	if !exists {
		body := createCollection{Vectors: vectorParams{Size: dims, Distance: "Cosine"}}
		err := s.api.SendJSON(ctx, http.MethodPut, s.collectionPath(namespace), body, nil)
		// A concurrent creator wins with 409; the collection is usable either way.
		if err != nil && !provider.IsStatus(err, http.StatusConflict) {
			return fmt.Errorf("creating collection: %w", err)
		}
	}

	s.mu.Lock()
	s.created[namespace] = true
	s.mu.Unlock()
	return nil
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type searchResponse struct {
	Result []struct {
		ID      any            `json:"id"`
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// Query returns the topK most similar points. Ordering of equal scores
// is whatever Qdrant returns. A missing collection yields no passages.
func (s *Store) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]domain.ScoredPassage, error) {
	if topK <= 0 {
		return []domain.ScoredPassage{}, nil
	}

	var resp searchResponse
	err := s.api.PostJSON(ctx, s.collectionPath(namespace)+"/points/search",
		searchRequest{Vector: vector, Limit: topK, WithPayload: true}, &resp)
	if provider.IsStatus(err, http.StatusNotFound) {
		return []domain.ScoredPassage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("searching points: %w", err)
	}

	out := make([]domain.ScoredPassage, 0, len(resp.Result))
	for _, r := range resp.Result {
		p := domain.ScoredPassage{Score: r.Score, Position: -1}
		if v, ok := r.Payload[payloadRecordID].(string); ok {
			p.ID = v
		} else {
			p.ID = fmt.Sprint(r.ID)
		}
		if v, ok := r.Payload[payloadText].(string); ok {
			p.Text = v
		}
		if v, ok := r.Payload[payloadPosition].(float64); ok {
			p.Position = int(v)
		}
		out = append(out, p)
	}
	return out, nil
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

// pointNamespace derives point UUIDs for record IDs that are not UUIDs.
var pointNamespace = uuid.MustParse("0b8f3b8e-52a4-4a7e-8f53-7f0c4b1f9d21")

// PointID maps a record ID to a Qdrant point ID. Qdrant only accepts UUIDs
// and unsigned integers; other IDs are hashed to a stable UUID.
func PointID(recordID string) string {
	if id, err := uuid.Parse(recordID); err == nil {
		return id.String()
	}
	return uuid.NewSHA1(pointNamespace, []byte(recordID)).String()
}
