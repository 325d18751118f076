package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/pdfchat/internal/adapters/driven/storage/similarity"
	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
)

// ==================== Namespace Store ====================

// namespaceStore implements driven.NamespaceStore with brute-force cosine search.
type namespaceStore struct {
	store *Store
}

var _ driven.NamespaceStore = (*namespaceStore)(nil)

// NamespaceExists checks the namespace stats row; vectors are never scanned.
func (s *namespaceStore) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	var one int
	err := s.store.db.QueryRowContext(ctx, "SELECT 1 FROM namespaces WHERE id = ?", namespace).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking namespace: %w", err)
	}
	return true, nil
}

// Upsert writes all records in one transaction.
func (s *namespaceStore) Upsert(ctx context.Context, namespace string, records []domain.VectorRecord) error {
	if namespace == "" {
		return domain.ErrInvalidInput
	}
	if len(records) == 0 {
		return nil
	}

	dims := len(records[0].Vector)
	for _, r := range records {
		if r.ID == "" || len(r.Vector) == 0 {
			return fmt.Errorf("%w: record without id or vector", domain.ErrInvalidInput)
		}
		if len(r.Vector) != dims {
			return fmt.Errorf("%w: mixed dimensions %d and %d", domain.ErrInvalidInput, dims, len(r.Vector))
		}
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existing int
	err = tx.QueryRowContext(ctx, "SELECT dimensions FROM namespaces WHERE id = ?", namespace).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO namespaces (id, dimensions, vector_count, created_at, updated_at)
			VALUES (?, ?, 0, ?, ?)
		`, namespace, dims, now, now); err != nil {
			return fmt.Errorf("creating namespace: %w", err)
		}
	case err != nil:
		return fmt.Errorf("reading namespace: %w", err)
	case existing != dims:
		return fmt.Errorf("%w: namespace %s has %d dimensions, got %d",
			domain.ErrInvalidInput, namespace, existing, dims)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (namespace, id, position, text, embedding, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(namespace, id) DO UPDATE SET
			position = excluded.position,
			text = excluded.text,
			embedding = excluded.embedding,
			metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		meta, err := marshalMetadata(r.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, namespace, r.ID, r.Position, r.Text,
			float32SliceToBytes(r.Vector), meta); err != nil {
			return fmt.Errorf("saving vector: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE namespaces
		SET vector_count = (SELECT COUNT(*) FROM vectors WHERE namespace = ?), updated_at = ?
		WHERE id = ?
	`, namespace, time.Now().UTC(), namespace); err != nil {
		return fmt.Errorf("updating namespace stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Query ranks every vector in the namespace. Ties keep insertion order.
func (s *namespaceStore) Query(
	ctx context.Context,
	namespace string,
	vector []float32,
	topK int,
) ([]domain.ScoredPassage, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, position, text, embedding FROM vectors
		WHERE namespace = ? ORDER BY seq ASC
	`, namespace)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var candidates []similarity.Candidate //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			c    similarity.Candidate
			blob []byte
		)
		if err := rows.Scan(&c.ID, &c.Position, &c.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}
		c.Vector = bytesToFloat32Slice(blob)
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}

	return similarity.Rank(candidates, vector, topK), nil
}

// Close is a no-op; the owning Store closes the connection.
func (s *namespaceStore) Close() error {
	return nil
}

// Count returns the number of vectors stored in a namespace.
func (s *Store) Count(ctx context.Context, namespace string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT vector_count FROM namespaces WHERE id = ?", namespace).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return n, nil
}

// ==================== Index State Store ====================

// indexStateStore implements driven.IndexStateStore.
type indexStateStore struct {
	store *Store
}

var _ driven.IndexStateStore = (*indexStateStore)(nil)

// Get retrieves the marker for a document.
func (s *indexStateStore) Get(ctx context.Context, documentID string) (*domain.IndexState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT document_id, status, chunk_count, dimensions, embedding_model,
			started_at, completed_at, error
		FROM index_states WHERE document_id = ?
	`, documentID)

	var (
		state                  domain.IndexState
		status                 string
		startedAt, completedAt sql.NullTime
	)
	if err := row.Scan(&state.DocumentID, &status, &state.ChunkCount, &state.Dimensions,
		&state.EmbeddingModel, &startedAt, &completedAt, &state.Error); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning index state: %w", err)
	}

	state.Status = domain.IndexStatus(status)
	if startedAt.Valid {
		state.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		state.CompletedAt = completedAt.Time
	}
	return &state, nil
}

// Save creates or replaces the marker.
func (s *indexStateStore) Save(ctx context.Context, state domain.IndexState) error {
	if state.DocumentID == "" || !state.Status.IsValid() {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO index_states
			(document_id, status, chunk_count, dimensions, embedding_model, started_at, completed_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			status = excluded.status,
			chunk_count = excluded.chunk_count,
			dimensions = excluded.dimensions,
			embedding_model = excluded.embedding_model,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			error = excluded.error
	`, state.DocumentID, string(state.Status), state.ChunkCount, state.Dimensions,
		state.EmbeddingModel, nullTime(state.StartedAt), nullTime(state.CompletedAt), state.Error)
	if err != nil {
		return fmt.Errorf("saving index state: %w", err)
	}
	return nil
}

// nullTime maps the zero time to NULL.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
