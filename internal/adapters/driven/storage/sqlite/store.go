package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/pdfchat/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.pdfchat/data/pdfchat.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".pdfchat", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "pdfchat.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single writer connection avoids SQLITE_BUSY on read-to-write upgrades.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// MessageStore returns a MessageStore interface backed by this store.
func (s *Store) MessageStore() driven.MessageStore {
	return &messageStore{store: s}
}

// NamespaceStore returns a NamespaceStore interface backed by this store.
// Closing it is a no-op; the Store owns the connection.
func (s *Store) NamespaceStore() driven.NamespaceStore {
	return &namespaceStore{store: s}
}

// IndexStateStore returns an IndexStateStore interface backed by this store.
func (s *Store) IndexStateStore() driven.IndexStateStore {
	return &indexStateStore{store: s}
}

// migrate runs all pending migrations, recording each applied version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument inserts a document. Existing IDs are never overwritten.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" || doc.OwnerID == "" {
		return domain.ErrInvalidInput
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, owner_id, source_url, title, mime_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, doc.ID, doc.OwnerID, doc.SourceURL, doc.Title, doc.MIMEType, doc.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	if n == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// GetDocument retrieves a document owned by ownerID.
func (s *documentStore) GetDocument(ctx context.Context, ownerID, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, owner_id, source_url, title, mime_type, created_at
		FROM documents WHERE id = ? AND owner_id = ?
	`, id, ownerID)

	var doc domain.Document
	if err := row.Scan(&doc.ID, &doc.OwnerID, &doc.SourceURL, &doc.Title,
		&doc.MIMEType, &doc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return &doc, nil
}

func (s *documentStore) UpdateTitle(ctx context.Context, ownerID, id, title string) error {
	res, err := s.store.db.ExecContext(ctx,
		`UPDATE documents SET title = ? WHERE id = ? AND owner_id = ?`, title, id, ownerID)
	if err != nil {
		return fmt.Errorf("updating title: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating title: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListDocuments returns the owner's documents, newest first.
func (s *documentStore) ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, owner_id, source_url, title, mime_type, created_at
		FROM documents WHERE owner_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.SourceURL, &doc.Title,
			&doc.MIMEType, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// ==================== Message Store ====================

// messageStore implements driven.MessageStore.
type messageStore struct {
	store *Store
}

var _ driven.MessageStore = (*messageStore)(nil)

const insertTurnSQL = `
	INSERT INTO chat_turns (id, owner_id, document_id, role, text, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
`

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertTurn(ctx context.Context, db execer, turn domain.ChatTurn) error {
	if turn.ID == "" || turn.OwnerID == "" || turn.DocumentID == "" || !turn.Role.IsValid() {
		return domain.ErrInvalidInput
	}
	if _, err := db.ExecContext(ctx, insertTurnSQL, turn.ID, turn.OwnerID, turn.DocumentID,
		string(turn.Role), turn.Text, turn.CreatedAt.UnixNano()); err != nil {
		return fmt.Errorf("saving chat turn: %w", err)
	}
	return nil
}

// Append adds one turn in a single statement.
func (s *messageStore) Append(ctx context.Context, turn domain.ChatTurn) error {
	return insertTurn(ctx, s.store.db, turn)
}

// AppendExchange adds both turns in one transaction.
func (s *messageStore) AppendExchange(ctx context.Context, question, answer domain.ChatTurn) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertTurn(ctx, tx, question); err != nil {
		return err
	}
	if err := insertTurn(ctx, tx, answer); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// List returns a conversation ordered by creation time, then insertion order.
func (s *messageStore) List(ctx context.Context, ownerID, documentID string) ([]domain.ChatTurn, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, owner_id, document_id, role, text, created_at
		FROM chat_turns WHERE owner_id = ? AND document_id = ?
		ORDER BY created_at ASC, seq ASC
	`, ownerID, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chat turns: %w", err)
	}
	defer rows.Close()

	var turns []domain.ChatTurn //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			turn    domain.ChatTurn
			role    string
			created int64
		)
		if err := rows.Scan(&turn.ID, &turn.OwnerID, &turn.DocumentID, &role, &turn.Text, &created); err != nil {
			return nil, fmt.Errorf("scanning chat turn: %w", err)
		}
		turn.Role = domain.Role(role)
		turn.CreatedAt = time.Unix(0, created).UTC()
		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chat turns: %w", err)
	}
	return turns, nil
}

// CountByRole counts turns of one role in a conversation.
func (s *messageStore) CountByRole(ctx context.Context, ownerID, documentID string, role domain.Role) (int, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chat_turns WHERE owner_id = ? AND document_id = ? AND role = ?
	`, ownerID, documentID, string(role)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting chat turns: %w", err)
	}
	return n, nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts []float32 to little-endian bytes.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// marshalMetadata encodes metadata, treating nil as an empty object.
func marshalMetadata(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshalling metadata: %w", err)
	}
	return string(b), nil
}
