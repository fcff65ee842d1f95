package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/rowmap/rowmap/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// CreateDocument stores a new mapping document. A missing ID is generated.
func (s *LibSQLStore) CreateDocument(ctx context.Context, doc *Document) error {
	if doc == nil {
		return schema.NewError(schema.ErrCodeValidation, "document is nil")
	}
	if doc.Name == "" {
		return schema.NewError(schema.ErrCodeValidation, "document name is empty")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mapping_documents (id, name, body, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.Name, string(doc.Body), doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "create document %q", doc.Name).WithCause(err)
	}
	return nil
}

// GetDocument loads a mapping document by ID.
func (s *LibSQLStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	return s.getDocument(ctx, `SELECT id, name, body, created_at, updated_at FROM mapping_documents WHERE id = ?`, id)
}

// GetDocumentByName loads a mapping document by its unique name.
func (s *LibSQLStore) GetDocumentByName(ctx context.Context, name string) (*Document, error) {
	return s.getDocument(ctx, `SELECT id, name, body, created_at, updated_at FROM mapping_documents WHERE name = ?`, name)
}

func (s *LibSQLStore) getDocument(ctx context.Context, query, key string) (*Document, error) {
	doc := &Document{}
	var body string
	err := s.db.QueryRowContext(ctx, query, key).
		Scan(&doc.ID, &doc.Name, &body, &doc.CreatedAt, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "mapping document %q not found", key)
	}
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "load document %q", key).WithCause(err)
	}
	doc.Body = json.RawMessage(body)
	return doc, nil
}

// UpdateDocument replaces the serialized body of an existing document.
func (s *LibSQLStore) UpdateDocument(ctx context.Context, id string, body json.RawMessage) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE mapping_documents SET body = ?, updated_at = ? WHERE id = ?`,
		string(body), time.Now().UTC(), id,
	)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "update document %q", id).WithCause(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "update document %q", id).WithCause(err)
	}
	if affected == 0 {
		return schema.NewErrorf(schema.ErrCodeNotFound, "mapping document %q not found", id)
	}
	return nil
}

// ListDocuments returns all stored documents ordered by name.
func (s *LibSQLStore) ListDocuments(ctx context.Context) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, body, created_at, updated_at FROM mapping_documents ORDER BY name`)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "list documents").WithCause(err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc := &Document{}
		var body string
		if err := rows.Scan(&doc.ID, &doc.Name, &body, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, schema.NewError(schema.ErrCodeStore, "scan document").WithCause(err)
		}
		doc.Body = json.RawMessage(body)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "list documents").WithCause(err)
	}
	return docs, nil
}

// DeleteDocument removes a stored document.
func (s *LibSQLStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mapping_documents WHERE id = ?`, id)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "delete document %q", id).WithCause(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "delete document %q", id).WithCause(err)
	}
	if affected == 0 {
		return schema.NewErrorf(schema.ErrCodeNotFound, "mapping document %q not found", id)
	}
	return nil
}

var _ Store = (*LibSQLStore)(nil)
