// Package store persists serialized mapping documents so a configured
// mapping survives between import sessions.
package store

import (
	"context"
	"encoding/json"
	"time"
)

// Document is one stored mapping document. Body holds the serialized
// mapping set; the engine's registries resolve it on load.
type Document struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Body      json.RawMessage `json:"body"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store defines the persistence layer contract.
// All implementations must be safe for concurrent use.
type Store interface {
	CreateDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, id string) (*Document, error)
	GetDocumentByName(ctx context.Context, name string) (*Document, error)
	UpdateDocument(ctx context.Context, id string, body json.RawMessage) error
	ListDocuments(ctx context.Context) ([]*Document, error)
	DeleteDocument(ctx context.Context, id string) error

	Close() error
}
