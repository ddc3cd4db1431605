package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the requested document does not exist.
var ErrNotFound = errors.New("document not found")

// User represents an editor account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsGuest      bool
	SessionID    string // For guest user session tracking
	CreatedAt    time.Time
}

// Document is a persisted editable document.
type Document struct {
	ID        string // UUID
	Title     string
	Content   string
	OwnerID   *int64 // nil for documents created by guests
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Version is an immutable snapshot of a document's content at save time.
// Versions are append-only: never mutated, never deleted.
type Version struct {
	ID         int64
	DocumentID string
	Content    string
	SavedBy    string
	SavedAt    time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// CreateGuestUser creates a temporary guest user with session ID.
	CreateGuestUser(ctx context.Context, sessionID string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// GetUserBySessionID retrieves a guest user by session ID.
	GetUserBySessionID(ctx context.Context, sessionID string) (*User, error)
}

// DocumentStore handles document and version persistence.
// Each method maps to a single atomic statement or transaction; no
// multi-document transactions are offered.
type DocumentStore interface {
	// CreateDocument creates a new document and returns it.
	CreateDocument(ctx context.Context, title, content string, ownerID *int64) (*Document, error)

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if no document with that ID exists.
	GetDocument(ctx context.Context, id string) (*Document, error)

	// ListDocuments lists all documents, newest first.
	ListDocuments(ctx context.Context) ([]*Document, error)

	// UpdateContent atomically overwrites a document's content and returns
	// the post-update document (find-and-update by identifier).
	// Returns ErrNotFound if no document with that ID exists.
	UpdateContent(ctx context.Context, id, content string) (*Document, error)

	// AppendVersion appends an immutable version record to the document's
	// history and returns the stored record plus the new total count.
	// Returns ErrNotFound if no document with that ID exists.
	AppendVersion(ctx context.Context, docID string, v *Version) (*Version, int, error)

	// ListVersions lists a document's versions in insertion order.
	ListVersions(ctx context.Context, docID string) ([]*Version, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	DocumentStore

	// Close closes the underlying database connection.
	Close() error
}
