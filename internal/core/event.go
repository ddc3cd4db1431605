package core

import (
	"encoding/json"
	"time"
)

// EventKind is a notification the sync engine emits to clients.
type EventKind int

const (
	// EventDocumentLoaded delivers current document content to a client
	// that just joined a room. Never broadcast.
	EventDocumentLoaded EventKind = iota
	// EventDocumentUpdated notifies room peers about an applied edit.
	EventDocumentUpdated
	// EventVersionSaved notifies the whole room that a version snapshot
	// was appended, sender included.
	EventVersionSaved
	// EventUserCursor relays a peer's cursor position.
	EventUserCursor
	// EventError notifies the originating client about a failure.
	EventError
)

// Version is an immutable content snapshot as seen by clients.
type Version struct {
	Content string
	SavedBy string
	SavedAt time.Time
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind  EventKind
	DocID string

	// EventDocumentLoaded / EventDocumentUpdated
	Content   string
	UpdatedBy string
	Timestamp time.Time

	// EventVersionSaved
	Version       *Version
	TotalVersions int

	// EventUserCursor
	UserID   string
	UserName string
	Position json.RawMessage

	// EventError
	Error *CoreError
}
