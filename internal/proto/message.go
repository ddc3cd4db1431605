package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello          = "hello"
	InboundTypeJoinDocument   = "join-document"
	InboundTypeLeaveDocument  = "leave-document"
	InboundTypeEditDocument   = "edit-document"
	InboundTypeSaveVersion    = "save-version"
	InboundTypeCursorPosition = "cursor-position"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventDocumentLoaded  = "document-loaded"
	EventDocumentUpdated = "document-updated"
	EventVersionSaved    = "version-saved"
	EventUserCursor      = "user-cursor"
)

// HelloData introduces the connection: a JWT token, a display name, or both.
// When a valid token is present its username wins over the display name.
type HelloData struct {
	Token    string `json:"token"`
	UserName string `json:"userName"`
}

// JoinData requests to join (or leave) a document room.
type JoinData struct {
	DocID string `json:"docId"`
}

// EditData carries a full-content overwrite of a document.
type EditData struct {
	DocID   string `json:"docId"`
	Content string `json:"content"`
	UserID  string `json:"userId"`
}

// SaveVersionData requests a version snapshot of current content.
type SaveVersionData struct {
	DocID  string `json:"docId"`
	UserID string `json:"userId"`
}

// CursorData is a transient cursor position report.
type CursorData struct {
	DocID    string          `json:"docId"`
	UserID   string          `json:"userId"`
	UserName string          `json:"userName"`
	Position json.RawMessage `json:"position"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// DocumentLoadedData delivers current content to a joining client.
type DocumentLoadedData struct {
	DocID   string `json:"docId"`
	Content string `json:"content"`
}

// DocumentUpdatedData notifies room peers about an applied edit.
type DocumentUpdatedData struct {
	Content   string    `json:"content"`
	UpdatedBy string    `json:"updatedBy"`
	Timestamp time.Time `json:"timestamp"`
}

// VersionData is one immutable version snapshot.
type VersionData struct {
	Content string    `json:"content"`
	SavedBy string    `json:"savedBy"`
	SavedAt time.Time `json:"savedAt"`
}

// VersionSavedData notifies the whole room about an appended version.
type VersionSavedData struct {
	Version       VersionData `json:"version"`
	TotalVersions int         `json:"totalVersions"`
}

// UserCursorData relays a peer's cursor position.
type UserCursorData struct {
	UserID   string          `json:"userId"`
	UserName string          `json:"userName"`
	Position json.RawMessage `json:"position"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
