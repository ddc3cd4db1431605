package core

import "encoding/json"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandHello sets the client's display name for presence events.
	CommandHello CommandKind = iota
	// CommandJoinDocument subscribes the client to a document room.
	CommandJoinDocument
	// CommandLeaveDocument unsubscribes the client from a document room.
	CommandLeaveDocument
	// CommandEditDocument overwrites document content and notifies peers.
	CommandEditDocument
	// CommandSaveVersion snapshots the current content into version history.
	CommandSaveVersion
	// CommandCursorPosition relays the client's cursor to room peers.
	CommandCursorPosition
)

// Command represents an action requested by a client.
type Command struct {
	Kind     CommandKind
	DocID    string
	Content  string
	UserID   string
	UserName string
	Position json.RawMessage // opaque, relayed as-is
}
