package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/docsync-server/internal/store"
)

// DocumentStore is the narrow view of persistence the sync engine needs.
// Each call is assumed to be individually atomic; the hub holds no
// cross-request lock on a document.
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (*store.Document, error)
	UpdateContent(ctx context.Context, id, content string) (*store.Document, error)
	AppendVersion(ctx context.Context, docID string, v *store.Version) (*store.Version, int, error)
}

type clientCommand struct {
	client *Client
	cmd    *Command
}

// Hub is the session lifecycle controller: it owns the connection and room
// registries and routes client commands to the edit, version and presence
// handlers. One hub instance is injected into the transport layer; there is
// no process-wide state.
type Hub struct {
	store DocumentStore
	log   zerolog.Logger

	conns *Registry
	rooms *Rooms

	registrations   chan *Client
	unregistrations chan *Client
	commands        chan clientCommand

	// current room per client, owned by the Run loop
	membership map[*Client]string
}

// NewHub creates a hub backed by the given document store.
func NewHub(st DocumentStore, logger *zerolog.Logger) *Hub {
	lg := zerolog.Nop()
	if logger != nil {
		lg = logger.With().Str("component", "hub").Logger()
	}
	return &Hub{
		store:           st,
		log:             lg,
		conns:           NewRegistry(),
		rooms:           NewRooms(),
		registrations:   make(chan *Client, 16),
		unregistrations: make(chan *Client, 16),
		commands:        make(chan clientCommand, 256),
		membership:      make(map[*Client]string),
	}
}

// RegisterClient hands a new connection to the hub.
func (h *Hub) RegisterClient(c *Client) {
	h.registrations <- c
}

// UnregisterClient tells the hub a connection is gone. Safe to call more
// than once for the same client.
func (h *Hub) UnregisterClient(c *Client) {
	h.unregistrations <- c
}

// Run processes registrations and client commands until ctx is cancelled.
// Membership transitions happen on this goroutine; store-bound handlers run
// in their own goroutines and may interleave, reading membership through the
// locked registry only.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.registrations:
			h.conns.Register(c)
			h.log.Info().Str("conn_id", c.ID).Int("connections", h.conns.Count()).Msg("client connected")
			go h.pump(ctx, c)
		case c := <-h.unregistrations:
			h.disconnect(c)
		case cc := <-h.commands:
			h.dispatch(ctx, cc.client, cc.cmd)
		}
	}
}

// pump forwards a client's commands into the hub's serialized queue, so
// per-connection commands reach dispatch in the order they were received.
func (h *Hub) pump(ctx context.Context, c *Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-c.Commands:
			if !ok {
				return
			}
			select {
			case h.commands <- clientCommand{client: c, cmd: cmd}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *Hub) dispatch(ctx context.Context, c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandHello:
		h.setName(c, cmd.UserName)
	case CommandJoinDocument:
		h.joinDocument(ctx, c, cmd.DocID)
	case CommandLeaveDocument:
		h.leaveDocument(c, cmd.DocID)
	case CommandEditDocument:
		if !h.rooms.Contains(cmd.DocID, c) {
			h.sendError(c, coreError(ErrCodeNotInRoom, "Not in document room"))
			return
		}
		go h.applyEdit(ctx, c, cmd)
	case CommandSaveVersion:
		if !h.rooms.Contains(cmd.DocID, c) {
			h.sendError(c, coreError(ErrCodeNotInRoom, "Not in document room"))
			return
		}
		go h.saveVersion(ctx, c, cmd)
	case CommandCursorPosition:
		// Presence is fire-and-forget: no persistence, no error path.
		// Cursor events from non-members are dropped silently.
		if !h.rooms.Contains(cmd.DocID, c) {
			return
		}
		h.broadcastCursor(c, cmd)
	}
}

// setName updates the client's display name. Name is written only from the
// hub loop after registration.
func (h *Hub) setName(c *Client, name string) {
	if name == "" {
		return
	}
	c.Name = name
	h.log.Debug().Str("conn_id", c.ID).Str("name", name).Msg("client introduced itself")
}

// joinDocument adds the client to the document's room and delivers current
// content to that client only. A connection is a member of at most one room:
// joining a new document implicitly leaves the previous one first. Joining
// the same document twice is idempotent.
func (h *Hub) joinDocument(ctx context.Context, c *Client, docID string) {
	if current, ok := h.membership[c]; ok && current != docID {
		h.rooms.Leave(current, c)
		h.log.Debug().Str("conn_id", c.ID).Str("doc_id", current).Msg("implicit leave before join")
	}

	h.rooms.Join(docID, c)
	h.membership[c] = docID
	h.log.Info().Str("conn_id", c.ID).Str("doc_id", docID).Msg("client joined document")

	go h.loadDocument(ctx, c, docID)
}

// loadDocument fetches current content and delivers it privately. A missing
// document is silent: the client sees neither document-loaded nor error.
func (h *Hub) loadDocument(ctx context.Context, c *Client, docID string) {
	doc, err := h.store.GetDocument(ctx, docID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return
		}
		h.log.Error().Err(err).Str("doc_id", docID).Msg("load document failed")
		h.sendError(c, coreError(ErrCodeStoreFailure, "Error joining document"))
		return
	}

	h.send(c, &Event{
		Kind:    EventDocumentLoaded,
		DocID:   docID,
		Content: doc.Content,
	})
}

func (h *Hub) leaveDocument(c *Client, docID string) {
	h.rooms.Leave(docID, c)
	if h.membership[c] == docID {
		delete(h.membership, c)
	}
	h.log.Info().Str("conn_id", c.ID).Str("doc_id", docID).Msg("client left document")
}

// disconnect performs room cleanup and unregisters the connection. In-flight
// store operations are not aborted; their broadcasts simply find the client
// gone from the member set.
func (h *Hub) disconnect(c *Client) {
	if docID, ok := h.membership[c]; ok {
		h.rooms.Leave(docID, c)
		delete(h.membership, c)
	}
	h.conns.Unregister(c.ID)
	h.log.Info().Str("conn_id", c.ID).Int("connections", h.conns.Count()).Msg("client disconnected")
}

// applyEdit overwrites document content through the store's atomic
// find-and-update and fans the edit out to everyone else in the room.
// Last writer wins: concurrent edits are not merged.
func (h *Hub) applyEdit(ctx context.Context, c *Client, cmd *Command) {
	if _, err := h.store.UpdateContent(ctx, cmd.DocID, cmd.Content); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.sendError(c, coreError(ErrCodeDocumentNotFound, "Document not found"))
			return
		}
		h.log.Error().Err(err).Str("doc_id", cmd.DocID).Msg("edit document failed")
		h.sendError(c, coreError(ErrCodeStoreFailure, "Error updating document"))
		return
	}

	// Broadcast this edit's own payload; a read-back could already reflect a
	// later concurrent writer.
	h.rooms.Broadcast(cmd.DocID, &Event{
		Kind:      EventDocumentUpdated,
		DocID:     cmd.DocID,
		Content:   cmd.Content,
		UpdatedBy: cmd.UserID,
		Timestamp: time.Now(),
	}, c)
	h.log.Debug().Str("doc_id", cmd.DocID).Str("user_id", cmd.UserID).Msg("document updated")
}

// saveVersion appends a snapshot of current content to the version history
// and notifies the whole room, sender included: totalVersions reflects
// global state, not the sender's local view.
func (h *Hub) saveVersion(ctx context.Context, c *Client, cmd *Command) {
	doc, err := h.store.GetDocument(ctx, cmd.DocID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.sendError(c, coreError(ErrCodeDocumentNotFound, "Document not found"))
			return
		}
		h.log.Error().Err(err).Str("doc_id", cmd.DocID).Msg("load document for save failed")
		h.sendError(c, coreError(ErrCodeStoreFailure, "Error saving version"))
		return
	}

	saved, total, err := h.store.AppendVersion(ctx, doc.ID, &store.Version{
		Content: doc.Content,
		SavedBy: cmd.UserID,
		SavedAt: time.Now(),
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.sendError(c, coreError(ErrCodeDocumentNotFound, "Document not found"))
			return
		}
		h.log.Error().Err(err).Str("doc_id", cmd.DocID).Msg("append version failed")
		h.sendError(c, coreError(ErrCodeStoreFailure, "Error saving version"))
		return
	}

	h.rooms.Broadcast(cmd.DocID, &Event{
		Kind:  EventVersionSaved,
		DocID: cmd.DocID,
		Version: &Version{
			Content: saved.Content,
			SavedBy: saved.SavedBy,
			SavedAt: saved.SavedAt,
		},
		TotalVersions: total,
	}, nil)
	h.log.Info().Str("doc_id", cmd.DocID).Int("total_versions", total).Msg("version saved")
}

func (h *Hub) broadcastCursor(c *Client, cmd *Command) {
	userName := cmd.UserName
	if userName == "" {
		userName = c.Name
	}
	h.rooms.Broadcast(cmd.DocID, &Event{
		Kind:     EventUserCursor,
		DocID:    cmd.DocID,
		UserID:   cmd.UserID,
		UserName: userName,
		Position: cmd.Position,
	}, c)
}

func (h *Hub) send(c *Client, event *Event) {
	select {
	case c.Events <- event:
	default:
		h.log.Warn().Str("conn_id", c.ID).Msg("client event channel full, dropping event")
	}
}

func (h *Hub) sendError(c *Client, cerr *CoreError) {
	h.send(c, &Event{Kind: EventError, Error: cerr})
}
