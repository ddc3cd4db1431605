package core

import "sync"

// Rooms is the room membership registry: it maps document IDs to the set of
// clients currently viewing that document. Rooms are created on first join
// and discarded once the last member leaves.
//
// Membership is mutated from the hub loop but read by broadcast calls running
// in handler goroutines, so every operation takes the lock; callers never
// observe a member set across a suspension point.
type Rooms struct {
	mu    sync.RWMutex
	byDoc map[string]*Room
}

// NewRooms constructs an empty registry.
func NewRooms() *Rooms {
	return &Rooms{byDoc: make(map[string]*Room)}
}

// Join adds the client to the document's room, creating the room entry if
// absent. Returns true if the client was newly added (idempotent otherwise).
func (r *Rooms) Join(docID string, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.byDoc[docID]
	if !ok {
		room = NewRoom(docID)
		r.byDoc[docID] = room
	}
	return room.AddClient(c)
}

// Leave removes the client from the document's room. If the room becomes
// empty its entry is discarded. Removing a non-member is not an error.
func (r *Rooms) Leave(docID string, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.byDoc[docID]
	if !ok {
		return false
	}
	removed := room.RemoveClient(c)
	if room.Empty() {
		delete(r.byDoc, docID)
	}
	return removed
}

// Contains reports whether the client is currently a member of the room.
func (r *Rooms) Contains(docID string, c *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.byDoc[docID]
	return ok && room.Contains(c)
}

// Members returns a snapshot of the room's member connection IDs.
func (r *Rooms) Members(docID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.byDoc[docID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(room.clients))
	for client := range room.clients {
		ids = append(ids, client.ID)
	}
	return ids
}

// Broadcast delivers an event to every member of the document's room except
// the excluded client. A nil except delivers to all members.
func (r *Rooms) Broadcast(docID string, event *Event, except *Client) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.byDoc[docID]
	if !ok {
		return
	}
	room.Broadcast(event, except)
}
