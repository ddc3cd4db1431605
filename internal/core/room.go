package core

// Room groups clients viewing the same document.
type Room struct {
	DocID   string
	clients map[*Client]struct{}
}

// NewRoom constructs a room with no clients.
func NewRoom(docID string) *Room {
	return &Room{
		DocID:   docID,
		clients: make(map[*Client]struct{}),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c]; exists {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	return true
}

// Contains reports whether the client is a member of the room.
func (r *Room) Contains(c *Client) bool {
	_, exists := r.clients[c]
	return exists
}

// Broadcast sends an event to all clients in the room except the excluded
// one. A nil except delivers to every member.
func (r *Room) Broadcast(event *Event, except *Client) {
	for client := range r.clients {
		if client == except {
			continue
		}
		select {
		case client.Events <- event:
		default:
			// Drop if slow consumer.
		}
	}
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}
