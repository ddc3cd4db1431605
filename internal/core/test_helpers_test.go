package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/docsync-server/internal/store"
)

// memStore is an in-memory DocumentStore for hub tests.
type memStore struct {
	mu       sync.Mutex
	docs     map[string]*store.Document
	versions map[string][]*store.Version
}

func newMemStore() *memStore {
	return &memStore{
		docs:     make(map[string]*store.Document),
		versions: make(map[string][]*store.Version),
	}
}

func (m *memStore) put(id, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.docs[id] = &store.Document{ID: id, Content: content, CreatedAt: now, UpdatedAt: now}
}

func (m *memStore) GetDocument(_ context.Context, id string) (*store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (m *memStore) UpdateContent(_ context.Context, id, content string) (*store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	doc.Content = content
	doc.UpdatedAt = time.Now()
	copied := *doc
	return &copied, nil
}

func (m *memStore) AppendVersion(_ context.Context, docID string, v *store.Version) (*store.Version, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[docID]; !ok {
		return nil, 0, store.ErrNotFound
	}
	saved := *v
	saved.ID = int64(len(m.versions[docID]) + 1)
	saved.DocumentID = docID
	m.versions[docID] = append(m.versions[docID], &saved)
	return &saved, len(m.versions[docID]), nil
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// mustNoEvent drains the channel for a short window and fails if an event of
// the given kind shows up.
func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event: %+v", ev)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}
