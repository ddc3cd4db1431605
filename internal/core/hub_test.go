package core

import (
	"context"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/vovakirdan/docsync-server/internal/store"
)

func startHub(t *testing.T, st DocumentStore) *Hub {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)

	hub := NewHub(st, nil)
	go hub.Run(ctx)
	return hub
}

func TestJoinDeliversDocumentPrivately(t *testing.T) {
	st := newMemStore()
	st.put("d", "current text")
	hub := startHub(t, st)

	alice := NewClient("a", "alice")
	bob := NewClient("b", "bob")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandJoinDocument, DocID: "d"}
	ev := mustEvent(t, alice.Events, EventDocumentLoaded)
	if ev.Content != "current text" || ev.DocID != "d" {
		t.Fatalf("unexpected loaded event: %+v", ev)
	}

	// A second client joining must not leak the load to the first one.
	bob.Commands <- &Command{Kind: CommandJoinDocument, DocID: "d"}
	mustEvent(t, bob.Events, EventDocumentLoaded)
	mustNoEvent(t, alice.Events, EventDocumentLoaded)
}

func TestJoinMissingDocumentIsSilent(t *testing.T) {
	hub := startHub(t, newMemStore())

	alice := NewClient("a", "alice")
	hub.RegisterClient(alice)

	alice.Commands <- &Command{Kind: CommandJoinDocument, DocID: "ghost"}

	mustNoEvent(t, alice.Events, EventDocumentLoaded)
	mustNoEvent(t, alice.Events, EventError)
}

func TestEditBroadcastsToOthersOnly(t *testing.T) {
	st := newMemStore()
	st.put("d", "")
	hub := startHub(t, st)

	alice := NewClient("a", "alice")
	bob := NewClient("b", "bob")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandJoinDocument, DocID: "d"}
	bob.Commands <- &Command{Kind: CommandJoinDocument, DocID: "d"}
	mustEvent(t, alice.Events, EventDocumentLoaded)
	mustEvent(t, bob.Events, EventDocumentLoaded)

	alice.Commands <- &Command{Kind: CommandEditDocument, DocID: "d", Content: "hello", UserID: "u1"}

	ev := mustEvent(t, bob.Events, EventDocumentUpdated)
	if ev.Content != "hello" || ev.UpdatedBy != "u1" {
		t.Fatalf("unexpected update event: %+v", ev)
	}
	if ev.Timestamp.IsZero() {
		t.Fatalf("expected timestamp on update event")
	}

	// The sender does not get its own edit echoed back.
	mustNoEvent(t, alice.Events, EventDocumentUpdated)
}

func TestEditMissingDocumentPrivateError(t *testing.T) {
	hub := startHub(t, newMemStore())

	alice := NewClient("a", "alice")
	bob := NewClient("b", "bob")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	// Joining a missing document still grants room membership.
	alice.Commands <- &Command{Kind: CommandJoinDocument, DocID: "ghost"}
	bob.Commands <- &Command{Kind: CommandJoinDocument, DocID: "ghost"}

	alice.Commands <- &Command{Kind: CommandEditDocument, DocID: "ghost", Content: "x", UserID: "u1"}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeDocumentNotFound {
		t.Fatalf("expected document_not_found error, got %+v", ev)
	}
	mustNoEvent(t, bob.Events, EventDocumentUpdated)
}

func TestEditWithoutJoinProducesError(t *testing.T) {
	st := newMemStore()
	st.put("d", "")
	hub := startHub(t, st)

	alice := NewClient("a", "alice")
	hub.RegisterClient(alice)

	alice.Commands <- &Command{Kind: CommandEditDocument, DocID: "d", Content: "x", UserID: "u1"}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeNotInRoom {
		t.Fatalf("expected not_in_room error, got %+v", ev)
	}
}

func TestSaveVersionNotifiesWholeRoom(t *testing.T) {
	st := newMemStore()
	st.put("d", "the content")
	hub := startHub(t, st)

	alice := NewClient("a", "alice")
	bob := NewClient("b", "bob")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandJoinDocument, DocID: "d"}
	bob.Commands <- &Command{Kind: CommandJoinDocument, DocID: "d"}
	mustEvent(t, alice.Events, EventDocumentLoaded)
	mustEvent(t, bob.Events, EventDocumentLoaded)

	// Two versions already in the history.
	alice.Commands <- &Command{Kind: CommandSaveVersion, DocID: "d", UserID: "u1"}
	mustEvent(t, alice.Events, EventVersionSaved)
	mustEvent(t, bob.Events, EventVersionSaved)
	alice.Commands <- &Command{Kind: CommandSaveVersion, DocID: "d", UserID: "u1"}
	mustEvent(t, alice.Events, EventVersionSaved)
	mustEvent(t, bob.Events, EventVersionSaved)

	alice.Commands <- &Command{Kind: CommandSaveVersion, DocID: "d", UserID: "u1"}

	// Unlike edits, the sender is notified too: totalVersions is global state.
	for _, c := range []*Client{alice, bob} {
		ev := mustEvent(t, c.Events, EventVersionSaved)
		if ev.TotalVersions != 3 {
			t.Fatalf("expected totalVersions 3, got %d", ev.TotalVersions)
		}
		if ev.Version == nil || ev.Version.Content != "the content" || ev.Version.SavedBy != "u1" {
			t.Fatalf("unexpected version payload: %+v", ev.Version)
		}
	}
}

func TestSaveVersionMissingDocumentPrivateError(t *testing.T) {
	hub := startHub(t, newMemStore())

	alice := NewClient("a", "alice")
	hub.RegisterClient(alice)

	alice.Commands <- &Command{Kind: CommandJoinDocument, DocID: "ghost"}
	alice.Commands <- &Command{Kind: CommandSaveVersion, DocID: "ghost", UserID: "u1"}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeDocumentNotFound {
		t.Fatalf("expected document_not_found error, got %+v", ev)
	}
}

func TestCursorRelayedToPeersOnly(t *testing.T) {
	st := newMemStore()
	st.put("d", "")
	hub := startHub(t, st)

	alice := NewClient("a", "alice")
	bob := NewClient("b", "bob")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandJoinDocument, DocID: "d"}
	bob.Commands <- &Command{Kind: CommandJoinDocument, DocID: "d"}
	mustEvent(t, alice.Events, EventDocumentLoaded)
	mustEvent(t, bob.Events, EventDocumentLoaded)

	alice.Commands <- &Command{
		Kind:     CommandCursorPosition,
		DocID:    "d",
		UserID:   "u1",
		UserName: "Alice",
		Position: []byte(`42`),
	}

	ev := mustEvent(t, bob.Events, EventUserCursor)
	if ev.UserID != "u1" || ev.UserName != "Alice" || string(ev.Position) != "42" {
		t.Fatalf("unexpected cursor event: %+v", ev)
	}
	mustNoEvent(t, alice.Events, EventUserCursor)
}

func TestCursorAfterLeaveNotDelivered(t *testing.T) {
	st := newMemStore()
	st.put("d", "")
	hub := startHub(t, st)

	alice := NewClient("a", "alice")
	bob := NewClient("b", "bob")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandJoinDocument, DocID: "d"}
	bob.Commands <- &Command{Kind: CommandJoinDocument, DocID: "d"}
	mustEvent(t, alice.Events, EventDocumentLoaded)
	mustEvent(t, bob.Events, EventDocumentLoaded)

	alice.Commands <- &Command{Kind: CommandLeaveDocument, DocID: "d"}
	alice.Commands <- &Command{Kind: CommandCursorPosition, DocID: "d", UserID: "u1", Position: []byte(`1`)}

	// Former roommates see nothing; the cursor is dropped, not errored.
	mustNoEvent(t, bob.Events, EventUserCursor)
	mustNoEvent(t, alice.Events, EventError)
}

func TestDoubleJoinIsIdempotent(t *testing.T) {
	st := newMemStore()
	st.put("d", "")
	hub := startHub(t, st)

	alice := NewClient("a", "alice")
	bob := NewClient("b", "bob")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandJoinDocument, DocID: "d"}
	mustEvent(t, alice.Events, EventDocumentLoaded)
	alice.Commands <- &Command{Kind: CommandJoinDocument, DocID: "d"}
	mustEvent(t, alice.Events, EventDocumentLoaded)

	bob.Commands <- &Command{Kind: CommandJoinDocument, DocID: "d"}
	mustEvent(t, bob.Events, EventDocumentLoaded)

	if members := hub.rooms.Members("d"); len(members) != 2 {
		t.Fatalf("expected 2 members after double join, got %v", members)
	}

	// A broadcast after the double join is delivered exactly once.
	bob.Commands <- &Command{Kind: CommandEditDocument, DocID: "d", Content: "x", UserID: "u2"}
	mustEvent(t, alice.Events, EventDocumentUpdated)
	mustNoEvent(t, alice.Events, EventDocumentUpdated)
}

func TestJoinSecondDocumentLeavesFirst(t *testing.T) {
	st := newMemStore()
	st.put("d1", "")
	st.put("d2", "")
	hub := startHub(t, st)

	alice := NewClient("a", "alice")
	bob := NewClient("b", "bob")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandJoinDocument, DocID: "d1"}
	bob.Commands <- &Command{Kind: CommandJoinDocument, DocID: "d1"}
	mustEvent(t, alice.Events, EventDocumentLoaded)
	mustEvent(t, bob.Events, EventDocumentLoaded)

	// One room per connection: joining d2 implicitly leaves d1.
	alice.Commands <- &Command{Kind: CommandJoinDocument, DocID: "d2"}
	mustEvent(t, alice.Events, EventDocumentLoaded)

	if members := hub.rooms.Members("d1"); len(members) != 1 {
		t.Fatalf("expected alice out of d1, got members %v", members)
	}

	bob.Commands <- &Command{Kind: CommandEditDocument, DocID: "d1", Content: "x", UserID: "u2"}
	mustNoEvent(t, alice.Events, EventDocumentUpdated)
}

func TestPumpExitsWhenCommandsClosed(t *testing.T) {
	hub := startHub(t, newMemStore())

	before := runtime.NumGoroutine()

	const churn = 50
	clients := make([]*Client, 0, churn)
	for i := 0; i < churn; i++ {
		c := NewClient("c"+strconv.Itoa(i), "")
		hub.RegisterClient(c)
		clients = append(clients, c)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && hub.conns.Count() != churn {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.conns.Count() != churn {
		t.Fatalf("expected %d registered connections, got %d", churn, hub.conns.Count())
	}

	// The transport closes Commands once its loops exit; the pump goroutine
	// must exit with it instead of lingering for the life of the hub.
	for _, c := range clients {
		close(c.Commands)
		hub.UnregisterClient(c)
	}

	for time.Now().Before(deadline) {
		if hub.conns.Count() == 0 && runtime.NumGoroutine() <= before+2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if hub.conns.Count() != 0 {
		t.Fatalf("expected 0 registered connections, got %d", hub.conns.Count())
	}
	if n := runtime.NumGoroutine(); n > before+2 {
		t.Fatalf("pump goroutines leaked: before=%d after=%d", before, n)
	}
}

// staleReadStore simulates a concurrent writer landing between this edit's
// UPDATE and any subsequent read-back.
type staleReadStore struct {
	*memStore
}

func (s *staleReadStore) UpdateContent(ctx context.Context, id, content string) (*store.Document, error) {
	doc, err := s.memStore.UpdateContent(ctx, id, content+" plus a later write")
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func TestEditBroadcastCarriesOwnPayload(t *testing.T) {
	mem := newMemStore()
	mem.put("d", "")
	hub := startHub(t, &staleReadStore{memStore: mem})

	alice := NewClient("a", "alice")
	bob := NewClient("b", "bob")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandJoinDocument, DocID: "d"}
	bob.Commands <- &Command{Kind: CommandJoinDocument, DocID: "d"}
	mustEvent(t, alice.Events, EventDocumentLoaded)
	mustEvent(t, bob.Events, EventDocumentLoaded)

	alice.Commands <- &Command{Kind: CommandEditDocument, DocID: "d", Content: "hello", UserID: "u1"}

	ev := mustEvent(t, bob.Events, EventDocumentUpdated)
	if ev.Content != "hello" {
		t.Fatalf("broadcast must carry this edit's payload, got %q", ev.Content)
	}
}

func TestHelloSetsPresenceName(t *testing.T) {
	st := newMemStore()
	st.put("d", "")
	hub := startHub(t, st)

	alice := NewClient("a", "")
	bob := NewClient("b", "bob")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandHello, UserName: "Alice Doe"}
	alice.Commands <- &Command{Kind: CommandJoinDocument, DocID: "d"}
	bob.Commands <- &Command{Kind: CommandJoinDocument, DocID: "d"}
	mustEvent(t, alice.Events, EventDocumentLoaded)
	mustEvent(t, bob.Events, EventDocumentLoaded)

	// No userName in the cursor payload: the connection's name fills in.
	alice.Commands <- &Command{Kind: CommandCursorPosition, DocID: "d", UserID: "u1", Position: []byte(`5`)}

	ev := mustEvent(t, bob.Events, EventUserCursor)
	if ev.UserName != "Alice Doe" {
		t.Fatalf("expected presence name from hello, got %q", ev.UserName)
	}
}

func TestDisconnectCleansUpRoom(t *testing.T) {
	st := newMemStore()
	st.put("d", "")
	hub := startHub(t, st)

	alice := NewClient("a", "alice")
	bob := NewClient("b", "bob")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandJoinDocument, DocID: "d"}
	bob.Commands <- &Command{Kind: CommandJoinDocument, DocID: "d"}
	mustEvent(t, alice.Events, EventDocumentLoaded)
	mustEvent(t, bob.Events, EventDocumentLoaded)

	hub.UnregisterClient(alice)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(hub.rooms.Members("d")) == 1 && hub.conns.Count() == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if members := hub.rooms.Members("d"); len(members) != 1 {
		t.Fatalf("expected only bob in room, got %v", members)
	}
	if hub.conns.Count() != 1 {
		t.Fatalf("expected 1 registered connection, got %d", hub.conns.Count())
	}

	// Unregistering twice is a no-op.
	hub.UnregisterClient(alice)
}
