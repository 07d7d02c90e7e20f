package faillog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/casaluz/go-notify-backend/internal/docstore"
)

type memStore struct {
	docs     map[string]map[string]docstore.Fields
	queryErr error
}

func newMemStore() *memStore {
	return &memStore{docs: map[string]map[string]docstore.Fields{}}
}

func (m *memStore) Get(_ context.Context, collection, id string) (*docstore.Document, error) {
	fields, ok := m.docs[collection][id]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return &docstore.Document{Name: collection + "/" + id, Fields: fields}, nil
}

func (m *memStore) Set(_ context.Context, collection, id string, fields docstore.Fields) (*docstore.Document, error) {
	if m.docs[collection] == nil {
		m.docs[collection] = map[string]docstore.Fields{}
	}
	m.docs[collection][id] = fields
	return &docstore.Document{Name: collection + "/" + id, Fields: fields}, nil
}

func (m *memStore) Patch(_ context.Context, collection, id string, fields docstore.Fields) (*docstore.Document, error) {
	existing, ok := m.docs[collection][id]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	for k, v := range fields {
		existing[k] = v
	}
	return &docstore.Document{Name: collection + "/" + id, Fields: existing}, nil
}

func (m *memStore) QueryOrdered(_ context.Context, parent, collection, _ string, _ bool) ([]docstore.Document, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	path := parent + "/" + collection
	var out []docstore.Document
	for id, fields := range m.docs[path] {
		out = append(out, docstore.Document{Name: path + "/" + id, Fields: fields})
	}
	return out, nil
}

func newTestLogger(store *memStore) *Logger {
	return &Logger{
		Store:    store,
		Location: time.UTC,
		Now: func() time.Time {
			return time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)
		},
	}
}

func TestEntryID_IsMessageDigest(t *testing.T) {
	if got := EntryID("Barrido cancelado"); got != "1327b9f02134fe5fb878003cb88ee022" {
		t.Fatalf("EntryID = %q", got)
	}
	if EntryID("a") == EntryID("b") {
		t.Fatal("distinct messages must map to distinct entries")
	}
}

func TestRecord_CreatesThenIncrements(t *testing.T) {
	store := newMemStore()
	lg := newTestLogger(store)
	ctx := context.Background()

	lg.Record(ctx, "casaluz", "Email falló para ana@x.mx", "MAIL_PROVIDER")

	path := collectionPath("casaluz")
	id := EntryID("Email falló para ana@x.mx")
	fields, ok := store.docs[path][id]
	if !ok {
		t.Fatal("entry should be created under the message digest")
	}
	if got := fields.GetInt(fieldCounter, 0); got != 1 {
		t.Fatalf("counter = %d; want 1", got)
	}
	if fields.GetBool(fieldRead, true) {
		t.Fatal("new entry should start unread")
	}
	if got := fields.GetString(fieldContext, ""); got != "MAIL_PROVIDER" {
		t.Fatalf("context = %q", got)
	}
	if got := fields.GetString(fieldFirstSeen, ""); got != "2026-09-02T10:00:00Z" {
		t.Fatalf("first seen = %q", got)
	}

	// Acknowledge it, then repeat the same failure: the counter bumps and
	// the entry resurfaces as unread.
	if err := lg.MarkRead(ctx, "casaluz", id); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	lg.Record(ctx, "casaluz", "Email falló para ana@x.mx", "MAIL_PROVIDER")

	fields = store.docs[path][id]
	if got := fields.GetInt(fieldCounter, 0); got != 2 {
		t.Fatalf("counter after repeat = %d; want 2", got)
	}
	if fields.GetBool(fieldRead, true) {
		t.Fatal("repeated entry should come back unread")
	}
	if len(store.docs[path]) != 1 {
		t.Fatalf("repeats must not create new documents, have %d", len(store.docs[path]))
	}
}

func TestFeed_CountsUnread(t *testing.T) {
	store := newMemStore()
	lg := newTestLogger(store)
	ctx := context.Background()

	lg.Record(ctx, "casaluz", "uno", "A")
	lg.Record(ctx, "casaluz", "dos", "B")
	if err := lg.MarkRead(ctx, "casaluz", EntryID("uno")); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	entries, unread := lg.Feed(ctx, "casaluz")
	if len(entries) != 2 {
		t.Fatalf("feed size = %d; want 2", len(entries))
	}
	if unread != 1 {
		t.Fatalf("unread = %d; want 1", unread)
	}
}

func TestFeed_StoreErrorYieldsEmptyFeed(t *testing.T) {
	store := newMemStore()
	store.queryErr = errors.New("store down")
	entries, unread := newTestLogger(store).Feed(context.Background(), "casaluz")
	if len(entries) != 0 || unread != 0 {
		t.Fatalf("feed on error = %d entries, %d unread; want empty", len(entries), unread)
	}
}

func TestMarkRead_MissingEntry(t *testing.T) {
	store := newMemStore()
	if err := newTestLogger(store).MarkRead(context.Background(), "casaluz", "no-such"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
