package chat

import (
	"context"
	"sort"
	"sync"
	"testing"

	"wschat/tools/errs"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory chat.Store with the adapter's query semantics:
// filter by chat id, sort by timestamp ascending, cap at limit.
type fakeStore struct {
	mu         sync.Mutex
	entries    []HistoryEntry
	failAppend bool
}

func (f *fakeStore) Append(_ context.Context, entry *HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAppend {
		return pkgerrors.New("store down")
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeStore) Query(_ context.Context, chatID string, limit int64) ([]HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []HistoryEntry
	for _, e := range f.entries {
		if e.ChatID == chatID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeMirror struct {
	mu      sync.Mutex
	online  []string
	offline []string
}

func (f *fakeMirror) Online(_ context.Context, identity string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online = append(f.online, identity)
	return nil
}

func (f *fakeMirror) Offline(_ context.Context, identity string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline = append(f.offline, identity)
	return nil
}

func newTestManager() (*Manager, *fakeStore) {
	store := &fakeStore{}
	return NewManager(NewRegistry(), store, nil, nil), store
}

func TestSaveMessageAndHistory(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	m.Connect(ctx, "c1", "alice", Profile{
		Username: "Alice", Avatar16: "a16.png", Avatar32: "a32.png",
	})
	_, err := m.JoinRoom("room-x", "Room X", "c1")
	require.NoError(t, err)

	require.NoError(t, m.SaveMessage(ctx, "c1", "hello there", 1500))

	entries, err := m.History(ctx, "room-x", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	require.Equal(t, "room-x", e.ChatID)
	require.Equal(t, "Room X", e.ChatTitle)
	require.Equal(t, "alice", e.UserID)
	require.Equal(t, "Alice", e.Username)
	require.Equal(t, "a16.png", e.Avatar16)
	require.Equal(t, "a32.png", e.Avatar32)
	require.Equal(t, "hello there", e.Message)
	require.Equal(t, int64(1500), e.Timestamp)
}

func TestHistoryOrderAndLimit(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	m.Connect(ctx, "c1", "alice", Profile{})
	_, err := m.JoinRoom("room-x", "", "c1")
	require.NoError(t, err)

	require.NoError(t, m.SaveMessage(ctx, "c1", "third", 300))
	require.NoError(t, m.SaveMessage(ctx, "c1", "first", 100))
	require.NoError(t, m.SaveMessage(ctx, "c1", "second", 200))

	entries, err := m.History(ctx, "room-x", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "first", entries[0].Message)
	require.Equal(t, "second", entries[1].Message)

	// limit <= 0 means unbounded
	entries, err = m.History(ctx, "room-x", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
}

func TestSaveMessageErrors(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	err := m.SaveMessage(ctx, "ghost", "hi", 1)
	require.True(t, pkgerrors.Is(err, errs.ErrConnNotFound))

	m.Connect(ctx, "c1", "alice", Profile{})
	err = m.SaveMessage(ctx, "c1", "hi", 1)
	require.True(t, pkgerrors.Is(err, errs.ErrNoRoom))
}

func TestSaveMessageStoreFailureSwallowed(t *testing.T) {
	store := &fakeStore{failAppend: true}
	m := NewManager(NewRegistry(), store, nil, nil)
	ctx := context.Background()

	m.Connect(ctx, "c1", "alice", Profile{})
	room, err := m.JoinRoom("room-x", "", "c1")
	require.NoError(t, err)

	// the append fails, the caller never sees it and the registry is intact
	require.NoError(t, m.SaveMessage(ctx, "c1", "hi", 1))
	got, ok := m.RoomOf("c1")
	require.True(t, ok)
	require.Same(t, room, got)
}

func TestTwoUserScenario(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	m.Connect(ctx, "1", "alice", Profile{})
	first, err := m.JoinRoom("room-x", "", "1")
	require.NoError(t, err)
	require.Equal(t, "room-x", first.ID())

	m.Connect(ctx, "2", "bob", Profile{})
	second, err := m.JoinRoom("room-x", "", "2")
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, 2, second.MemberCount())

	m.Disconnect(ctx, "1")
	require.False(t, second.HasMember("alice"))
	require.True(t, second.HasMember("bob"))
	_, ok := m.Registry().Lookup("1")
	require.False(t, ok)
}

func TestPresenceMirroredOncePerIdentity(t *testing.T) {
	mirror := &fakeMirror{}
	m := NewManager(NewRegistry(), &fakeStore{}, mirror, nil)
	ctx := context.Background()

	m.Connect(ctx, "c1", "alice", Profile{})
	m.Connect(ctx, "c2", "alice", Profile{})
	require.Equal(t, []string{"alice", "alice"}, mirror.online)

	// offline fires only when the identity's last connection goes
	m.Disconnect(ctx, "c1")
	require.Empty(t, mirror.offline)
	m.Disconnect(ctx, "c2")
	require.Equal(t, []string{"alice"}, mirror.offline)
}
