package chat

import (
	"context"

	"wschat/tools/errs"

	"go.uber.org/zap"
)

// Manager composes the registry and the history store and exposes the
// operations the transport layer calls on connect, join, message, history and
// disconnect events. Registry state is process-local; store calls may block
// on I/O and never run under the registry lock.
type Manager struct {
	reg      *Registry
	store    Store
	presence PresenceMirror // optional, may be nil
	log      *zap.Logger
}

func NewManager(reg *Registry, store Store, presence PresenceMirror, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{reg: reg, store: store, presence: presence, log: log}
}

func (m *Manager) Registry() *Registry { return m.reg }

// Connect registers the connection and mirrors the identity online.
// Mirror failures are logged, never surfaced: presence is best effort.
func (m *Manager) Connect(ctx context.Context, connID, identity string, p Profile) *User {
	u := m.reg.Register(connID, identity, p)
	if m.presence != nil {
		if err := m.presence.Online(ctx, identity); err != nil {
			m.log.Warn("presence online failed",
				zap.String("identity", identity), zap.Error(err))
		}
	}
	m.log.Info("connected",
		zap.String("conn", connID), zap.String("identity", identity))
	return u
}

// JoinRoom assigns (creating on first reference) the room to the connection.
// All participants of one logical room share a single in-memory instance.
func (m *Manager) JoinRoom(roomID, title, connID string) (*Room, error) {
	room, err := m.reg.JoinRoom(roomID, title, connID)
	if err != nil {
		return nil, err
	}
	m.log.Info("joined room",
		zap.String("conn", connID), zap.String("room", roomID),
		zap.Int("members", room.MemberCount()))
	return room, nil
}

// RoomOf is a convenience lookup of the connection's current room.
func (m *Manager) RoomOf(connID string) (*Room, bool) {
	return m.reg.RoomOf(connID)
}

// Disconnect removes the connection and detaches it from its room. The
// identity is mirrored offline only when its last connection is gone.
func (m *Manager) Disconnect(ctx context.Context, connID string) {
	u := m.reg.Unregister(connID)
	if u == nil {
		return
	}
	if m.presence != nil && !m.reg.HasIdentity(u.Identity) {
		if err := m.presence.Offline(ctx, u.Identity); err != nil {
			m.log.Warn("presence offline failed",
				zap.String("identity", u.Identity), zap.Error(err))
		}
	}
	m.log.Info("disconnected",
		zap.String("conn", connID), zap.String("identity", u.Identity))
}

// SaveMessage persists one chat message sent over the given connection. The
// registry part is synchronous: an unknown handle or a roomless connection is
// reported to the caller. A store failure is logged and swallowed so delivery
// to live participants is never blocked by persistence.
func (m *Manager) SaveMessage(ctx context.Context, connID, message string, timestamp int64) error {
	u, ok := m.reg.Lookup(connID)
	if !ok {
		return errs.ErrConnNotFound.WithDetail("conn=" + connID)
	}
	room, ok := m.reg.RoomOf(connID)
	if !ok {
		return errs.ErrNoRoom.WithDetail("conn=" + connID)
	}

	entry := &HistoryEntry{
		ChatID:    room.ID(),
		ChatTitle: room.Title(),
		UserID:    u.Identity,
		Username:  u.Profile.Username,
		Avatar16:  u.Profile.Avatar16,
		Avatar32:  u.Profile.Avatar32,
		Message:   message,
		Timestamp: timestamp,
	}
	if err := m.store.Append(ctx, entry); err != nil {
		m.log.Error("history append failed",
			zap.String("room", room.ID()), zap.String("user", u.Identity),
			zap.Error(err))
	}
	return nil
}

// History loads past messages of a room, oldest first. limit <= 0 means
// unbounded. Store errors propagate: the caller decides how to degrade.
func (m *Manager) History(ctx context.Context, roomID string, limit int64) ([]HistoryEntry, error) {
	entries, err := m.store.Query(ctx, roomID, limit)
	if err != nil {
		return nil, errs.ErrStore.WithDetail(err.Error())
	}
	return entries, nil
}
