package chat

import (
	"sync"

	"wschat/tools/errs"
)

// Registry owns the live connection -> user mapping and the room index. It is
// constructed at service start and passed by reference; there is no package
// global. Every mutation is serialized behind the mutex, including room
// membership changes, so Room needs no lock of its own.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]*User // connection handle -> user
	byRoom map[string]*Room // room id -> room, only rooms with members
}

func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]*User),
		byRoom: make(map[string]*Room),
	}
}

// Register creates a user record under the connection handle, overwriting any
// prior entry for the same handle. A replaced record is detached from its
// room first so no stale member lingers. No cross-identity uniqueness check:
// one identity may hold several handles.
func (r *Registry) Register(connID, identity string, p Profile) *User {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byConn[connID]; ok {
		r.detachLocked(prev)
	}
	u := NewUser(connID, identity, p)
	r.byConn[connID] = u
	return u
}

// Lookup returns the record for the handle, if registered.
func (r *Registry) Lookup(connID string) (*User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byConn[connID]
	return u, ok
}

// FindMembership scans registered users and returns the handle of the first
// whose identity and current room both match. Linear scan; fine for the
// tens-to-hundreds of concurrent connections a single gateway carries.
func (r *Registry) FindMembership(identity, roomID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for connID, u := range r.byConn {
		if u.Identity != identity || u.room == nil {
			continue
		}
		if u.room.id == roomID {
			return connID, true
		}
	}
	return "", false
}

// HasIdentity reports whether any registered connection belongs to identity.
func (r *Registry) HasIdentity(identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byConn {
		if u.Identity == identity {
			return true
		}
	}
	return false
}

// Unregister removes the record and detaches it from its room. Returns the
// removed user, or nil if the handle was unknown.
func (r *Registry) Unregister(connID string) *User {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byConn[connID]
	if !ok {
		return nil
	}
	r.detachLocked(u)
	delete(r.byConn, connID)
	return u
}

// JoinRoom assigns the room with the given id to the connection, creating the
// room on first reference. The user leaves their previous room first. A
// non-empty title is applied to the room. Returns errs.ErrConnNotFound for an
// unknown handle.
func (r *Registry) JoinRoom(roomID, title, connID string) (*Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byConn[connID]
	if !ok {
		return nil, errs.ErrConnNotFound.WithDetail("conn=" + connID)
	}
	if u.room != nil && u.room.id == roomID {
		if title != "" {
			u.room.SetTitle(title)
		}
		return u.room, nil
	}
	r.detachLocked(u)

	room, ok := r.byRoom[roomID]
	if !ok {
		room = NewRoom(roomID)
		r.byRoom[roomID] = room
	}
	if title != "" {
		room.SetTitle(title)
	}
	room.AddMember(u)
	u.room = room
	return room, nil
}

// RoomOf returns the connection's current room.
func (r *Registry) RoomOf(connID string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byConn[connID]
	if !ok || u.room == nil {
		return nil, false
	}
	return u.room, true
}

// Room returns the live room with the given id, if any member is joined.
func (r *Registry) Room(roomID string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.byRoom[roomID]
	return room, ok
}

// RoomMembers returns a snapshot of the member set of a room.
func (r *Registry) RoomMembers(roomID string) []*User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.byRoom[roomID]
	if !ok {
		return nil
	}
	return room.Members()
}

func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// detachLocked removes the user from their current room and drops the room
// from the index once empty. Empty rooms are garbage, not kept for reuse; a
// later join under the same id gets a fresh instance.
//
// Membership is keyed by identity, so another connection of the same identity
// may still be joined to the room; the member slot is then re-pointed at that
// survivor instead of being deleted.
func (r *Registry) detachLocked(u *User) {
	if u.room == nil {
		return
	}
	room := u.room
	u.room = nil
	for _, other := range r.byConn {
		if other != u && other.Identity == u.Identity && other.room == room {
			room.AddMember(other)
			return
		}
	}
	room.RemoveMember(u)
	if room.MemberCount() == 0 {
		delete(r.byRoom, room.id)
	}
}
