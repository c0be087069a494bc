package chat

import "sync"

// Room is a named grouping of users. The id is externally supplied and
// immutable; all participants of the same logical room share one instance.
// Membership is keyed by identity, so two connections of the same identity
// count as one member.
//
// Membership is mutated only by the owning registry, but the instance is
// handed out to the transport layer for fan-out, so reads are guarded here.
type Room struct {
	id string

	mu      sync.RWMutex
	title   string
	members map[string]*User // identity -> user
}

func NewRoom(id string) *Room {
	return &Room{id: id, members: make(map[string]*User)}
}

func (r *Room) ID() string { return r.id }

func (r *Room) Title() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.title
}

func (r *Room) SetTitle(title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.title = title
}

// AddMember inserts or overwrites the member slot for the user's identity.
func (r *Room) AddMember(u *User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[u.Identity] = u
}

// RemoveMember deletes by identity; no-op if absent.
func (r *Room) RemoveMember(u *User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, u.Identity)
}

func (r *Room) HasMember(identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[identity]
	return ok
}

func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Members returns a snapshot of the current member set.
func (r *Room) Members() []*User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*User, 0, len(r.members))
	for _, u := range r.members {
		out = append(out, u)
	}
	return out
}
