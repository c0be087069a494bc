package chat

// Profile carries the display attributes the transport layer hands over on
// connect. They are stored as-is and copied into every history entry.
type Profile struct {
	Username string `json:"username"`
	Avatar16 string `json:"avatar_16"`
	Avatar32 string `json:"avatar_32"`
}

// User is one live connection of a participant. The same identity may be
// registered under several connection handles at once (multiple tabs or
// devices); each gets its own User.
type User struct {
	ConnID   string // transport-assigned connection handle, unique while connected
	Identity string // stable external user id
	Profile  Profile

	// current room, nil while not joined; written only under the owning
	// registry's lock
	room *Room
}

func NewUser(connID, identity string, p Profile) *User {
	return &User{ConnID: connID, Identity: identity, Profile: p}
}

// Room returns the user's current room, or nil.
func (u *User) Room() *Room { return u.room }
