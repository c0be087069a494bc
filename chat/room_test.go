package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoomMembershipKeyedByIdentity(t *testing.T) {
	room := NewRoom("room-x")
	require.Equal(t, "room-x", room.ID())
	require.Equal(t, 0, room.MemberCount())

	a1 := NewUser("c1", "alice", Profile{Username: "Alice"})
	a2 := NewUser("c2", "alice", Profile{Username: "Alice"})
	b := NewUser("c3", "bob", Profile{Username: "Bob"})

	room.AddMember(a1)
	room.AddMember(b)
	require.Equal(t, 2, room.MemberCount())

	// second connection of the same identity overwrites the slot
	room.AddMember(a2)
	require.Equal(t, 2, room.MemberCount())
	require.True(t, room.HasMember("alice"))

	room.RemoveMember(a2)
	require.False(t, room.HasMember("alice"))
	require.Equal(t, 1, room.MemberCount())

	// removing an absent member is a no-op
	room.RemoveMember(a1)
	require.Equal(t, 1, room.MemberCount())
}

func TestRoomMembersSnapshot(t *testing.T) {
	room := NewRoom("room-x")
	room.AddMember(NewUser("c1", "alice", Profile{}))
	room.AddMember(NewUser("c2", "bob", Profile{}))

	members := room.Members()
	require.Len(t, members, 2)

	room.RemoveMember(NewUser("c1", "alice", Profile{}))
	// the snapshot is detached from the live set
	require.Len(t, members, 2)
	require.Equal(t, 1, room.MemberCount())
}
