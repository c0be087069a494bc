package gateway

import (
	"encoding/json"
	"time"

	"wschat/chat"

	"github.com/pkg/errors"
)

// Frame types. Clients send join/message/history; the server answers with
// connected/joined/message/history/error.
const (
	TypeJoin      = "join"
	TypeMessage   = "message"
	TypeHistory   = "history"
	TypeConnected = "connected"
	TypeJoined    = "joined"
	TypeError     = "error"
)

// Frame is the single wire envelope; unused fields stay empty.
type Frame struct {
	Type      string              `json:"type"`
	ConnID    string              `json:"conn_id,omitempty"`
	Gateway   string              `json:"gateway,omitempty"`
	Room      string              `json:"room,omitempty"`
	Title     string              `json:"title,omitempty"`
	UserID    string              `json:"user_id,omitempty"`
	Username  string              `json:"username,omitempty"`
	Avatar16  string              `json:"avatar_16,omitempty"`
	Avatar32  string              `json:"avatar_32,omitempty"`
	Message   string              `json:"message,omitempty"`
	Timestamp int64               `json:"timestamp,omitempty"`
	Limit     int64               `json:"limit,omitempty"`
	Members   []Member            `json:"members,omitempty"`
	Entries   []chat.HistoryEntry `json:"entries,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// Member is the projection of a room member sent to clients.
type Member struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Avatar16 string `json:"avatar_16"`
	Avatar32 string `json:"avatar_32"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, errors.Wrap(err, "unmarshal frame")
	}
	if f.Type == "" {
		return nil, errors.New("frame type missing")
	}
	return f, nil
}

func (f *Frame) Encode() []byte {
	b, _ := json.Marshal(f)
	return b
}

// ---- server-side frame builders ----

func BuildConnected(connID, gatewayID string) *Frame {
	return &Frame{
		Type:      TypeConnected,
		ConnID:    connID,
		Gateway:   gatewayID,
		Timestamp: time.Now().UnixMilli(),
	}
}

func BuildJoined(room *chat.Room, joined *chat.User) *Frame {
	members := room.Members()
	out := make([]Member, 0, len(members))
	for _, m := range members {
		out = append(out, Member{
			UserID:   m.Identity,
			Username: m.Profile.Username,
			Avatar16: m.Profile.Avatar16,
			Avatar32: m.Profile.Avatar32,
		})
	}
	return &Frame{
		Type:      TypeJoined,
		Room:      room.ID(),
		Title:     room.Title(),
		UserID:    joined.Identity,
		Username:  joined.Profile.Username,
		Timestamp: time.Now().UnixMilli(),
		Members:   out,
	}
}

func BuildMessage(room *chat.Room, from *chat.User, message string, ts int64) *Frame {
	return &Frame{
		Type:      TypeMessage,
		Room:      room.ID(),
		UserID:    from.Identity,
		Username:  from.Profile.Username,
		Avatar16:  from.Profile.Avatar16,
		Avatar32:  from.Profile.Avatar32,
		Message:   message,
		Timestamp: ts,
	}
}

func BuildHistory(roomID string, entries []chat.HistoryEntry) *Frame {
	return &Frame{Type: TypeHistory, Room: roomID, Entries: entries}
}

func BuildError(msg string) *Frame {
	return &Frame{Type: TypeError, Error: msg, Timestamp: time.Now().UnixMilli()}
}
