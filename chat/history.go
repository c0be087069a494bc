package chat

import "context"

// HistoryEntry is the durable external record shape. Field names are the
// stored document keys and must stay stable across implementations.
type HistoryEntry struct {
	ChatID    string `bson:"chat_id" json:"chat_id"`
	ChatTitle string `bson:"chat_title" json:"chat_title"`
	UserID    string `bson:"user_id" json:"user_id"`
	Username  string `bson:"username" json:"username"`
	Avatar16  string `bson:"avatar_16" json:"avatar_16"`
	Avatar32  string `bson:"avatar_32" json:"avatar_32"`
	Message   string `bson:"message" json:"message"`
	Timestamp int64  `bson:"timestamp" json:"timestamp"`
}

// Store is the contract the persistence layer has to satisfy. Entries are
// append-only; nothing in this subsystem mutates or deletes them. Query
// returns entries for one chat id ordered by timestamp ascending, capped at
// limit when limit > 0.
type Store interface {
	Append(ctx context.Context, entry *HistoryEntry) error
	Query(ctx context.Context, chatID string, limit int64) ([]HistoryEntry, error)
}

// PresenceMirror reflects register/unregister events into an external
// best-effort presence record. The in-process registry stays authoritative.
type PresenceMirror interface {
	Online(ctx context.Context, identity string) error
	Offline(ctx context.Context, identity string) error
}
