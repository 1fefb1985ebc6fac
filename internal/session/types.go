package session

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation message. Immutable once created.
// Ordinal is strictly increasing within a session and defines replay order.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Ordinal int    `json:"ordinal"`
}

// Session is the durable, append-only ordered history of one conversation.
// Messages carry contiguous ordinals starting at 0.
type Session struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}

// Info is a read-only listing view of a session.
type Info struct {
	ID           string `json:"id"`
	MessageCount int    `json:"message_count"`
}
