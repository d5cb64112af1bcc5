package chat

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Message is one entry of a session transcript. Messages are never edited
// after they are appended.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Agent     string    `json:"agent,omitempty"`
	Partial   bool      `json:"partial,omitempty"` // agent output cut short by an error or interruption
	CreatedAt time.Time `json:"createdAt"`
}
