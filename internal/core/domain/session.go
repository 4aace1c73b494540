package domain

// Role identifies who spoke a turn.
type Role string

// Available roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Session is the ordered conversation history for one session id.
type Session struct {
	ID    string `json:"session_id"`
	Turns []Turn `json:"turns"`
}

// DefaultSessionID is used when a chat request does not name a session.
const DefaultSessionID = "default_session"
