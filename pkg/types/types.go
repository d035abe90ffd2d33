package types

// Role identifies the speaker of a chat turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the roles a chat template understands.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ChatTurn is one role-tagged message of a conversation, oldest first.
type ChatTurn struct {
	// Speaker of the turn: system, user or assistant.
	// example: user
	Role Role `json:"role" example:"user"`
	// Message text.
	// example: 你好
	Content string `json:"content" example:"你好"`
}
