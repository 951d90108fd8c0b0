package session

import "strings"

// Role identifies who authored a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the conversation log.
type Turn struct {
	Role    Role
	Content string
}

// Conversation is the ordered turn log. Insertion order is display order.
type Conversation []Turn

// Last returns the final turn and whether one exists.
func (c Conversation) Last() (Turn, bool) {
	if len(c) == 0 {
		return Turn{}, false
	}
	return c[len(c)-1], true
}

// LastOf returns the most recent turn with the given role.
func (c Conversation) LastOf(role Role) (Turn, bool) {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Role == role {
			return c[i], true
		}
	}
	return Turn{}, false
}

// LastExchange returns the most recent user turn and the assistant turns
// that follow it, which is what the single-turn completions view shows.
func (c Conversation) LastExchange() Conversation {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Role == RoleUser {
			return c[i:].Clone()
		}
	}
	return c.Clone()
}

// Clone returns an independent copy.
func (c Conversation) Clone() Conversation {
	if c == nil {
		return nil
	}
	return append(Conversation(nil), c...)
}

// Transcript renders the log as plain text, one "role: content" block per turn.
func (c Conversation) Transcript() string {
	var b strings.Builder
	for i, t := range c {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(string(t.Role))
		b.WriteString(": ")
		b.WriteString(t.Content)
	}
	return b.String()
}
