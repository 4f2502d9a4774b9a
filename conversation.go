package ragchat

// Conversation is the ordered history of Turns plus the active context and
// model selection. Turn order is chronological.
//
// A Conversation is mutated only by its owning reducer. Observers receive
// copies made with Clone.
type Conversation struct {
	ContextID string
	Model     string
	Turns     []Turn
}

// SetContext switches the active context. Switching to a different context
// clears the turn history so nothing leaks across document sources.
func (c *Conversation) SetContext(id string) {
	if id == c.ContextID {
		return
	}
	c.ContextID = id
	c.Turns = nil
}

// OpenTurn returns the index of the assistant turn that still accepts
// frames, located by status rather than position.
func (c *Conversation) OpenTurn() (int, bool) {
	for i := len(c.Turns) - 1; i >= 0; i-- {
		t := c.Turns[i]
		if t.Role == RoleAssistant && t.Status.Open() {
			return i, true
		}
	}
	return -1, false
}

// RemoveTurn deletes the turn with the given ID. It reports whether a turn
// was removed.
func (c *Conversation) RemoveTurn(id string) bool {
	for i, t := range c.Turns {
		if t.ID == id {
			c.Turns = append(c.Turns[:i], c.Turns[i+1:]...)
			return true
		}
	}
	return false
}

// History returns the completed exchange so far as role/content pairs.
// Assistant turns that never completed are skipped, as are their empty
// placeholders.
func (c *Conversation) History() []HistoryMessage {
	var msgs []HistoryMessage
	for _, t := range c.Turns {
		if t.Role == RoleAssistant && t.Status != TurnComplete {
			continue
		}
		msgs = append(msgs, HistoryMessage{Role: t.Role, Content: t.Content})
	}
	return msgs
}

// Clone returns a deep copy safe to hand to another goroutine.
func (c Conversation) Clone() Conversation {
	out := Conversation{ContextID: c.ContextID, Model: c.Model}
	if c.Turns == nil {
		return out
	}
	out.Turns = make([]Turn, len(c.Turns))
	for i, t := range c.Turns {
		if t.Sources != nil {
			t.Sources = append([]Source(nil), t.Sources...)
		}
		out.Turns[i] = t
	}
	return out
}
