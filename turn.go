package ragchat

import "time"

// TurnStatus indicates where a Turn is in its lifecycle.
type TurnStatus string

const (
	TurnPending   TurnStatus = "pending"   // Assistant placeholder, no content yet.
	TurnStreaming TurnStatus = "streaming" // At least one content delta applied.
	TurnComplete  TurnStatus = "complete"  // Terminal. Stream ended normally.
	TurnFailed    TurnStatus = "failed"    // Transient. Removed from the conversation right after.
	TurnCancelled TurnStatus = "cancelled" // Terminal. Caller aborted; content frozen.
)

// Open reports whether a turn with this status still accepts frames.
func (s TurnStatus) Open() bool {
	return s == TurnPending || s == TurnStreaming
}

// Source is a citation attached to an assistant answer.
type Source struct {
	Locator  string   // origin reference, usually a URL
	Excerpt  string   // supporting text snippet
	Distance *float64 // similarity distance; nil when the server omits it
}

// Turn is one conversational unit. Content is append-only while the turn is
// open. Sources are set at most once.
type Turn struct {
	ID        string
	Role      Role
	Content   string
	Sources   []Source
	Method    string
	Status    TurnStatus
	CreatedAt time.Time
}

// HistoryMessage is the role/content pair sent to the server for multi-turn
// continuity.
type HistoryMessage struct {
	Role    Role
	Content string
}
