package model

// EventType discriminates scan progress events on the outward stream.
type EventType string

const (
	EventStatus    EventType = "status"
	EventProgress  EventType = "progress"
	EventThread    EventType = "thread"
	EventCompleted EventType = "completed"
	EventCancelled EventType = "cancelled"
	EventError     EventType = "error"
)

// Terminal reports whether this event type ends the stream. Per-candidate
// errors are emitted as non-terminal error events by setting Fatal=false on
// the event itself, so EventError alone is not sufficient.
func (t EventType) Terminal() bool {
	return t == EventCompleted || t == EventCancelled
}

// ScanEvent is one entry on a session's ordered event stream.
type ScanEvent struct {
	Type    EventType `json:"type"`
	Message string    `json:"message,omitempty"`

	// Progress fields, set for EventProgress.
	Current int `json:"current,omitempty"`
	Total   int `json:"total,omitempty"`

	// Thread payload, set for EventThread.
	Thread *ThreadAnalysis `json:"thread,omitempty"`

	// Completion summary, set for EventCompleted.
	TotalThreads int `json:"total_threads,omitempty"`

	// Error detail, set for EventError. Fatal error events terminate the
	// stream; non-fatal ones report a skipped candidate.
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
	Fatal   bool   `json:"fatal,omitempty"`
}
