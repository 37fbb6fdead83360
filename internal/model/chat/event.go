package chat

// EventType names a conversation change.
type EventType string

const (
	EventMessageAppended EventType = "message.appended"
	EventMessagePatched  EventType = "message.patched"
	EventStateChanged    EventType = "state.changed"
	EventNotification    EventType = "notification"
)

// Notification variants.
const (
	VariantDefault     = "default"
	VariantDestructive = "destructive"
)

// Notification is a transient user-visible message.
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Variant     string `json:"variant"`
}

// Event is delivered to conversation observers.
type Event struct {
	Type           EventType     `json:"type"`
	ConversationID string        `json:"conversationId"`
	Message        *Message      `json:"message,omitempty"`
	State          *State        `json:"state,omitempty"`
	Notification   *Notification `json:"notification,omitempty"`
}
