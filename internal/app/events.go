package app

// EventType represents the type of event
type EventType int

const (
	EventViewChanged EventType = iota
	EventMergeProposed
	EventPreferencesChanged
	EventConfigReloaded
	EventError
	EventPresenceChanged
	EventPluginNotice
)

// String returns the string representation of the event type
func (t EventType) String() string {
	switch t {
	case EventViewChanged:
		return "view_changed"
	case EventMergeProposed:
		return "merge_proposed"
	case EventPreferencesChanged:
		return "preferences_changed"
	case EventConfigReloaded:
		return "config_reloaded"
	case EventError:
		return "error"
	case EventPresenceChanged:
		return "presence_changed"
	case EventPluginNotice:
		return "plugin_notice"
	default:
		return "unknown"
	}
}

// EventMsg represents an event from the app layer
type EventMsg struct {
	Type EventType
	Data interface{}
}

// EventHandler is a function that handles events
type EventHandler func(event EventMsg)

// EventBus handles event subscription and publishing. It is not safe for
// concurrent use; only the goroutine that owns the roster touches it.
type EventBus struct {
	handlers map[EventType][]EventHandler
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]EventHandler),
	}
}

// Subscribe subscribes to an event type
func (b *EventBus) Subscribe(eventType EventType, handler EventHandler) {
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish calls the subscribers of the event type in subscription order.
// Handlers run on the publishing goroutine, which owns the roster.
func (b *EventBus) Publish(event EventMsg) {
	for _, handler := range b.handlers[event.Type] {
		handler(event)
	}
}

// Unsubscribe removes all handlers for an event type
func (b *EventBus) Unsubscribe(eventType EventType) {
	delete(b.handlers, eventType)
}

// Clear removes all handlers
func (b *EventBus) Clear() {
	b.handlers = make(map[EventType][]EventHandler)
}
