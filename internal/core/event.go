package core

import "encoding/json"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventPresence carries the room's online list after a membership change.
	EventPresence EventKind = iota
	// EventChatBroadcast carries a chat message verbatim.
	EventChatBroadcast
	// EventTyping carries another member's typing state.
	EventTyping
	// EventEntityMutation carries a task mutation verbatim.
	EventEntityMutation
	// EventError notifies a client about a domain error.
	EventError

	// EventCallRing tells the callee somebody is calling.
	EventCallRing
	// EventCallAnswered tells the caller the callee picked up.
	EventCallAnswered
	// EventCallRejected tells the caller the call will not happen.
	EventCallRejected
	// EventCallCancelled tells the callee the caller gave up ringing.
	EventCallCancelled
	// EventCallEnded tells a party the other side is gone.
	EventCallEnded
)

var eventNames = [...]string{
	EventPresence:       "presence",
	EventChatBroadcast:  "chat_broadcast",
	EventTyping:         "typing",
	EventEntityMutation: "entity_mutation",
	EventError:          "error",
	EventCallRing:       "call_ring",
	EventCallAnswered:   "call_answered",
	EventCallRejected:   "call_rejected",
	EventCallCancelled:  "call_cancelled",
	EventCallEnded:      "call_ended",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

// Reasons attached to terminal call events.
const (
	ReasonOffline      = "offline"
	ReasonDeclined     = "declined"
	ReasonTimeout      = "timeout"
	ReasonCancelled    = "cancelled"
	ReasonHangup       = "hangup"
	ReasonDisconnected = "disconnected"
	ReasonShutdown     = "shutdown"
)

// Event is sent to clients to describe what happened in the system.
// A single Event value may be shared by every recipient of a broadcast and
// must be treated as read-only.
type Event struct {
	Kind     EventKind
	Room     string
	Presence []PresenceEntry
	Payload  json.RawMessage
	Mutation MutationKind
	Typing   *TypingState
	Call     *CallEvent
	Error    *CoreError
}

// PresenceEntry is one online identity in a room.
type PresenceEntry struct {
	UserID       string
	DisplayName  string
	ConnectionID string
}

// TypingState is the typing indicator of one member.
type TypingState struct {
	UserID      string
	DisplayName string
	IsTyping    bool
}

// CallEvent holds data specific to call events. Peer fields describe the
// other party from the recipient's point of view.
type CallEvent struct {
	ChannelID        string
	PeerUserID       string
	PeerDisplayName  string
	PeerConnectionID string
	Reason           string
}
