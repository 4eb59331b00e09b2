package core

import "encoding/json"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom binds the connection to a room and identity.
	CommandJoinRoom CommandKind = iota
	// CommandLeaveRoom unbinds the connection from its room.
	CommandLeaveRoom
	// CommandChatBroadcast relays an already persisted chat message.
	CommandChatBroadcast
	// CommandTyping relays a typing indicator to everyone but the sender.
	CommandTyping
	// CommandEntityMutation relays a task created/updated/deleted notice.
	CommandEntityMutation
	// CommandCallInitiate rings a user present in the caller's room.
	CommandCallInitiate
	// CommandCallAccept answers a ringing call.
	CommandCallAccept
	// CommandCallReject declines a ringing call.
	CommandCallReject
	// CommandCallCancel withdraws an unanswered call.
	CommandCallCancel
	// CommandCallHangup ends a call from either side.
	CommandCallHangup
)

var commandNames = [...]string{
	CommandJoinRoom:       "join_room",
	CommandLeaveRoom:      "leave_room",
	CommandChatBroadcast:  "chat_broadcast",
	CommandTyping:         "typing",
	CommandEntityMutation: "entity_mutation",
	CommandCallInitiate:   "call_initiate",
	CommandCallAccept:     "call_accept",
	CommandCallReject:     "call_reject",
	CommandCallCancel:     "call_cancel",
	CommandCallHangup:     "call_hangup",
}

func (k CommandKind) String() string {
	if k < 0 || int(k) >= len(commandNames) {
		return "unknown"
	}
	return commandNames[k]
}

// MutationKind names what happened to a relayed entity.
type MutationKind string

const (
	MutationCreated MutationKind = "created"
	MutationUpdated MutationKind = "updated"
	MutationDeleted MutationKind = "deleted"
)

// Valid reports whether m is one of the known mutation kinds.
func (m MutationKind) Valid() bool {
	switch m {
	case MutationCreated, MutationUpdated, MutationDeleted:
		return true
	default:
		return false
	}
}

// Command represents an action requested by a client. Only the fields
// relevant to Kind are read.
type Command struct {
	Kind        CommandKind
	Room        string
	UserID      string
	DisplayName string

	Payload  json.RawMessage
	Mutation MutationKind
	IsTyping bool

	CalleeUserID string
	ChannelID    string
}
