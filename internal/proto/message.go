package proto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeJoinRoom       = "join_room"
	InboundTypeLeaveRoom      = "leave_room"
	InboundTypeChatBroadcast  = "chat_broadcast"
	InboundTypeTyping         = "typing"
	InboundTypeEntityMutation = "entity_mutation"
	InboundTypeCallInitiate   = "call_initiate"
	InboundTypeCallAccept     = "call_accept"
	InboundTypeCallReject     = "call_reject"
	InboundTypeCallCancel     = "call_cancel"
	InboundTypeCallHangup     = "call_hangup"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	// EventConnected is sent once after the upgrade.
	EventConnected = "connected"
)

// ID is an identifier that clients may send either as a JSON string or as a
// JSON number. It is always handled as a string.
type ID string

// UnmarshalJSON accepts "42", 42 and null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// JoinRoomData binds the connection to a room and an identity.
type JoinRoomData struct {
	RoomID      ID     `json:"roomId"`
	UserID      ID     `json:"userId"`
	DisplayName string `json:"displayName"`
}

// LeaveRoomData unbinds the connection from a room.
type LeaveRoomData struct {
	RoomID ID `json:"roomId"`
}

// ChatBroadcastData carries an already persisted chat message.
type ChatBroadcastData struct {
	RoomID  ID              `json:"roomId,omitempty"`
	Message json.RawMessage `json:"message"`
}

// TypingData is a typing indicator.
type TypingData struct {
	RoomID      ID     `json:"roomId,omitempty"`
	UserID      ID     `json:"userId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	IsTyping    bool   `json:"isTyping"`
}

// EntityMutationData announces a task that was created, updated or deleted.
type EntityMutationData struct {
	RoomID ID              `json:"roomId,omitempty"`
	Kind   string          `json:"kind"`
	Entity json.RawMessage `json:"entity"`
}

// CallInitiateData rings a user in the caller's room.
type CallInitiateData struct {
	RoomID            ID     `json:"roomId,omitempty"`
	CalleeUserID      ID     `json:"calleeUserId"`
	ChannelID         string `json:"channelId"`
	CallerDisplayName string `json:"callerDisplayName,omitempty"`
}

// CallRefData references an existing call by channel.
type CallRefData struct {
	ChannelID string `json:"channelId"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventConnectedData tells a client its connection id.
type EventConnectedData struct {
	ConnectionID string `json:"connectionId"`
	Protocol     int    `json:"protocol"`
	UserID       string `json:"userId,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
}

// PresenceUser is one entry of a room's online list.
type PresenceUser struct {
	UserID       string `json:"userId"`
	DisplayName  string `json:"displayName"`
	ConnectionID string `json:"connectionId"`
}

// EventPresence is pushed to a room after every membership change.
type EventPresence struct {
	RoomID string         `json:"roomId"`
	Users  []PresenceUser `json:"users"`
}

// EventChatBroadcast relays a chat message verbatim.
type EventChatBroadcast struct {
	RoomID  string          `json:"roomId"`
	Message json.RawMessage `json:"message"`
}

// EventTyping relays another member's typing state.
type EventTyping struct {
	RoomID      string `json:"roomId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	IsTyping    bool   `json:"isTyping"`
}

// EventEntityMutation relays a task mutation verbatim.
type EventEntityMutation struct {
	RoomID string          `json:"roomId"`
	Kind   string          `json:"kind"`
	Entity json.RawMessage `json:"entity"`
}

// EventCall is the payload of every call_* event.
type EventCall struct {
	ChannelID        string `json:"channelId"`
	RoomID           string `json:"roomId,omitempty"`
	PeerUserID       string `json:"peerUserId,omitempty"`
	PeerDisplayName  string `json:"peerDisplayName,omitempty"`
	PeerConnectionID string `json:"peerConnectionId,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
