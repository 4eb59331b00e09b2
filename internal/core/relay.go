package core

import "bytes"

// relayFrom fans a client-originated chat, typing or mutation event out to
// the sender's room. Typing indicators skip the sender.
func (h *Hub) relayFrom(conn *connection, cmd *Command) {
	roomID := cmd.Room
	if roomID == "" {
		roomID = conn.roomID
	}
	if conn.roomID == "" || roomID != conn.roomID {
		h.sendError(conn, ErrCodeNotInRoom, "join the room before publishing to it")
		return
	}

	ev, cerr := relayEvent(roomID, cmd, conn)
	if cerr != nil {
		h.sendError(conn, cerr.Code, cerr.Message)
		return
	}

	var skip *connection
	if cmd.Kind == CommandTyping {
		skip = conn
	}
	h.broadcast(roomID, ev, skip)
}

// relayEvent builds the outbound event for a relayable command. origin is
// nil for collaborator-published events.
func relayEvent(roomID string, cmd *Command, origin *connection) (*Event, *CoreError) {
	switch cmd.Kind {
	case CommandChatBroadcast:
		if isEmptyPayload(cmd.Payload) {
			return nil, coreError(ErrCodeBadRequest, "message is required")
		}
		return &Event{Kind: EventChatBroadcast, Room: roomID, Payload: cmd.Payload}, nil
	case CommandEntityMutation:
		if !cmd.Mutation.Valid() {
			return nil, coreError(ErrCodeBadRequest, "kind must be created, updated or deleted")
		}
		if isEmptyPayload(cmd.Payload) {
			return nil, coreError(ErrCodeBadRequest, "entity is required")
		}
		return &Event{Kind: EventEntityMutation, Room: roomID, Mutation: cmd.Mutation, Payload: cmd.Payload}, nil
	case CommandTyping:
		state := &TypingState{UserID: cmd.UserID, DisplayName: cmd.DisplayName, IsTyping: cmd.IsTyping}
		if origin != nil && origin.userID != "" {
			state.UserID = origin.userID
			state.DisplayName = origin.displayName
		}
		return &Event{Kind: EventTyping, Room: roomID, Typing: state}, nil
	default:
		return nil, coreError(ErrCodeBadRequest, "not a relayable event")
	}
}

// broadcast delivers ev to every connection in roomID except skip and
// returns how many accepted it. Unknown rooms are a no-op.
func (h *Hub) broadcast(roomID string, ev *Event, skip *connection) int {
	r, ok := h.rooms[roomID]
	if !ok {
		return 0
	}
	delivered := 0
	for _, conn := range r.conns {
		if conn == skip {
			continue
		}
		if h.deliver(conn, ev) {
			delivered++
		}
	}
	return delivered
}

func isEmptyPayload(p []byte) bool {
	p = bytes.TrimSpace(p)
	return len(p) == 0 || bytes.Equal(p, []byte("null"))
}
