package core

// snapshot lists the room's online identities in first-announce order.
// It is derived from the registry on every call, never cached.
func (h *Hub) snapshot(roomID string) []PresenceEntry {
	r, ok := h.rooms[roomID]
	if !ok {
		return []PresenceEntry{}
	}
	out := make([]PresenceEntry, 0, len(r.order))
	for _, uid := range r.order {
		conn := r.users[uid]
		out = append(out, PresenceEntry{
			UserID:       uid,
			DisplayName:  conn.displayName,
			ConnectionID: conn.id,
		})
	}
	return out
}

func (h *Hub) pushPresence(r *room) {
	ev := &Event{
		Kind:     EventPresence,
		Room:     r.id,
		Presence: h.snapshot(r.id),
	}
	for _, conn := range r.conns {
		h.deliver(conn, ev)
	}
}
