package core

import (
	"time"

	"github.com/thorx18/project-management-system/internal/metrics"
)

// ConnectionInfo is a read-only copy of a registered connection.
type ConnectionInfo struct {
	ID          string
	RoomID      string
	UserID      string
	DisplayName string
	ConnectedAt time.Time
}

type connection struct {
	id          string
	client      *Client
	roomID      string
	userID      string
	displayName string
	connectedAt time.Time
	// announced orders announces so the most recent tab can be promoted.
	announced uint64

	closed   bool
	evicting bool
}

func (c *connection) info() ConnectionInfo {
	return ConnectionInfo{
		ID:          c.id,
		RoomID:      c.roomID,
		UserID:      c.userID,
		DisplayName: c.displayName,
		ConnectedAt: c.connectedAt,
	}
}

// room groups the connections sharing a room id. users holds at most one
// connection per user id; order keeps user ids in first-announce order.
type room struct {
	id    string
	conns map[string]*connection
	users map[string]*connection
	order []string
}

func newRoom(id string) *room {
	return &room{
		id:    id,
		conns: make(map[string]*connection),
		users: make(map[string]*connection),
	}
}

// setUser makes conn the presence entry for its user id. A replaced entry
// keeps its position in the list.
func (r *room) setUser(conn *connection) {
	if _, exists := r.users[conn.userID]; !exists {
		r.order = append(r.order, conn.userID)
	}
	r.users[conn.userID] = conn
}

// dropUser removes conn from presence if it is the current entry for its
// user id. Another live connection of the same user takes its place.
// Returns true if the presence list changed.
func (r *room) dropUser(conn *connection) bool {
	if conn.userID == "" || r.users[conn.userID] != conn {
		return false
	}

	var successor *connection
	for _, other := range r.conns {
		if other == conn || other.userID != conn.userID {
			continue
		}
		if successor == nil || other.announced > successor.announced {
			successor = other
		}
	}
	if successor != nil {
		r.users[conn.userID] = successor
		return true
	}

	delete(r.users, conn.userID)
	for i, uid := range r.order {
		if uid == conn.userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (h *Hub) connect(c *Client) {
	if _, exists := h.conns[c.ID]; exists {
		h.log.Warn().Str("conn_id", c.ID).Msg("duplicate connection id ignored")
		return
	}
	h.conns[c.ID] = &connection{
		id:          c.ID,
		client:      c,
		connectedAt: time.Now(),
	}
	metrics.Connections.Inc()
	go h.forward(c)

	h.log.Debug().Str("conn_id", c.ID).Msg("connection registered")
}

func (h *Hub) resolve(connID string) (*connection, bool) {
	conn, ok := h.conns[connID]
	return conn, ok
}

// announce binds conn to roomID under the given identity. A later announce
// for the same user in the same room supersedes the earlier connection
// without notifying it.
func (h *Hub) announce(conn *connection, roomID, userID, displayName string) {
	if roomID == "" {
		h.sendError(conn, ErrCodeBadRequest, "roomId is required")
		return
	}

	switch conn.roomID {
	case "":
	case roomID:
		// Same room, possibly a new identity: swap in place so members see
		// a single presence update.
		if conn.userID != userID {
			h.rooms[roomID].dropUser(conn)
		}
	default:
		h.detach(conn)
	}

	r, ok := h.rooms[roomID]
	if !ok {
		r = newRoom(roomID)
		h.rooms[roomID] = r
		metrics.Rooms.Inc()
	}

	h.seq++
	conn.roomID = roomID
	conn.userID = userID
	conn.displayName = displayName
	conn.announced = h.seq

	r.conns[conn.id] = conn
	if userID != "" {
		r.setUser(conn)
	}

	h.log.Info().Str("conn_id", conn.id).Str("room", roomID).Str("user_id", userID).Msg("joined room")
	h.pushPresence(r)
}

func (h *Hub) leave(conn *connection, roomID string) {
	if conn.roomID == "" || (roomID != "" && roomID != conn.roomID) {
		h.sendError(conn, ErrCodeNotInRoom, "not in room")
		return
	}
	h.log.Info().Str("conn_id", conn.id).Str("room", conn.roomID).Str("user_id", conn.userID).Msg("left room")
	h.detach(conn)
}

// detach removes conn from its room and pushes presence if it changed.
func (h *Hub) detach(conn *connection) {
	r, ok := h.rooms[conn.roomID]
	conn.roomID = ""
	if !ok {
		return
	}

	delete(r.conns, conn.id)
	changed := r.dropUser(conn)

	if len(r.conns) == 0 {
		delete(h.rooms, r.id)
		metrics.Rooms.Dec()
		return
	}
	if changed {
		h.pushPresence(r)
	}
}

// disconnect runs the teardown cascade for a client exactly once: room and
// presence first, then every call session that references the connection.
func (h *Hub) disconnect(c *Client, reason string) {
	conn, ok := h.conns[c.ID]
	if !ok || conn.client != c {
		return
	}

	conn.closed = true
	h.detach(conn)
	h.dropCalls(conn)
	h.closeConnection(conn)

	h.log.Debug().Str("conn_id", conn.id).Str("user_id", conn.userID).Str("reason", reason).Msg("connection unregistered")
}

func (h *Hub) closeConnection(conn *connection) {
	conn.closed = true
	delete(h.conns, conn.id)
	close(conn.client.gone)
	close(conn.client.Events)
	metrics.Connections.Dec()
}
