package core

import (
	"time"

	"github.com/thorx18/project-management-system/internal/metrics"
)

// CallState is the lifecycle stage of a call session.
type CallState int

const (
	CallRinging CallState = iota
	CallConnected
	CallEnded
)

func (s CallState) String() string {
	switch s {
	case CallRinging:
		return "ringing"
	case CallConnected:
		return "connected"
	case CallEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// callSession brokers one call attempt between two connections. The media
// itself is negotiated by the clients with the provider using channelID.
type callSession struct {
	channelID  string
	roomID     string
	caller     *connection
	callerName string
	callee     *connection
	state      CallState
	createdAt  time.Time
	answeredAt time.Time
	timer      *time.Timer
}

func (s *callSession) peerOf(conn *connection) *connection {
	if conn == s.caller {
		return s.callee
	}
	return s.caller
}

func (h *Hub) initiate(conn *connection, cmd *Command) {
	if cmd.ChannelID == "" || cmd.CalleeUserID == "" {
		h.sendError(conn, ErrCodeBadRequest, "channelId and calleeUserId are required")
		return
	}
	roomID := cmd.Room
	if roomID == "" {
		roomID = conn.roomID
	}
	if conn.roomID == "" || roomID != conn.roomID {
		h.sendError(conn, ErrCodeNotInRoom, "join the room before calling")
		return
	}
	if _, exists := h.calls[cmd.ChannelID]; exists {
		h.sendError(conn, ErrCodeChannelInUse, "channel id already belongs to a live call")
		return
	}

	callee := h.rooms[roomID].users[cmd.CalleeUserID]
	if callee == nil {
		metrics.CallsTotal.WithLabelValues(metrics.OutcomeOffline).Inc()
		h.log.Debug().Str("conn_id", conn.id).Str("channel_id", cmd.ChannelID).Str("callee", cmd.CalleeUserID).Msg("callee offline")
		h.deliver(conn, &Event{
			Kind: EventCallRejected,
			Room: roomID,
			Call: &CallEvent{ChannelID: cmd.ChannelID, PeerUserID: cmd.CalleeUserID, Reason: ReasonOffline},
		})
		return
	}
	if callee == conn {
		h.sendError(conn, ErrCodeBadRequest, "cannot call yourself")
		return
	}

	callerName := cmd.DisplayName
	if callerName == "" {
		callerName = conn.displayName
	}

	sess := &callSession{
		channelID:  cmd.ChannelID,
		roomID:     roomID,
		caller:     conn,
		callerName: callerName,
		callee:     callee,
		state:      CallRinging,
		createdAt:  time.Now(),
	}
	h.calls[sess.channelID] = sess
	metrics.ActiveCalls.Inc()
	sess.timer = time.AfterFunc(h.ringTimeout, func() {
		h.post(func() { h.ringExpired(sess) })
	})

	h.log.Info().Str("channel_id", sess.channelID).Str("room", roomID).
		Str("caller", conn.userID).Str("callee", callee.userID).Msg("call ringing")

	// Rings are never deduplicated: a callee already in a call still gets
	// the event and its client decides what to show.
	h.deliver(callee, &Event{
		Kind: EventCallRing,
		Room: roomID,
		Call: &CallEvent{
			ChannelID:        sess.channelID,
			PeerUserID:       conn.userID,
			PeerDisplayName:  callerName,
			PeerConnectionID: conn.id,
		},
	})
}

func (h *Hub) accept(conn *connection, channelID string) {
	sess, ok := h.calls[channelID]
	if !ok || sess.state != CallRinging || sess.callee != conn {
		h.ignored(conn, "call_accept", channelID)
		return
	}

	sess.state = CallConnected
	sess.answeredAt = time.Now()
	sess.timer.Stop()
	metrics.CallsTotal.WithLabelValues(metrics.OutcomeAnswered).Inc()

	h.log.Info().Str("channel_id", channelID).Dur("ring_time", sess.answeredAt.Sub(sess.createdAt)).Msg("call answered")
	h.deliver(sess.caller, h.callEvent(EventCallAnswered, sess, conn, ""))
}

func (h *Hub) reject(conn *connection, channelID string) {
	sess, ok := h.calls[channelID]
	if !ok || sess.state != CallRinging || sess.callee != conn {
		h.ignored(conn, "call_reject", channelID)
		return
	}
	h.endCall(sess, metrics.OutcomeRejected)
	h.deliver(sess.caller, h.callEvent(EventCallRejected, sess, conn, ReasonDeclined))
}

func (h *Hub) cancel(conn *connection, channelID string) {
	sess, ok := h.calls[channelID]
	if !ok || sess.state != CallRinging || sess.caller != conn {
		h.ignored(conn, "call_cancel", channelID)
		return
	}
	h.endCall(sess, metrics.OutcomeCancelled)
	h.deliver(sess.callee, h.callEvent(EventCallCancelled, sess, conn, ReasonCancelled))
}

func (h *Hub) hangup(conn *connection, channelID string) {
	sess, ok := h.calls[channelID]
	if !ok || (sess.caller != conn && sess.callee != conn) {
		h.ignored(conn, "call_hangup", channelID)
		return
	}
	h.endCall(sess, metrics.OutcomeEnded)
	h.deliver(sess.peerOf(conn), h.callEvent(EventCallEnded, sess, conn, ReasonHangup))
}

// ringExpired runs on the hub goroutine when a ring timer fires. The timer
// may fire after the session already ended; the identity check makes that
// a no-op.
func (h *Hub) ringExpired(sess *callSession) {
	if h.calls[sess.channelID] != sess || sess.state != CallRinging {
		return
	}
	h.log.Info().Str("channel_id", sess.channelID).Msg("call ring timed out")
	h.endCall(sess, metrics.OutcomeTimeout)
	h.deliver(sess.caller, h.callEvent(EventCallRejected, sess, sess.callee, ReasonTimeout))
	h.deliver(sess.callee, h.callEvent(EventCallCancelled, sess, sess.caller, ReasonTimeout))
}

// dropCalls ends every session that references conn and tells the other
// party. conn is already closed, so nothing is delivered to it.
func (h *Hub) dropCalls(conn *connection) {
	for _, sess := range h.calls {
		if sess.caller != conn && sess.callee != conn {
			continue
		}
		h.log.Info().Str("channel_id", sess.channelID).Str("conn_id", conn.id).Str("state", sess.state.String()).Msg("call dropped on disconnect")
		h.endCall(sess, metrics.OutcomeDisconnected)
		h.deliver(sess.peerOf(conn), h.callEvent(EventCallEnded, sess, conn, ReasonDisconnected))
	}
}

// endCall discards the session. It is the only place a session leaves the map.
func (h *Hub) endCall(sess *callSession, outcome string) {
	sess.state = CallEnded
	if sess.timer != nil {
		sess.timer.Stop()
	}
	delete(h.calls, sess.channelID)
	metrics.ActiveCalls.Dec()
	metrics.CallsTotal.WithLabelValues(outcome).Inc()
}

// callEvent describes peer to the recipient of a call event.
func (h *Hub) callEvent(kind EventKind, sess *callSession, peer *connection, reason string) *Event {
	call := &CallEvent{ChannelID: sess.channelID, Reason: reason}
	if peer != nil {
		call.PeerUserID = peer.userID
		call.PeerDisplayName = peer.displayName
		call.PeerConnectionID = peer.id
		if peer == sess.caller {
			call.PeerDisplayName = sess.callerName
		}
	}
	return &Event{Kind: kind, Room: sess.roomID, Call: call}
}

func (h *Hub) ignored(conn *connection, verb, channelID string) {
	h.log.Debug().Str("conn_id", conn.id).Str("event", verb).Str("channel_id", channelID).Msg("call event ignored: precondition not met")
}
