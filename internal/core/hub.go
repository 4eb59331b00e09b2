package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/thorx18/project-management-system/internal/metrics"
)

// DefaultRingTimeout is how long an unanswered call may ring.
const DefaultRingTimeout = 30 * time.Second

// Options tunes the hub. Zero values fall back to defaults.
type Options struct {
	RingTimeout time.Duration
	Logger      *zerolog.Logger
}

// Stats is a point-in-time count of hub state.
type Stats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
	Calls       int `json:"calls"`
}

type inbound struct {
	client *Client
	cmd    *Command
}

// Hub owns every piece of collaboration state: the connection registry,
// room presence and call sessions. All of it is mutated only by the Run
// goroutine, so a handler always runs to completion before the next event
// and a presence or call broadcast can never observe stale membership.
type Hub struct {
	ringTimeout time.Duration
	log         *zerolog.Logger

	register   chan *Client
	unregister chan *Client
	inbox      chan inbound
	tasks      chan func()
	done       chan struct{}

	// Owned by Run.
	conns   map[string]*connection
	rooms   map[string]*room
	calls   map[string]*callSession
	evicted []*connection
	seq     uint64
}

// NewHub creates a new collaboration hub. Call Run to start it.
func NewHub(opts Options) *Hub {
	if opts.RingTimeout <= 0 {
		opts.RingTimeout = DefaultRingTimeout
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	logger := opts.Logger.With().Str("component", "hub").Logger()

	return &Hub{
		ringTimeout: opts.RingTimeout,
		log:         &logger,
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		inbox:       make(chan inbound, 256),
		tasks:       make(chan func(), 64),
		done:        make(chan struct{}),
		conns:       make(map[string]*connection),
		rooms:       make(map[string]*room),
		calls:       make(map[string]*callSession),
	}
}

// Run processes events until ctx is cancelled. It must be called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	h.log.Info().Dur("ring_timeout", h.ringTimeout).Msg("hub started")

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			h.log.Info().Msg("hub stopped")
			return
		case c := <-h.register:
			h.connect(c)
		case c := <-h.unregister:
			h.disconnect(c, "closed")
		case in := <-h.inbox:
			h.dispatch(in.client, in.cmd)
		case task := <-h.tasks:
			task()
		}
		h.flushEvictions()
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// RegisterClient hands a freshly opened connection to the hub. It returns
// ErrHubStopped once Run has returned.
func (h *Hub) RegisterClient(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// UnregisterClient tears a connection down. Safe to call more than once.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Presence returns the current presence snapshot of a room.
func (h *Hub) Presence(ctx context.Context, roomID string) ([]PresenceEntry, error) {
	reply := make(chan []PresenceEntry, 1)
	if err := h.call(ctx, func() { reply <- h.snapshot(roomID) }); err != nil {
		return nil, err
	}
	return await(ctx, h.done, reply)
}

// Publish relays a collaborator-produced chat message or entity mutation to
// every connection in roomID. It returns how many connections received it;
// an empty room is not an error.
func (h *Hub) Publish(ctx context.Context, roomID string, cmd *Command) (int, error) {
	if roomID == "" {
		return 0, coreError(ErrCodeBadRequest, "room is required")
	}
	if cmd.Kind != CommandChatBroadcast && cmd.Kind != CommandEntityMutation {
		return 0, coreError(ErrCodeBadRequest, "only chat_broadcast and entity_mutation can be published")
	}
	ev, cerr := relayEvent(roomID, cmd, nil)
	if cerr != nil {
		return 0, cerr
	}

	reply := make(chan int, 1)
	if err := h.call(ctx, func() {
		metrics.EventsTotal.WithLabelValues(cmd.Kind.String()).Inc()
		reply <- h.broadcast(roomID, ev, nil)
	}); err != nil {
		return 0, err
	}
	return await(ctx, h.done, reply)
}

// Stats returns counts of live connections, rooms and calls.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	if err := h.call(ctx, func() {
		reply <- Stats{Connections: len(h.conns), Rooms: len(h.rooms), Calls: len(h.calls)}
	}); err != nil {
		return Stats{}, err
	}
	return await(ctx, h.done, reply)
}

// Resolve looks up a live connection by id.
func (h *Hub) Resolve(ctx context.Context, connID string) (ConnectionInfo, error) {
	type result struct {
		info ConnectionInfo
		ok   bool
	}
	reply := make(chan result, 1)
	if err := h.call(ctx, func() {
		conn, ok := h.resolve(connID)
		if !ok {
			reply <- result{}
			return
		}
		reply <- result{info: conn.info(), ok: true}
	}); err != nil {
		return ConnectionInfo{}, err
	}
	res, err := await(ctx, h.done, reply)
	if err != nil {
		return ConnectionInfo{}, err
	}
	if !res.ok {
		return ConnectionInfo{}, ErrConnectionNotFound
	}
	return res.info, nil
}

// call schedules task on the hub goroutine.
func (h *Hub) call(ctx context.Context, task func()) error {
	select {
	case h.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}
}

// post schedules task without a caller context; used by timers.
func (h *Hub) post(task func()) {
	select {
	case h.tasks <- task:
	case <-h.done:
	}
}

func await[T any](ctx context.Context, done <-chan struct{}, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-done:
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrHubStopped
		}
	}
}

// forward pumps a client's commands into the shared inbox so that each
// client's commands keep their order.
func (h *Hub) forward(c *Client) {
	for {
		select {
		case cmd, ok := <-c.Commands:
			if !ok {
				return
			}
			select {
			case h.inbox <- inbound{client: c, cmd: cmd}:
			case <-c.gone:
				return
			case <-h.done:
				return
			}
		case <-c.gone:
			return
		case <-h.done:
			return
		}
	}
}

func (h *Hub) dispatch(c *Client, cmd *Command) {
	conn, ok := h.conns[c.ID]
	if !ok || conn.client != c || cmd == nil {
		h.log.Debug().Str("conn_id", c.ID).Msg("command from unregistered connection ignored")
		return
	}
	metrics.EventsTotal.WithLabelValues(cmd.Kind.String()).Inc()

	switch cmd.Kind {
	case CommandJoinRoom:
		h.announce(conn, cmd.Room, cmd.UserID, cmd.DisplayName)
	case CommandLeaveRoom:
		h.leave(conn, cmd.Room)
	case CommandChatBroadcast, CommandTyping, CommandEntityMutation:
		h.relayFrom(conn, cmd)
	case CommandCallInitiate:
		h.initiate(conn, cmd)
	case CommandCallAccept:
		h.accept(conn, cmd.ChannelID)
	case CommandCallReject:
		h.reject(conn, cmd.ChannelID)
	case CommandCallCancel:
		h.cancel(conn, cmd.ChannelID)
	case CommandCallHangup:
		h.hangup(conn, cmd.ChannelID)
	default:
		h.sendError(conn, ErrCodeInvalidMessage, "unknown command")
	}
}

// deliver queues ev for conn without blocking. A full queue marks the
// connection for eviction at the end of the current loop turn.
func (h *Hub) deliver(conn *connection, ev *Event) bool {
	if conn == nil || conn.closed {
		return false
	}
	select {
	case conn.client.Events <- ev:
		return true
	default:
		if !conn.evicting {
			conn.evicting = true
			h.evicted = append(h.evicted, conn)
			metrics.EvictionsTotal.Inc()
			h.log.Warn().Str("conn_id", conn.id).Str("event", ev.Kind.String()).Msg("outbound queue full, evicting connection")
		}
		return false
	}
}

func (h *Hub) flushEvictions() {
	for len(h.evicted) > 0 {
		conn := h.evicted[0]
		h.evicted = h.evicted[1:]
		h.disconnect(conn.client, "evicted")
	}
}

func (h *Hub) sendError(conn *connection, code, msg string) {
	h.deliver(conn, &Event{Kind: EventError, Error: coreError(code, msg)})
}

func (h *Hub) shutdown() {
	for _, sess := range h.calls {
		h.endCall(sess, metrics.OutcomeShutdown)
	}
	for _, conn := range h.conns {
		h.closeConnection(conn)
	}
	for id := range h.rooms {
		delete(h.rooms, id)
		metrics.Rooms.Dec()
	}
	h.evicted = nil
}
