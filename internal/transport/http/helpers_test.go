package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/thorx18/project-management-system/internal/config"
	"github.com/thorx18/project-management-system/internal/core"
	"github.com/thorx18/project-management-system/internal/media"
	"github.com/thorx18/project-management-system/internal/proto"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	cfg.RateLimit = 0
	return cfg
}

func startTestServer(t *testing.T, cfg config.Config, provider media.Provider) (*httptest.Server, *core.Hub) {
	t.Helper()

	hub := core.NewHub(core.Options{RingTimeout: cfg.RingTimeout})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	disabledLogger := zerolog.Nop()
	ts := httptest.NewServer(NewHandler(hub, provider, &cfg, &disabledLogger))
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-hub.Done()
	})
	return ts, hub
}

// wireMsg mirrors proto.Outbound with raw data for decoding per event.
type wireMsg struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
	id   string
}

func wsURL(ts *httptest.Server, query string) string {
	u := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	if query != "" {
		u += "?" + query
	}
	return u
}

// dial connects and consumes the connected event.
func dial(t *testing.T, ts *httptest.Server, query string, header http.Header) *wsClient {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(ts, query), &websocket.DialOptions{HTTPHeader: header})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	c := &wsClient{t: t, conn: conn}
	msg := c.next()
	require.Equal(t, proto.EventConnected, msg.Event)
	var hello proto.EventConnectedData
	require.NoError(t, json.Unmarshal(msg.Data, &hello))
	require.Equal(t, proto.ProtocolVersion, hello.Protocol)
	c.id = hello.ConnectionID
	return c
}

func (c *wsClient) send(typ string, data any) {
	c.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	raw, err := json.Marshal(data)
	require.NoError(c.t, err)
	require.NoError(c.t, wsjson.Write(ctx, c.conn, proto.Inbound{Type: typ, Data: raw}))
}

func (c *wsClient) next() wireMsg {
	c.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var msg wireMsg
	require.NoError(c.t, wsjson.Read(ctx, c.conn, &msg))
	return msg
}

// expect reads until an event of the given name arrives and decodes it.
func (c *wsClient) expect(event string, into any) {
	c.t.Helper()

	for {
		msg := c.next()
		if msg.Type == proto.OutboundTypeEvent && msg.Event == event {
			if into != nil {
				require.NoError(c.t, json.Unmarshal(msg.Data, into))
			}
			return
		}
	}
}

// expectError reads until an error frame arrives.
func (c *wsClient) expectError() *proto.Error {
	c.t.Helper()

	for {
		msg := c.next()
		if msg.Type == proto.OutboundTypeError {
			require.NotNil(c.t, msg.Error)
			return msg.Error
		}
	}
}

// join announces the client and waits for a presence list naming user.
func (c *wsClient) join(room, user, name string) proto.EventPresence {
	c.t.Helper()

	c.send(proto.InboundTypeJoinRoom, map[string]any{"roomId": room, "userId": user, "displayName": name})
	for {
		var p proto.EventPresence
		c.expect(core.EventPresence.String(), &p)
		for _, u := range p.Users {
			if u.UserID == user && u.ConnectionID == c.id {
				return p
			}
		}
	}
}

func (c *wsClient) waitPresence(users ...string) proto.EventPresence {
	c.t.Helper()

	for {
		var p proto.EventPresence
		c.expect(core.EventPresence.String(), &p)
		if len(p.Users) != len(users) {
			continue
		}
		match := true
		for i, u := range p.Users {
			if u.UserID != users[i] {
				match = false
			}
		}
		if match {
			return p
		}
	}
}
