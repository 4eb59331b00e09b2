package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thorx18/project-management-system/internal/media"
	"github.com/thorx18/project-management-system/internal/media/livekit"
	"github.com/thorx18/project-management-system/internal/proto"
)

func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func TestPresenceEndpoint(t *testing.T) {
	ts, _ := startTestServer(t, testConfig(), nil)

	alice := dial(t, ts, "", nil)
	alice.join("p1", "1", "Alice")

	resp, body := doJSON(t, ts, http.MethodGet, "/api/rooms/p1/presence", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var presence PresenceResponse
	require.NoError(t, json.Unmarshal(body, &presence))
	require.Equal(t, "p1", presence.RoomID)
	require.Equal(t, []proto.PresenceUser{{UserID: "1", DisplayName: "Alice", ConnectionID: alice.id}}, presence.Users)

	resp, body = doJSON(t, ts, http.MethodGet, "/api/rooms/empty/presence", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"roomId":"empty","users":[]}`, string(body))
}

func TestPublishEndpoint(t *testing.T) {
	ts, _ := startTestServer(t, testConfig(), nil)

	alice := dial(t, ts, "", nil)
	alice.join("p1", "1", "Alice")

	resp, body := doJSON(t, ts, http.MethodPost, "/api/rooms/p1/events", "", map[string]any{
		"event":   "entity_mutation",
		"kind":    "created",
		"payload": map[string]any{"id": 5, "title": "Ship it"},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.JSONEq(t, `{"delivered":1}`, string(body))

	var m proto.EventEntityMutation
	alice.expect(proto.InboundTypeEntityMutation, &m)
	require.Equal(t, "created", m.Kind)
	require.JSONEq(t, `{"id":5,"title":"Ship it"}`, string(m.Entity))

	resp, body = doJSON(t, ts, http.MethodPost, "/api/rooms/nobody/events", "", map[string]any{
		"event":   "chat_broadcast",
		"payload": map[string]any{"id": 1},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.JSONEq(t, `{"delivered":0}`, string(body))

	for _, bad := range []map[string]any{
		{"event": "typing", "payload": map[string]any{"id": 1}},
		{"event": "entity_mutation", "kind": "archived", "payload": map[string]any{"id": 1}},
		{"event": "chat_broadcast"},
	} {
		resp, _ = doJSON(t, ts, http.MethodPost, "/api/rooms/p1/events", "", bad)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, "%v", bad)
	}
}

func TestStatsEndpoint(t *testing.T) {
	ts, _ := startTestServer(t, testConfig(), nil)

	alice := dial(t, ts, "", nil)
	alice.join("p1", "1", "Alice")

	resp, body := doJSON(t, ts, http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"connections":1,"rooms":1,"calls":0}`, string(body))
}

func TestAPIRequiresTokenWhenConfigured(t *testing.T) {
	ts, _ := startTestServer(t, jwtConfig(false), nil)

	resp, _ := doJSON(t, ts, http.MethodGet, "/api/rooms/p1/presence", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, ts, http.MethodGet, "/api/rooms/p1/presence", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := makeJWT("testsecret", "collab", "crud", "svc", "", time.Minute)
	require.NoError(t, err)
	resp, _ = doJSON(t, ts, http.MethodGet, "/api/rooms/p1/presence", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Health stays public.
	resp, _ = doJSON(t, ts, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMediaTokenEndpoint(t *testing.T) {
	ts, _ := startTestServer(t, testConfig(), media.Disabled{})

	resp, _ := doJSON(t, ts, http.MethodGet, "/api/media/token?channel=p1-1&identity=42", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	provider, err := livekit.New(livekit.Options{
		URL:        "ws://localhost:7880",
		APIKey:     "devkey",
		APISecret:  "secret-secret-secret-secret-secret",
		RoomPrefix: "project",
		TokenTTL:   time.Hour,
	})
	require.NoError(t, err)
	ts, _ = startTestServer(t, testConfig(), provider)

	resp, _ = doJSON(t, ts, http.MethodGet, "/api/media/token?identity=42", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, ts, http.MethodGet, "/api/media/token?channel=p1-1", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := doJSON(t, ts, http.MethodGet, "/api/media/token?channel=p1-1&identity=42&name=Ann", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info media.JoinInfo
	require.NoError(t, json.Unmarshal(body, &info))
	require.Equal(t, "project-p1-1", info.RoomName)
	require.Equal(t, "42", info.Identity)
	require.NotEmpty(t, info.Token)
}

func TestMediaTokenUsesAuthenticatedIdentity(t *testing.T) {
	provider, err := livekit.New(livekit.Options{APIKey: "devkey", APISecret: "secret-secret-secret-secret-secret"})
	require.NoError(t, err)
	ts, _ := startTestServer(t, jwtConfig(false), provider)

	token, err := makeJWT("testsecret", "collab", "crud", "user7", "Grace", time.Minute)
	require.NoError(t, err)

	resp, body := doJSON(t, ts, http.MethodGet, "/api/media/token?channel=c1&identity=spoof", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info media.JoinInfo
	require.NoError(t, json.Unmarshal(body, &info))
	require.Equal(t, "user7", info.Identity)
}
