package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"resc/internal/app/chat"
	"resc/internal/app/protocol"
	"resc/internal/app/tracker"
	"resc/internal/configs"
	"resc/internal/pkg/auth/jwt"
	"resc/internal/pkg/errs"
	"resc/internal/pkg/limiter"
)

const testSecret = "test-secret"

func chatDeps() *AppDeps {
	return &AppDeps{
		Config: &configs.AppConfig{
			Role:        configs.RoleServer,
			Environment: "development",
			NodeName:    "chat-test",
			JWTSecret:   testSecret,
		},
		Chat:      chat.NewServer(chat.Options{Name: "chat-test", PollInterval: 20 * time.Millisecond}),
		WSLimiter: limiter.NewIPRateLimiter(rate.Limit(100), 100),
	}
}

func trackerDeps() *AppDeps {
	return &AppDeps{
		Config: &configs.AppConfig{
			Role:        configs.RoleTracker,
			Environment: "development",
			NodeName:    "tracker-test",
			JWTSecret:   testSecret,
		},
		Tracker: tracker.New(tracker.Options{}),
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func call(t *testing.T, h http.Handler, method, path, body string, authorized bool) (int, envelope) {
	t.Helper()

	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	if authorized {
		token, err := jwt.OperatorToken("ops", "", testSecret, time.Minute)
		require.NoError(t, err)
		r.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func TestHealthIsPublic(t *testing.T) {
	status, env := call(t, Router(chatDeps()), http.MethodGet, "/health", "", false)

	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok","role":"server","node":"chat-test"}`, string(env.Data))
}

func TestAPIRequiresOperatorToken(t *testing.T) {
	status, env := call(t, Router(chatDeps()), http.MethodGet, "/api/stats", "", false)

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, errs.ErrUnauthorized, env.Code)
}

func TestChatStats(t *testing.T) {
	status, env := call(t, Router(chatDeps()), http.MethodGet, "/api/stats", "", true)

	require.Equal(t, http.StatusOK, status)
	var stats chat.Stats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Zero(t, stats.UsersOnline)
}

func TestRoleSpecificListings(t *testing.T) {
	chatRouter := Router(chatDeps())
	trackerRouter := Router(trackerDeps())

	status, _ := call(t, chatRouter, http.MethodGet, "/api/users", "", true)
	assert.Equal(t, http.StatusOK, status)
	status, _ = call(t, chatRouter, http.MethodGet, "/api/servers", "", true)
	assert.Equal(t, http.StatusNotFound, status)

	status, env := call(t, trackerRouter, http.MethodGet, "/api/servers", "", true)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"servers":[]}`, string(env.Data))
	status, _ = call(t, trackerRouter, http.MethodGet, "/api/users", "", true)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAnnounceReachesEveryMailbox(t *testing.T) {
	deps := chatDeps()
	registry := deps.Chat.Registry()
	registry.Register("alice")
	registry.Register("bob")

	status, env := call(t, Router(deps), http.MethodPost, "/api/announce", `{"body":"restart at noon"}`, true)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"deliveries":2}`, string(env.Data))

	want := protocol.Message{Kind: protocol.Broadcast, From: OperatorAuthor, Body: "restart at noon"}
	assert.Equal(t, []protocol.Message{want}, registry.Drain("alice"))
	assert.Equal(t, []protocol.Message{want}, registry.Drain("bob"))
}

func TestAnnounceRejectsBadBody(t *testing.T) {
	router := Router(chatDeps())

	status, env := call(t, router, http.MethodPost, "/api/announce", `{"body":""}`, true)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, errs.ErrInvalidParams, env.Code)

	long := strings.Repeat("x", protocol.MaxBodyBytes+1)
	status, _ = call(t, router, http.MethodPost, "/api/announce", `{"body":"`+long+`"}`, true)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestWebSocketGatewayRunsSession(t *testing.T) {
	deps := chatDeps()
	srv := httptest.NewServer(Router(deps))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	read := func() string {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		return string(data)
	}

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("alice|pw")))
	assert.Equal(t, protocol.AuthSuccess, read())
	assert.Equal(t, "/userlist | alice\n| -----\n| 1 Users", read())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("/userlist")))
	assert.Equal(t, "/userlist | alice\n| -----\n| 1 Users", read())

	assert.True(t, deps.Chat.Directory().Online("alice"))
	users := deps.Chat.Directory().List()
	require.Len(t, users, 1)
	assert.Equal(t, "ws", users[0].Transport)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("/quit")))
	assert.Eventually(t, func() bool { return !deps.Chat.Directory().Online("alice") }, time.Second, 10*time.Millisecond)
}
