package api_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/typerace/internal/api"
	"github.com/mcoot/typerace/internal/api/apierr"
	"github.com/mcoot/typerace/internal/api/response"
	"github.com/mcoot/typerace/internal/factory"
	"github.com/mcoot/typerace/internal/model"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	// API tests are integration tests - use production factory with real random/clock
	app, err := factory.New(t.Context(), factory.Config{Logger: logger})
	require.NoError(t, err)
	app.Start(t.Context())
	t.Cleanup(func() { _ = app.Close() })

	_, err = app.PassageService.Seed(t.Context(), "../../data/passages.yaml")
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		Clock:          app.Clock,
		AuthService:    app.AuthService,
		UserService:    app.UserService,
		PassageService: app.PassageService,
		ResultsService: app.ResultsService,
		Rooms:          app.Rooms,
		WebSocket:      app.WebSocket,
	})

	return &testServer{
		handler: router,
		app:     app,
	}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[apierr.ErrorResponse](t, rr).Error.Code
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	health := decode[response.Health](t, rr)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "typerace", health.Service)
	assert.GreaterOrEqual(t, health.UptimeSeconds, int64(0))
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	// Register
	registerBody := map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret123",
	}
	rr := ts.request(http.MethodPost, "/api/v1/auth/register", registerBody, "")
	require.Equal(t, http.StatusCreated, rr.Code)

	registerResp := decode[response.AuthResponse](t, rr)
	assert.Equal(t, "alice", registerResp.User.Username)
	assert.NotEmpty(t, registerResp.Token)
	assert.NotContains(t, rr.Body.String(), "password")

	// Duplicate username
	rr = ts.request(http.MethodPost, "/api/v1/auth/register", registerBody, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeUsernameExists, errorCode(t, rr))

	// Login
	loginBody := map[string]string{"username": "alice", "password": "secret123"}
	rr = ts.request(http.MethodPost, "/api/v1/auth/login", loginBody, "")
	require.Equal(t, http.StatusOK, rr.Code)
	loginResp := decode[response.AuthResponse](t, rr)
	assert.Equal(t, registerResp.User.ID, loginResp.User.ID)

	// Wrong password
	loginBody["password"] = "wrong"
	rr = ts.request(http.MethodPost, "/api/v1/auth/login", loginBody, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeInvalidCredentials, errorCode(t, rr))
}

func TestGetMe(t *testing.T) {
	ts := newTestServer(t)
	token := registerUser(t, ts, "bob")

	rr := ts.request(http.MethodGet, "/api/v1/auth/me", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "bob", decode[response.User](t, rr).Username)
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/auth/me", nil, "sess_bogus")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestInvalidBody(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, errorCode(t, rr))
}

func TestUsers(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/users", map[string]string{"username": "carol"}, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decode[response.User](t, rr)
	assert.Equal(t, 0, created.RacesCount)

	rr = ts.request(http.MethodGet, "/api/v1/users/"+created.ID, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "carol", decode[response.User](t, rr).Username)

	rr = ts.request(http.MethodGet, "/api/v1/users/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeUserNotFound, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/users", map[string]string{"username": ""}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPassages(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]string{"text": "  héllo wörld  "}
	rr := ts.request(http.MethodPost, "/api/v1/passages", body, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decode[response.Passage](t, rr)
	assert.Equal(t, "héllo wörld", created.Text)
	assert.Equal(t, 11, created.Length)
	assert.Equal(t, model.DefaultPassageSource, created.Source)
	assert.Equal(t, model.DefaultPassageUniverse, created.Universe)

	rr = ts.request(http.MethodPost, "/api/v1/passages", map[string]string{"text": "   "}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/passages?page=1&limit=2", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[response.PassagePage](t, rr)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.Limit)
	assert.Len(t, page.Data, 2)

	rr = ts.request(http.MethodGet, "/api/v1/passages?page=0&limit=9999", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	page = decode[response.PassagePage](t, rr)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 500, page.Limit)

	rr = ts.request(http.MethodGet, "/api/v1/passages/random?universe=programming", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "programming", decode[response.Passage](t, rr).Universe)

	rr = ts.request(http.MethodGet, "/api/v1/passages/random?universe=nonexistent", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodePassageNotFound, errorCode(t, rr))
}

func TestRecordRaceUpdatesStats(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/users", map[string]string{"username": "dave"}, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	userID := decode[response.User](t, rr).ID

	for _, wpm := range []float64{50, 50, 80} {
		body := map[string]any{"user_id": userID, "wpm": wpm, "accuracy": 98, "duration_ms": 30000}
		rr = ts.request(http.MethodPost, "/api/v1/races", body, "")
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr = ts.request(http.MethodGet, "/api/v1/users/"+userID, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	user := decode[response.User](t, rr)
	assert.Equal(t, 3, user.RacesCount)
	assert.InDelta(t, 60, user.AvgWPM, 0.001)
	assert.InDelta(t, 80, user.BestWPM, 0.001)

	rr = ts.request(http.MethodGet, "/api/v1/users/"+userID+"/races", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]response.RaceResult](t, rr), 3)

	rr = ts.request(http.MethodGet, "/api/v1/races/user/"+userID, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]response.RaceResult](t, rr), 3)

	body := map[string]any{"user_id": userID, "wpm": -1, "accuracy": 98, "duration_ms": 1}
	rr = ts.request(http.MethodPost, "/api/v1/races", body, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRoomNotFound(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/rooms/123456", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeRoomNotFound, errorCode(t, rr))
}

// TestWebSocketRoomVisibleOverREST drives a room over the WebSocket and reads it back over REST
func TestWebSocketRoomVisibleOverREST(t *testing.T) {
	ts := newTestServer(t)
	token := registerUser(t, ts, "erin")

	server := httptest.NewServer(ts.handler)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"event": "room:create",
		"ack":   "1",
		"data":  map[string]string{"universe": "fiction"},
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ack struct {
		Event string `json:"event"`
		Ack   string `json:"ack"`
		Data  struct {
			OK     bool   `json:"ok"`
			RoomID string `json:"roomId"`
		} `json:"data"`
	}
	for ack.Event != "ack" {
		require.NoError(t, conn.ReadJSON(&ack))
	}
	require.True(t, ack.Data.OK)

	rr := ts.request(http.MethodGet, "/api/v1/rooms/"+ack.Data.RoomID, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	snap := decode[model.RoomSnapshot](t, rr)
	assert.Equal(t, model.RoomStatusWaiting, snap.Status)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "erin", snap.Players[0].Username)
	assert.NotEmpty(t, snap.Players[0].UserID)
}

// Helper functions

func registerUser(t *testing.T, ts *testServer, username string) string {
	t.Helper()

	body := map[string]string{"username": username, "password": "secret123"}
	rr := ts.request(http.MethodPost, "/api/v1/auth/register", body, "")
	require.Equal(t, http.StatusCreated, rr.Code)

	return decode[response.AuthResponse](t, rr).Token
}
