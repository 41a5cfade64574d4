package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gambit-server/internal/config"
)

// setupTestServer starts a websocket endpoint backed by a fresh server. The
// hourly clock tick keeps time_update frames out of the test reads.
func setupTestServer() (*Server, string, func()) {
	cfg := config.Default()
	cfg.ClockTick = time.Hour

	s, _ := NewServer(cfg, zap.NewNop(), nil)
	httpServer := httptest.NewServer(http.HandlerFunc(s.websocketHandler))
	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/websocket"
	return s, wsURL, httpServer.Close
}

func dialTestServer(t *testing.T, ctx context.Context, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	return conn
}

func writeMessage(t *testing.T, ctx context.Context, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	data, err := json.Marshal(ClientMessage{Type: msgType, Payload: raw})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) (string, map[string]interface{}) {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))

	payload := map[string]interface{}{}
	if len(msg.Payload) > 0 {
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	}
	return msg.Type, payload
}

func TestPingPong(t *testing.T) {
	_, wsURL, cleanup := setupTestServer()
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialTestServer(t, ctx, wsURL)
	defer conn.Close(websocket.StatusNormalClosure, "")

	writeMessage(t, ctx, conn, "ping", struct{}{})
	msgType, _ := readMessage(t, ctx, conn)
	assert.Equal(t, "pong", msgType)
}

func TestInvalidJSONKeepsConnectionAlive(t *testing.T) {
	_, wsURL, cleanup := setupTestServer()
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialTestServer(t, ctx, wsURL)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{not json")))
	msgType, payload := readMessage(t, ctx, conn)
	assert.Equal(t, "error", msgType)
	assert.Equal(t, "INVALID_PAYLOAD", payload["code"])

	// The socket still answers.
	writeMessage(t, ctx, conn, "ping", struct{}{})
	msgType, _ = readMessage(t, ctx, conn)
	assert.Equal(t, "pong", msgType)
}

func TestConnectionRegistration(t *testing.T) {
	s, wsURL, cleanup := setupTestServer()
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialTestServer(t, ctx, wsURL)

	// The handshake races the handler's bookkeeping.
	deadline := time.Now().Add(2 * time.Second)
	for s.connectionManager.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 1, s.connectionManager.Count())

	conn.Close(websocket.StatusNormalClosure, "")
	deadline = time.Now().Add(2 * time.Second)
	for s.connectionManager.Count() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 0, s.connectionManager.Count())
}

func TestCreateMatchFlow(t *testing.T) {
	_, wsURL, cleanup := setupTestServer()
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialTestServer(t, ctx, wsURL)
	defer conn.Close(websocket.StatusNormalClosure, "")

	writeMessage(t, ctx, conn, "create_match", CreateMatchRequest{PlayerName: "Alice"})
	msgType, payload := readMessage(t, ctx, conn)

	require.Equal(t, "match_created", msgType)
	roomID, _ := payload["roomId"].(string)
	assert.Len(t, roomID, 6)
	assert.Equal(t, "white", payload["side"])
}

func TestJoinUnknownRoom(t *testing.T) {
	_, wsURL, cleanup := setupTestServer()
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialTestServer(t, ctx, wsURL)
	defer conn.Close(websocket.StatusNormalClosure, "")

	writeMessage(t, ctx, conn, "join_match", JoinMatchRequest{RoomID: "zzzzzz", PlayerName: "Bob"})
	msgType, payload := readMessage(t, ctx, conn)

	assert.Equal(t, "error", msgType)
	assert.Equal(t, "ROOM_NOT_FOUND", payload["code"])
}

func TestFullMatchFlow(t *testing.T) {
	_, wsURL, cleanup := setupTestServer()
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	white := dialTestServer(t, ctx, wsURL)
	defer white.Close(websocket.StatusNormalClosure, "")
	black := dialTestServer(t, ctx, wsURL)
	defer black.Close(websocket.StatusNormalClosure, "")

	writeMessage(t, ctx, white, "create_match", CreateMatchRequest{PlayerName: "Alice"})
	msgType, payload := readMessage(t, ctx, white)
	require.Equal(t, "match_created", msgType)
	roomID := payload["roomId"].(string)

	writeMessage(t, ctx, black, "join_match", JoinMatchRequest{RoomID: roomID, PlayerName: "Bob"})

	// The joiner gets the broadcast before the direct reply.
	msgType, payload = readMessage(t, ctx, black)
	require.Equal(t, "match_start", msgType)
	assert.Equal(t, "Alice", payload["white"])
	assert.Equal(t, "Bob", payload["black"])

	msgType, payload = readMessage(t, ctx, black)
	require.Equal(t, "match_joined", msgType)
	assert.Equal(t, "black", payload["side"])

	msgType, _ = readMessage(t, ctx, white)
	require.Equal(t, "match_start", msgType)

	writeMessage(t, ctx, white, "submit_move", SubmitMoveRequest{RoomID: roomID, From: "e2", To: "e4"})

	for _, conn := range []*websocket.Conn{white, black} {
		msgType, payload = readMessage(t, ctx, conn)
		require.Equal(t, "move_applied", msgType)
		assert.Equal(t, "e4", payload["san"])
		assert.Equal(t, "black", payload["sideToMove"])
	}
}

func TestDisconnectNotifiesOpponent(t *testing.T) {
	_, wsURL, cleanup := setupTestServer()
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	white := dialTestServer(t, ctx, wsURL)
	black := dialTestServer(t, ctx, wsURL)
	defer black.Close(websocket.StatusNormalClosure, "")

	writeMessage(t, ctx, white, "create_match", CreateMatchRequest{PlayerName: "Alice"})
	_, payload := readMessage(t, ctx, white)
	roomID := payload["roomId"].(string)

	writeMessage(t, ctx, black, "join_match", JoinMatchRequest{RoomID: roomID, PlayerName: "Bob"})
	msgType, _ := readMessage(t, ctx, black)
	require.Equal(t, "match_start", msgType)
	msgType, _ = readMessage(t, ctx, black)
	require.Equal(t, "match_joined", msgType)

	white.Close(websocket.StatusNormalClosure, "")

	msgType, payload = readMessage(t, ctx, black)
	require.Equal(t, "player_left", msgType)
	assert.Equal(t, "Alice", payload["name"])

	msgType, payload = readMessage(t, ctx, black)
	require.Equal(t, "match_over", msgType)
	assert.Equal(t, "aborted", payload["status"])
}

func TestWebSocketRateLimiting(t *testing.T) {
	s, wsURL, cleanup := setupTestServer()
	defer cleanup()

	// Tighten the limit so the test does not need dozens of frames.
	s.rateLimiter = NewRateLimiter(2, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialTestServer(t, ctx, wsURL)
	defer conn.Close(websocket.StatusNormalClosure, "")

	for i := 0; i < 3; i++ {
		writeMessage(t, ctx, conn, "ping", struct{}{})
	}

	sawLimit := false
	for i := 0; i < 3; i++ {
		msgType, payload := readMessage(t, ctx, conn)
		if msgType == "error" && payload["code"] == "RATE_LIMIT_EXCEEDED" {
			sawLimit = true
			break
		}
	}
	assert.True(t, sawLimit, "expected a rate limit error")
}
