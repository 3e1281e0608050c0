package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emolearn/emolearn/backend/internal/config"
	"github.com/emolearn/emolearn/backend/internal/metrics"
	"github.com/emolearn/emolearn/backend/internal/service/ai"
	assistantService "github.com/emolearn/emolearn/backend/internal/service/assistant"
)

type countingRecorder struct {
	mu          sync.Mutex
	connects    int
	disconnects int
	throttled   int
	inbound     map[string]int
}

func (r *countingRecorder) RecordWebSocketConnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connects++
}

func (r *countingRecorder) RecordWebSocketDisconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnects++
}

func (r *countingRecorder) Disconnects() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disconnects
}

func (r *countingRecorder) RecordWebSocketMessage(msgType, direction string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if direction == "inbound" {
		if r.inbound == nil {
			r.inbound = map[string]int{}
		}
		r.inbound[msgType]++
	}
}

func (r *countingRecorder) RecordWebSocketThrottled() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.throttled++
}

func setupWebSocket(t *testing.T, cfg config.WebSocketConfig, origins []string) (*httptest.Server, *assistantService.Registry, *countingRecorder) {
	t.Helper()

	registry := newRegistry(t, time.Hour)
	recorder := &countingRecorder{}
	return serveWebSocket(t, registry, cfg, origins, recorder), registry, recorder
}

func newRegistry(t *testing.T, ttl time.Duration) *assistantService.Registry {
	t.Helper()
	registry := assistantService.NewRegistry(assistantService.RegistryOptions{
		IdleTTL:   ttl,
		Clock:     clockwork.NewFakeClock(),
		Completer: ai.NewOfflineCompleter(),
	})
	t.Cleanup(registry.Close)
	return registry
}

func serveWebSocket(t *testing.T, registry *assistantService.Registry, cfg config.WebSocketConfig, origins []string, recorder Recorder) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	NewWebSocketHandler(registry, cfg, origins, recorder, nil).RegisterWebSocketRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/assistants/" + sessionID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(inboundMessage{Type: msgType, Data: raw}))
}

type received struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// readFrame returns the next frame of the wanted type, skipping others.
func readFrame(t *testing.T, conn *websocket.Conn, want string) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg received
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == want {
			return msg
		}
	}
}

func TestWebSocketUnknownSession(t *testing.T) {
	srv, _, _ := setupWebSocket(t, config.WebSocketConfig{}, nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/assistants/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	srv, registry, _ := setupWebSocket(t, config.WebSocketConfig{}, []string{"https://class.example"})
	session, err := registry.Create()
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/assistants/" + session.ID() + "/ws"
	header := http.Header{"Origin": []string{"https://elsewhere.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocketCommands(t *testing.T) {
	srv, registry, recorder := setupWebSocket(t, config.WebSocketConfig{}, nil)
	session, err := registry.Create()
	require.NoError(t, err)

	conn := dial(t, srv, session.ID())
	readFrame(t, conn, "state")

	sendFrame(t, conn, "emotion", EmotionMessage{Emotion: "Happy"})
	decision := readFrame(t, conn, "decision")
	assert.JSONEq(t, `{"emotion":"Happy","action":"ignore","reason":"not-negative"}`, string(decision.Data))

	sendFrame(t, conn, "emotion", EmotionMessage{Emotion: "ecstatic"})
	readFrame(t, conn, "error")

	sendFrame(t, conn, "open", nil)
	opened := readFrame(t, conn, "chat")
	var event assistantService.Event
	require.NoError(t, json.Unmarshal(opened.Data, &event))
	assert.Equal(t, "manual", event.Reason)

	sendFrame(t, conn, "send", TextMessage{Text: "explain *torque*"})
	require.Eventually(t, func() bool {
		return len(session.Snapshot().Messages) == 3
	}, 2*time.Second, 5*time.Millisecond)

	sendFrame(t, conn, "intervention", InterventionMessage{Mode: "karaoke"})
	readFrame(t, conn, "error")

	sendFrame(t, conn, "close", nil)
	readFrame(t, conn, "closed")

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.Equal(t, 1, recorder.connects)
	assert.Equal(t, 2, recorder.inbound["emotion"])
}

func TestWebSocketRateLimit(t *testing.T) {
	srv, registry, recorder := setupWebSocket(t, config.WebSocketConfig{MessagesPerSecond: 0.001, Burst: 1}, nil)
	session, err := registry.Create()
	require.NoError(t, err)

	conn := dial(t, srv, session.ID())
	readFrame(t, conn, "state")

	sendFrame(t, conn, "snapshot", nil)
	readFrame(t, conn, "state")

	sendFrame(t, conn, "snapshot", nil)
	throttled := readFrame(t, conn, "error")
	assert.Contains(t, string(throttled.Data), "rate limit")

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.Equal(t, 1, recorder.throttled)
}

func TestWebSocketEndsWithSession(t *testing.T) {
	srv, registry, recorder := setupWebSocket(t, config.WebSocketConfig{}, nil)
	session, err := registry.Create()
	require.NoError(t, err)

	conn := dial(t, srv, session.ID())
	readFrame(t, conn, "state")

	require.NoError(t, registry.Delete(session.ID()))
	readFrame(t, conn, "end")

	// The server closes the connection itself; the next read fails.
	var msg received
	assert.Error(t, conn.ReadJSON(&msg))
	require.Eventually(t, func() bool {
		return recorder.Disconnects() == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWebSocketActivityKeepsSessionAlive(t *testing.T) {
	registry := newRegistry(t, 200*time.Millisecond)
	srv := serveWebSocket(t, registry, config.WebSocketConfig{}, nil, nil)
	session, err := registry.Create()
	require.NoError(t, err)

	conn := dial(t, srv, session.ID())
	readFrame(t, conn, "state")

	for i := 0; i < 12; i++ {
		sendFrame(t, conn, "emotion", EmotionMessage{Emotion: "Happy"})
		readFrame(t, conn, "decision")
		time.Sleep(50 * time.Millisecond)
	}
	registry.Sweep()

	_, err = registry.Get(session.ID())
	require.NoError(t, err)

	sendFrame(t, conn, "snapshot", nil)
	readFrame(t, conn, "state")
}

func TestWebSocketMetricLabelsStayBounded(t *testing.T) {
	registry := newRegistry(t, time.Hour)
	m := metrics.New()
	srv := serveWebSocket(t, registry, config.WebSocketConfig{}, nil, m)
	session, err := registry.Create()
	require.NoError(t, err)

	conn := dial(t, srv, session.ID())
	readFrame(t, conn, "state")

	for i := 0; i < 50; i++ {
		sendFrame(t, conn, fmt.Sprintf("junk-%d", i), nil)
		readFrame(t, conn, "error")
	}

	// state/outbound, error/outbound and unknown/inbound
	require.Eventually(t, func() bool {
		return testutil.CollectAndCount(m.WebSocketMessages) == 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 50.0, testutil.ToFloat64(m.WebSocketMessages.WithLabelValues("unknown", "inbound")))
}
