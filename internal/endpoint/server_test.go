package endpoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"sw/ocpp/central/internal/auth"
	conf "sw/ocpp/central/internal/config"
	"sw/ocpp/central/internal/handler"
	"sw/ocpp/central/internal/metrics"
	"sw/ocpp/central/internal/ocpp"
	"sw/ocpp/central/internal/session"

	"github.com/gorilla/websocket"
	"github.com/juju/errors"
	ocpp16 "github.com/lorenzodonini/ocpp-go/ocpp1.6"
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type connectionEvent struct {
	connected     bool
	chargePointId string
}

type recordingListener struct {
	mu     sync.Mutex
	events []connectionEvent
}

func (l *recordingListener) ClientConnected(chargePointId string, _ string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, connectionEvent{true, chargePointId})
}

func (l *recordingListener) ClientDisconnected(chargePointId string, _ string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, connectionEvent{false, chargePointId})
}

func (l *recordingListener) snapshot() []connectionEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]connectionEvent(nil), l.events...)
}

type mockAuthenticator struct {
	mock.Mock
}

func (m *mockAuthenticator) Authenticate(chargePointId string) error {
	return m.Called(chargePointId).Error(0)
}

func (m *mockAuthenticator) AuthenticateWithKey(chargePointId string, key string) error {
	return m.Called(chargePointId, key).Error(0)
}

type harness struct {
	server   *Server
	listener *recordingListener
	metrics  *metrics.Collector
	baseUrl  string
}

func newHarness(t *testing.T, config conf.CsmsServerConfig, authenticator auth.Authenticator) *harness {
	h := &harness{listener: &recordingListener{}, metrics: metrics.NewCollector()}
	h.server = NewServer(Params{
		Config:        config,
		Authenticator: authenticator,
		Handler:       handler.NewCoreHandler(60, nil),
		Listener:      h.listener,
		Metrics:       h.metrics,
		HostName:      "test-node",
	})
	httpServer := httptest.NewServer(h.server)
	h.baseUrl = "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ocpp/16"
	t.Cleanup(func() {
		h.server.Registry().CloseAll()
		httpServer.Close()
	})
	return h
}

func (h *harness) dial(t *testing.T, chargePointId string, header http.Header) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{Subprotocols: []string{Subprotocol}, HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(h.baseUrl+"/"+chargePointId, header)
	if conn != nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}

func (h *harness) waitForSession(t *testing.T, chargePointId string) *session.Session {
	var found *session.Session
	require.Eventually(t, func() bool {
		s, ok := h.server.Registry().Lookup(chargePointId)
		found = s
		return ok
	}, 5*time.Second, 5*time.Millisecond)
	return found
}

func basicAuth(user string, password string) http.Header {
	req, _ := http.NewRequest(http.MethodGet, "http://localhost", nil)
	req.SetBasicAuth(user, password)
	return req.Header
}

func TestChargePointIdFromPath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
		valid    bool
	}{
		{"/ocpp/16/CP-1", "CP-1", true},
		{"/ocpp/16/abcdefghijklmnopqrstuvwxyz012345", "abcdefghijklmnopqrstuvwxyz012345", true},
		{"/ocpp/16/abcdefghijklmnopqrstuvwxyz0123456789", "", false},
		{"/ocpp/16/", "", false},
		{"/ocpp/16/bad_id", "", false},
		{"/ocpp/16/a/b", "", false},
		{"/other/CP-1", "", false},
	}
	for _, test := range tests {
		t.Run(test.path, func(t *testing.T) {
			id, err := ChargePointIdFromPath(test.path, "/ocpp/16/")
			if !test.valid {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expected, id)
		})
	}
}

func TestSessionConfig(t *testing.T) {
	config := SessionConfig(conf.SessionConfig{ResponseTimeoutMs: 2000, ReplyQueueSize: 4, MaxFramesPerSecond: 5})

	assert.Equal(t, 2*time.Second, config.ResponseTimeout)
	assert.Equal(t, session.DefaultConfig().SendTimeout, config.SendTimeout)
	assert.Equal(t, session.DefaultConfig().HandlerTimeout, config.HandlerTimeout)
	assert.Equal(t, 4, config.ReplyQueueSize)
	assert.Equal(t, 5.0, config.MaxFramesPerSecond)
}

func TestBootNotificationOverWebsocket(t *testing.T) {
	h := newHarness(t, conf.CsmsServerConfig{}, nil)
	conn, _, err := h.dial(t, "CP-1", nil)
	require.NoError(t, err)
	assert.Equal(t, Subprotocol, conn.Subprotocol())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`[2,"b1","BootNotification",{"chargePointVendor":"V","chargePointModel":"M"}]`)))
	_, reply, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame []json.RawMessage
	require.NoError(t, json.Unmarshal(reply, &frame))
	require.Len(t, frame, 3)
	assert.Equal(t, `3`, string(frame[0]))
	assert.Equal(t, `"b1"`, string(frame[1]))
	var boot ocpp.OcppBootNotificationResponse
	require.NoError(t, json.Unmarshal(frame[2], &boot))
	assert.Equal(t, "Accepted", boot.Status)
	assert.Equal(t, 60, boot.Interval)

	assert.Equal(t, []string{"CP-1"}, h.server.Registry().ChargePointIds())
	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	require.Eventually(t, func() bool { return h.server.Registry().Len() == 0 }, 5*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(h.listener.snapshot()) == 2 }, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, []connectionEvent{{true, "CP-1"}, {false, "CP-1"}}, h.listener.snapshot())
}

func TestInvalidChargePointIdIsNotFound(t *testing.T) {
	h := newHarness(t, conf.CsmsServerConfig{}, nil)

	_, resp, err := h.dial(t, "bad_id", nil)

	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 0, h.server.Registry().Len())
}

func TestOverlongChargePointIdsDoNotShareASession(t *testing.T) {
	h := newHarness(t, conf.CsmsServerConfig{}, nil)
	prefix := strings.Repeat("A", ChargePointIdMaxLen)
	_, _, err := h.dial(t, prefix, nil)
	require.NoError(t, err)
	existing := h.waitForSession(t, prefix)

	for _, id := range []string{prefix + "1", prefix + "2"} {
		_, resp, err := h.dial(t, id, nil)

		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}
	current, ok := h.server.Registry().Lookup(prefix)
	require.True(t, ok)
	assert.Same(t, existing, current)
	assert.Equal(t, []string{prefix}, h.server.Registry().ChargePointIds())
}

func TestEnableAuth(t *testing.T) {
	authenticator := &mockAuthenticator{}
	authenticator.On("Authenticate", "known").Return(nil)
	authenticator.On("Authenticate", "unknown").Return(auth.ErrDenied)
	authenticator.On("Authenticate", "broken").Return(errors.New("redis down"))
	h := newHarness(t, conf.CsmsServerConfig{EnableAuth: true}, authenticator)

	_, resp, err := h.dial(t, "unknown", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, resp, err = h.dial(t, "broken", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	_, _, err = h.dial(t, "known", nil)
	require.NoError(t, err)
	h.waitForSession(t, "known")

	expected := `
# HELP ocpp_central_auth_attempts_total Charge point connection attempts by authentication result.
# TYPE ocpp_central_auth_attempts_total counter
ocpp_central_auth_attempts_total{result="accepted"} 1
ocpp_central_auth_attempts_total{result="denied"} 1
ocpp_central_auth_attempts_total{result="error"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(h.metrics, strings.NewReader(expected), "ocpp_central_auth_attempts_total"))
	authenticator.AssertExpectations(t)
}

func TestBasicAuth(t *testing.T) {
	authenticator := &mockAuthenticator{}
	authenticator.On("AuthenticateWithKey", "CP-1", "s3cret").Return(nil)
	authenticator.On("AuthenticateWithKey", "CP-1", "guess").Return(auth.ErrDenied)
	h := newHarness(t, conf.CsmsServerConfig{BasicAuth: true}, authenticator)

	_, resp, err := h.dial(t, "CP-1", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = h.dial(t, "CP-1", basicAuth("CP-2", "s3cret"))
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = h.dial(t, "CP-1", basicAuth("CP-1", "guess"))
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, _, err = h.dial(t, "CP-1", basicAuth("CP-1", "s3cret"))
	require.NoError(t, err)
	h.waitForSession(t, "CP-1")
	authenticator.AssertExpectations(t)
}

func TestRequireSubprotocol(t *testing.T) {
	h := newHarness(t, conf.CsmsServerConfig{RequireSubprotocol: true}, nil)

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	_, resp, err := dialer.Dial(h.baseUrl+"/CP-1", nil)

	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSecondConnectionReplacesSession(t *testing.T) {
	h := newHarness(t, conf.CsmsServerConfig{}, nil)
	first, _, err := h.dial(t, "CP-1", nil)
	require.NoError(t, err)
	old := h.waitForSession(t, "CP-1")

	second, _, err := h.dial(t, "CP-1", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		current, ok := h.server.Registry().Lookup("CP-1")
		return ok && current != old
	}, 5*time.Second, 5*time.Millisecond)

	select {
	case <-old.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("replaced session still open")
	}
	_, _, err = first.ReadMessage()
	assert.Error(t, err)

	require.NoError(t, second.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return len(h.listener.snapshot()) == 3 }, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, []connectionEvent{{true, "CP-1"}, {true, "CP-1"}, {false, "CP-1"}}, h.listener.snapshot())
}

func TestServerInitiatedCall(t *testing.T) {
	h := newHarness(t, conf.CsmsServerConfig{}, nil)
	conn, _, err := h.dial(t, "CP-1", nil)
	require.NoError(t, err)
	s := h.waitForSession(t, "CP-1")

	answered := make(chan error, 1)
	go func() {
		_, text, err := conn.ReadMessage()
		if err != nil {
			answered <- err
			return
		}
		var frame []json.RawMessage
		if err := json.Unmarshal(text, &frame); err != nil {
			answered <- err
			return
		}
		reply := `[3,` + string(frame[1]) + `,{"status":"Accepted"}]`
		answered <- conn.WriteMessage(websocket.TextMessage, []byte(reply))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	response, err := s.Request(ctx, &ocpp.OcppReset{Type: "Soft"})

	require.NoError(t, err)
	require.NoError(t, <-answered)
	assert.Equal(t, "Accepted", response.(*ocpp.OcppResetResponse).Status)
}

func TestMissingPongEndsSession(t *testing.T) {
	config := conf.CsmsServerConfig{Session: conf.SessionConfig{PingPeriodMs: 50, PongWaitMs: 50}}
	h := newHarness(t, config, nil)
	// The client never reads, so pings are never answered.
	_, _, err := h.dial(t, "CP-1", nil)
	require.NoError(t, err)
	s := h.waitForSession(t, "CP-1")

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session survived without pongs")
	}
	assert.Equal(t, 0, h.server.Registry().Len())
}

func TestOcppGoChargePointInterop(t *testing.T) {
	h := newHarness(t, conf.CsmsServerConfig{}, nil)
	chargePoint := ocpp16.NewChargePoint("CP-interop", nil, nil)
	require.NoError(t, chargePoint.Start(h.baseUrl))
	defer chargePoint.Stop()

	boot, err := chargePoint.BootNotification("Model", "Vendor")
	require.NoError(t, err)
	assert.Equal(t, core.RegistrationStatusAccepted, boot.Status)
	assert.Equal(t, 60, boot.Interval)

	heartbeat, err := chargePoint.Heartbeat()
	require.NoError(t, err)
	assert.NotNil(t, heartbeat.CurrentTime)

	h.waitForSession(t, "CP-interop")
}
