package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sw/ocpp/central/internal/config"
	"sw/ocpp/central/internal/ocpp"
	"sw/ocpp/central/internal/session"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, chargePointId string, action string, payload json.RawMessage) (json.RawMessage, error) {
	args := m.Called(chargePointId, action, string(payload))
	result, _ := args.Get(0).(json.RawMessage)
	return result, args.Error(1)
}

func (m *mockDispatcher) Connected() []string {
	return m.Called().Get(0).([]string)
}

func do(t *testing.T, h http.Handler, method string, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPing(t *testing.T) {
	h := NewRouter(new(mockDispatcher), nil, config.HttpConfig{})

	rec := do(t, h, http.MethodGet, "/ping", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestListChargePoints(t *testing.T) {
	d := new(mockDispatcher)
	d.On("Connected").Return([]string{"CP-1", "CP-2"})
	h := NewRouter(d, nil, config.HttpConfig{})

	rec := do(t, h, http.MethodGet, "/chargepoints", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"chargePoints":["CP-1","CP-2"]}`, rec.Body.String())
}

func TestSendAction(t *testing.T) {
	d := new(mockDispatcher)
	d.On("Dispatch", "CP-1", "Reset", `{"type":"Soft"}`).Return(json.RawMessage(`{"status":"Accepted"}`), nil)
	h := NewRouter(d, nil, config.HttpConfig{})

	rec := do(t, h, http.MethodPost, "/chargepoints/CP-1/actions/Reset", `{"type":"Soft"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"Accepted"}`, rec.Body.String())
	d.AssertExpectations(t)
}

func TestSendActionEmptyBody(t *testing.T) {
	d := new(mockDispatcher)
	d.On("Dispatch", "CP-1", "ClearCache", `{}`).Return(json.RawMessage(`{"status":"Accepted"}`), nil)
	h := NewRouter(d, nil, config.HttpConfig{})

	rec := do(t, h, http.MethodPost, "/chargepoints/CP-1/actions/ClearCache", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	d.AssertExpectations(t)
}

func TestSendActionErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		check  func(t *testing.T, body ErrResponse)
	}{
		{
			name:   "not connected",
			err:    errors.Annotate(session.ErrNotConnected, "CP-1"),
			status: http.StatusNotFound,
		},
		{
			name:   "invalid",
			err:    ocpp.NewError(ocpp.PropertyConstraintViolation, "", "type"),
			status: http.StatusBadRequest,
			check: func(t *testing.T, body ErrResponse) {
				assert.Equal(t, string(ocpp.PropertyConstraintViolation), body.Code)
				assert.Equal(t, "type", body.Details)
			},
		},
		{
			name: "call error",
			err: &ocpp.CallError{
				UniqueId:         "1",
				ErrorCode:        ocpp.NotSupported,
				ErrorDescription: "Reset is disabled",
				ErrorDetails:     json.RawMessage(`{"description":"locked"}`),
			},
			status: http.StatusBadGateway,
			check: func(t *testing.T, body ErrResponse) {
				assert.Equal(t, string(ocpp.NotSupported), body.Code)
				assert.Equal(t, "Reset is disabled", body.Description)
				assert.Equal(t, "locked", body.Details)
			},
		},
		{
			name:   "timeout",
			err:    errors.Timeoutf("Reset for CP-1"),
			status: http.StatusGatewayTimeout,
		},
		{
			name:   "deadline",
			err:    context.DeadlineExceeded,
			status: http.StatusGatewayTimeout,
		},
		{
			name:   "closed",
			err:    session.ErrSessionClosed,
			status: http.StatusConflict,
		},
		{
			name:   "other",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			d := new(mockDispatcher)
			d.On("Dispatch", "CP-1", "Reset", `{"type":"Soft"}`).Return(nil, test.err)
			h := NewRouter(d, nil, config.HttpConfig{})

			rec := do(t, h, http.MethodPost, "/chargepoints/CP-1/actions/Reset", `{"type":"Soft"}`)

			assert.Equal(t, test.status, rec.Code)
			var body ErrResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.StatusText)
			if test.check != nil {
				test.check(t, body)
			}
		})
	}
}

func TestBasicAuth(t *testing.T) {
	d := new(mockDispatcher)
	d.On("Connected").Return([]string{})
	h := NewRouter(d, nil, config.HttpConfig{HttpUser: "operator", HttpPassword: "secret"})

	rec := do(t, h, http.MethodGet, "/chargepoints", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/chargepoints", nil)
	req.SetBasicAuth("operator", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "api_test_total", Help: "Test counter."})
	registry.MustRegister(counter)
	counter.Inc()
	h := NewRouter(new(mockDispatcher), registry, config.HttpConfig{})

	rec := do(t, h, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "api_test_total 1")
}
