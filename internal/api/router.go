// Package api is the operator REST interface for sending commands to connected
// charge points.
package api

import (
	"encoding/json"
	"io"
	"net/http"

	"sw/ocpp/central/internal/config"
	"sw/ocpp/central/internal/dispatch"
	log "sw/ocpp/central/internal/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MaxPayloadSize bounds command request bodies.
const MaxPayloadSize = 64 * 1024

type router struct {
	dispatcher dispatch.Dispatcher
}

// NewRouter serves the command API for dispatcher. Metrics from gatherer are served
// on /metrics when it is not nil. When conf names a user, everything except /ping and
// /metrics requires basic auth.
func NewRouter(dispatcher dispatch.Dispatcher, gatherer prometheus.Gatherer, conf config.HttpConfig) http.Handler {
	rt := &router{dispatcher: dispatcher}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if conf.HttpUser != "" {
			r.Use(middleware.BasicAuth("ocpp-central", map[string]string{
				conf.HttpUser: conf.HttpPassword,
			}))
		}
		r.Route("/chargepoints", func(r chi.Router) {
			r.Get("/", rt.listChargePoints)
			r.Post("/{chargePointId}/actions/{action}", rt.sendAction)
		})
	})
	return r
}

type chargePointsResponse struct {
	ChargePoints []string `json:"chargePoints"`
}

func (rt *router) listChargePoints(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, chargePointsResponse{ChargePoints: rt.dispatcher.Connected()})
}

func (rt *router) sendAction(w http.ResponseWriter, r *http.Request) {
	chargePointId := chi.URLParam(r, "chargePointId")
	action := chi.URLParam(r, "action")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxPayloadSize))
	if err != nil {
		render.Render(w, r, ErrBadRequest(err))
		return
	}
	if len(body) == 0 {
		body = []byte("{}")
	}

	log.Logger.Infof("Command %s to %s", action, chargePointId)
	payload, err := rt.dispatcher.Dispatch(r.Context(), chargePointId, action, json.RawMessage(body))
	if err != nil {
		log.Logger.Infof("Command %s to %s failed: %s", action, chargePointId, err)
		render.Render(w, r, ErrDispatch(err))
		return
	}
	render.JSON(w, r, payload)
}
