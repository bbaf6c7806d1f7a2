// Package endpoint accepts OCPP1.6 websocket connections and runs a session for each.
package endpoint

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"sw/ocpp/central/internal/auth"
	conf "sw/ocpp/central/internal/config"
	log "sw/ocpp/central/internal/logging"
	"sw/ocpp/central/internal/metrics"
	"sw/ocpp/central/internal/ocpp"
	"sw/ocpp/central/internal/session"
	"sw/ocpp/central/internal/telemetry"

	"github.com/gorilla/websocket"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
)

const Subprotocol = "ocpp1.6"

// ConnectionListener is told when a charge point session starts and ends.
type ConnectionListener interface {
	ClientConnected(chargePointId string, remoteAddr string)
	ClientDisconnected(chargePointId string, remoteAddr string)
}

type Params struct {
	Config        conf.CsmsServerConfig
	Authenticator auth.Authenticator
	Registry      *session.Registry
	Codec         *ocpp.Codec
	Handler       session.Handler
	Observer      session.FrameObserver
	Listener      ConnectionListener
	Metrics       *metrics.Collector
	Clock         clock.Clock
	HostName      string
}

// Server is the http.Handler upgrading charge point connections.
type Server struct {
	params   Params
	session  session.Config
	upgrader websocket.Upgrader
}

// SessionConfig converts the configured millisecond values. Unset values keep the
// session defaults.
func SessionConfig(c conf.SessionConfig) session.Config {
	config := session.DefaultConfig()
	if c.ResponseTimeoutMs > 0 {
		config.ResponseTimeout = c.ResponseTimeout()
	}
	if c.SendTimeoutMs > 0 {
		config.SendTimeout = c.SendTimeout()
	}
	if c.HandlerTimeoutMs > 0 {
		config.HandlerTimeout = c.HandlerTimeout()
	}
	if c.ReplyQueueSize > 0 {
		config.ReplyQueueSize = c.ReplyQueueSize
	}
	config.MaxFramesPerSecond = c.MaxFramesPerSecond
	return config
}

func NewServer(p Params) *Server {
	if p.Authenticator == nil {
		p.Authenticator = auth.AllowAll{}
	}
	if p.Registry == nil {
		p.Registry = session.NewRegistry()
	}
	if p.Codec == nil {
		p.Codec = ocpp.NewCodec(nil)
	}
	if p.Clock == nil {
		p.Clock = clock.WallClock
	}
	if p.Config.PathPrefix == "" {
		p.Config.PathPrefix = "/ocpp/16/"
	}
	return &Server{
		params:  p,
		session: SessionConfig(p.Config.Session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{Subprotocol},
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Registry() *session.Registry {
	return s.params.Registry
}

// ServeHTTP authenticates the charge point, upgrades the connection and runs its
// session until the connection ends.
func (s *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	log.Logger.Debug("Client connected to : ", req.Host, " path:", req.URL.Path, ", client: ", req.RemoteAddr)

	chargePointId, err := ChargePointIdFromPath(req.URL.Path, s.params.Config.PathPrefix)
	if err != nil {
		log.Logger.Warn("Invalid charge point id passed, return 404...: ", err.Error())
		rw.WriteHeader(http.StatusNotFound)
		return
	}
	if !s.authenticate(rw, req, chargePointId) {
		return
	}

	offered := websocket.Subprotocols(req)
	if s.params.Config.RequireSubprotocol && !slices.Contains(offered, Subprotocol) {
		log.Logger.Warnf("%s : subprotocols %v offered, %s required", chargePointId, offered, Subprotocol)
		http.Error(rw, "unsupported subprotocol", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(rw, req, nil)
	if err != nil {
		log.Logger.Errorf("%s : websocket: couldn't upgrade %s", req.RemoteAddr, err)
		return
	}
	s.serve(conn, req, chargePointId)
}

func (s *Server) serve(conn *websocket.Conn, req *http.Request, chargePointId string) {
	started := time.Now()
	logger := log.Logger.WithFields(logrus.Fields{"chargePointId": chargePointId, "remoteAddr": req.RemoteAddr})

	if s.params.Config.MaxMessageSize > 0 {
		conn.SetReadLimit(s.params.Config.MaxMessageSize)
	}

	sess := session.New(chargePointId, conn, session.Params{
		Codec:      s.params.Codec,
		Handler:    s.params.Handler,
		Registry:   s.params.Registry,
		Observer:   s.params.Observer,
		Metrics:    s.params.Metrics,
		Clock:      s.params.Clock,
		Config:     s.session,
		RemoteAddr: req.RemoteAddr,
	})

	if previous, replaced := s.params.Registry.Register(chargePointId, sess); replaced {
		logger.Warnf("Replacing session from %s", previous.RemoteAddr())
		previous.Close()
	}
	if s.params.Listener != nil {
		s.params.Listener.ClientConnected(chargePointId, req.RemoteAddr)
	}

	s.keepAlive(conn, sess)
	logger.Infof("Session open, subprotocol %q", conn.Subprotocol())

	err := sess.Run()
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		logger.Warnf("Session ended: %s", err)
	} else {
		logger.Info("Session ended")
	}

	// A replacement session announces itself, so only the last session of an id
	// reports the disconnect.
	if current, ok := s.params.Registry.Lookup(chargePointId); !ok || current == sess {
		if s.params.Listener != nil {
			s.params.Listener.ClientDisconnected(chargePointId, req.RemoteAddr)
		}
	}
	connectionUrl := fmt.Sprintf("%s:%d:%s", s.params.HostName, s.params.Config.ListenPort, req.URL)
	telemetry.TrackConnectionRequest(connectionUrl, time.Since(started), "200")
}

// keepAlive pings the charge point every ping period. Every pong pushes the read
// deadline out, so a peer that stops answering ends the session's read loop.
func (s *Server) keepAlive(conn *websocket.Conn, sess *session.Session) {
	period := s.params.Config.Session.PingPeriod()
	if period <= 0 {
		return
	}
	wait := period + s.params.Config.Session.PongWait()
	_ = conn.SetReadDeadline(time.Now().Add(wait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wait))
	})

	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-sess.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.session.SendTimeout)); err != nil {
					log.Logger.Debugf("%s : ping failed: %s", sess.ChargePointId(), err)
					return
				}
			}
		}
	}()
}

func (s *Server) authenticate(rw http.ResponseWriter, req *http.Request, chargePointId string) bool {
	config := s.params.Config
	if !config.EnableAuth && !config.BasicAuth {
		log.Logger.Debug("Charge point id OK, auth is disabled...")
		return true
	}

	var err error
	deniedStatus := http.StatusNotFound
	if config.BasicAuth {
		deniedStatus = http.StatusUnauthorized
		user, key, ok := req.BasicAuth()
		switch {
		case !ok:
			err = errors.Annotate(auth.ErrDenied, "no basic auth credentials")
		case user != chargePointId:
			err = errors.Annotatef(auth.ErrDenied, "basic auth user %q", user)
		default:
			err = s.params.Authenticator.AuthenticateWithKey(chargePointId, key)
		}
	} else {
		err = s.params.Authenticator.Authenticate(chargePointId)
	}

	switch {
	case err == nil:
		log.Logger.Debug("Charge point id OK: ", chargePointId)
		s.params.Metrics.AuthAttempt(metrics.AuthAccepted)
		telemetry.TrackAuthenticationEvent(chargePointId, req.RemoteAddr, "200")
		return true
	case errors.Is(err, auth.ErrDenied):
		log.Logger.Warnf("%s : authentication denied, return %d: %s", chargePointId, deniedStatus, err)
		s.params.Metrics.AuthAttempt(metrics.AuthDenied)
		telemetry.TrackAuthenticationEvent(chargePointId, req.RemoteAddr, "401")
		if deniedStatus == http.StatusUnauthorized {
			rw.Header().Set("WWW-Authenticate", `Basic realm="ocpp"`)
		}
		rw.WriteHeader(deniedStatus)
	default:
		log.Logger.Errorf("%s : authentication failed: %s", chargePointId, err)
		s.params.Metrics.AuthAttempt(metrics.AuthError)
		telemetry.TrackAuthenticationEvent(chargePointId, req.RemoteAddr, "503")
		rw.WriteHeader(http.StatusServiceUnavailable)
	}
	return false
}
