package http

import (
	"context"
	"net"
	nethttp "net/http"
	"time"

	log "sw/ocpp/central/internal/logging"

	"github.com/juju/errors"
)

type TcpKeepAliveListener struct {
	*net.TCPListener
}

func (l TcpKeepAliveListener) Accept() (net.Conn, error) {
	conn, err := l.AcceptTCP()
	if err != nil {
		return nil, err
	}
	_ = conn.SetKeepAlive(true)
	_ = conn.SetKeepAlivePeriod(3 * time.Minute)
	return conn, nil
}

// Server is a started HTTP server.
type Server struct {
	srv      *nethttp.Server
	listener net.Listener
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Shutdown stops accepting connections and waits for handlers until ctx is done.
// Hijacked connections such as websockets are not waited for.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.srv.Close()
}

// ListenAndServeWithClose binds addr and serves handler on a background goroutine.
// idleTimeout of zero keeps the net/http default.
func ListenAndServeWithClose(addr string, handler nethttp.Handler, idleTimeout time.Duration) (*Server, error) {
	srv := &nethttp.Server{Addr: addr, Handler: handler, IdleTimeout: idleTimeout, ReadHeaderTimeout: 10 * time.Second}

	if addr == "" {
		addr = ":http"
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Annotatef(err, "listen on %s", addr)
	}

	go func() {
		err := srv.Serve(TcpKeepAliveListener{listener.(*net.TCPListener)})
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Logger.Errorf("HTTP Server Error - %s", err)
		}
	}()

	return &Server{srv: srv, listener: listener}, nil
}
