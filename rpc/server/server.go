package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/skv/lib/store"
	"github.com/ValentinKolb/skv/rpc/common"
	"github.com/ValentinKolb/skv/rpc/conn"
	"github.com/ValentinKolb/skv/rpc/reactor"
	"github.com/ValentinKolb/skv/rpc/transport"
	"github.com/ValentinKolb/skv/rpc/transport/tcp"
	"github.com/lni/dragonboat/v4/logger"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var Logger = logger.GetLogger("server")

var _ reactor.Handler = (*Server)(nil)

// NewServer creates a new server that applies requests to store using adapter
//
// Usage:
//
//	s := server.NewServer(
//		config,
//		lstore.NewLocalStore(),
//		server.NewIStoreServerAdapter(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewServer(config common.ServerConfig, store store.IStore, adapter IServerAdapter) *Server {
	return &Server{
		config:  config,
		store:   store,
		adapter: adapter,
		conns:   reactor.NewSlab[*conn.Connection](config.MaxConnections),
	}
}

// Server accepts TCP connections and answers GET and PUT requests.
// All connections are served by a single reactor loop.
type Server struct {
	config  common.ServerConfig
	store   store.IStore
	adapter IServerAdapter

	loop     *reactor.Loop
	listener *tcp.Listener
	conns    *reactor.Slab[*conn.Connection]
	metrics  *http.Server
}

// Listen binds the listening socket and creates the loop. Serve calls it if
// it was not called before. Failures are fatal for the server.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}

	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	if s.config.LogLevel != "" {
		if err := common.InitLoggers(s.config.LogLevel); err != nil {
			return err
		}
	}

	listener, err := tcp.Listen(s.config.Transport)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	loop, err := reactor.NewLoop(0)
	if err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to create event loop: %w", err)
	}

	if err := loop.Register(listener.Fd(), reactor.ListenerToken, reactor.Readable); err != nil {
		_ = loop.Close()
		_ = listener.Close()
		return fmt.Errorf("failed to register listener: %w", err)
	}

	s.listener = listener
	s.loop = loop
	return nil
}

// Addr returns the bound address of the server (nil before Listen)
func (s *Server) Addr() *net.TCPAddr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve runs the server until Shutdown is called, SIGINT or SIGTERM is
// received or a fatal error occurs. All resources are released on return.
func (s *Server) Serve() error {
	if err := s.Listen(); err != nil {
		return err
	}
	defer s.close()

	Logger.Infof("skv server started")
	Logger.Infof("%s", s.config.String())

	if s.config.MetricsEndpoint != "" {
		s.metrics = startMetricsServer(s.config.MetricsEndpoint)
	}

	// stop the loop on SIGINT and SIGTERM
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer func() {
		signal.Stop(signals)
		close(signals)
	}()
	go func() {
		if sig, ok := <-signals; ok {
			Logger.Infof("received %s, shutting down", sig)
			_ = s.loop.Shutdown()
		}
	}()

	return s.loop.Run(s)
}

// Shutdown stops a running server.
//
// Thread-safety: This method is safe to call from any goroutine after Listen returned.
func (s *Server) Shutdown() error {
	if s.loop == nil {
		return nil
	}
	return s.loop.Shutdown()
}

// --------------------------------------------------------------------------
// Reactor Handler
// --------------------------------------------------------------------------

// Ready handles one readiness notification of the listener or a connection
func (s *Server) Ready(l *reactor.Loop, token reactor.Token, readiness reactor.Readiness) error {
	if token == reactor.ListenerToken {
		return s.accept(l)
	}

	c, ok := s.conns.Get(token)
	if !ok {
		// stale notification of an already removed connection
		return nil
	}

	if readiness.IsError() || readiness.IsHangup() {
		s.remove(l, token, c, fmt.Sprintf("socket reported %s", readiness))
		return nil
	}

	eof := false
	if readiness.IsReadable() {
		var err error
		if eof, err = c.Fill(); err != nil {
			s.remove(l, token, c, err.Error())
			return nil
		}

		for _, frame := range c.Frames() {
			c.Send(s.adapter.Handle(frame, s.store))
		}
	}

	// flush in the same tick so responses go out without waiting for a writable edge
	if c.WriteBuffered() > 0 {
		if _, err := c.Flush(); err != nil {
			s.remove(l, token, c, err.Error())
			return nil
		}
	}

	if eof {
		s.remove(l, token, c, "closed by peer")
		return nil
	}

	if err := l.Reregister(c.Fd(), token, c.Interest()); err != nil {
		s.remove(l, token, c, fmt.Sprintf("failed to re-arm: %v", err))
	}
	return nil
}

// Timeout is not used by the server
func (s *Server) Timeout(*reactor.Loop) error {
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// accept accepts all pending connections and re-arms the listener
func (s *Server) accept(l *reactor.Loop) error {
	for {
		socket, err := s.listener.Accept()
		if errors.Is(err, transport.ErrWouldBlock) {
			break
		}
		if err != nil {
			// e.g. EMFILE, the connection stays pending and is retried on the next notification
			Logger.Warningf("failed to accept connection: %v", err)
			break
		}

		c := conn.New(socket, conn.DefaultBufferSize)
		token, ok := s.conns.Insert(c)
		if !ok {
			connections.rejected.Inc()
			Logger.Warningf("connection limit of %d reached, rejecting %s", s.config.MaxConnections, socket.Peer())
			_ = c.Close()
			continue
		}

		if err := l.Register(c.Fd(), token, c.Interest()); err != nil {
			Logger.Errorf("failed to register %s: %v", socket, err)
			s.conns.Remove(token)
			_ = c.Close()
			continue
		}

		connections.accepted.Inc()
		connections.active.Inc()
		Logger.Debugf("accepted %s as %s", socket, token)
	}

	if err := l.Reregister(s.listener.Fd(), reactor.ListenerToken, reactor.Readable); err != nil {
		return fmt.Errorf("failed to re-arm listener: %w", err)
	}
	return nil
}

// remove deregisters and closes the connection of token
func (s *Server) remove(l *reactor.Loop, token reactor.Token, c *conn.Connection, reason string) {
	if _, ok := s.conns.Remove(token); !ok {
		return
	}

	if err := l.Deregister(c.Fd()); err != nil {
		Logger.Debugf("failed to deregister %s: %v", token, err)
	}
	if err := c.Close(); err != nil {
		Logger.Debugf("failed to close %s: %v", token, err)
	}

	connections.closed.Inc()
	connections.active.Dec()
	Logger.Debugf("removed connection %s: %s", token, reason)
}

// close releases the listener, all connections and the loop
func (s *Server) close() {
	s.conns.Range(func(token reactor.Token, c *conn.Connection) bool {
		s.remove(s.loop, token, c, "server shutdown")
		return true
	})

	if s.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = s.metrics.Shutdown(ctx)
		cancel()
	}

	_ = s.loop.Deregister(s.listener.Fd())
	_ = s.listener.Close()
	_ = s.loop.Close()

	Logger.Infof("skv server stopped")
}
