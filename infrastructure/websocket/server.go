// Package websocket exposes the relay over gorilla websockets.
package websocket

import (
	"chat-relay/contract"
	"chat-relay/services"
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const shutdownTimeout = 5 * time.Second

type roomStats interface {
	Ready() bool
	RoomCount() int
}

// Health is the payload of GET /healthz.
type Health struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Rooms       int    `json:"rooms"`
}

// Server upgrades /ws requests and runs one Session per connection.
// It is a contract.Worker: Run serves until the context is cancelled.
type Server struct {
	log      *slog.Logger
	address  string
	chat     services.IChatService
	registry contract.IRegistry
	rooms    roomStats
	options  Options
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*Connection]struct{}
	wg    sync.WaitGroup
}

func NewServer(log *slog.Logger,
	address string,
	chat services.IChatService,
	registry contract.IRegistry,
	rooms roomStats,
	options Options) *Server {
	return &Server{
		log:      log,
		address:  address,
		chat:     chat,
		registry: registry,
		rooms:    rooms,
		options:  options,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browsers from any origin may connect, there is no authentication
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*Connection]struct{}),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/healthz", s.serveHealth)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts on listener until ctx is done, then closes every open
// connection and waits for their sessions to finish.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Starting websocket server", "address", listener.Addr().String(), "at", time.Now().UTC())
		if err := httpServer.Serve(listener); err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("websocket server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errChan:
		s.closeAll()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := httpServer.Shutdown(shutdownCtx)
	// Hijacked connections are not tracked by http.Server
	s.closeAll()
	s.wg.Wait()
	s.log.Info("Websocket server stopped")
	return err
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		s.log.Debug("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	conn := NewConnection(ws, s.log, s.options)
	s.track(conn)
	defer s.untrack(conn)

	stop := context.AfterFunc(r.Context(), conn.Close)
	defer stop()

	session := s.chat.Open(conn)
	go conn.writePump()
	conn.readPump(r.Context(), session.Handle)
	session.Close()
}

func (s *Server) serveHealth(w http.ResponseWriter, _ *http.Request) {
	health := Health{
		Status:      "ok",
		Connections: s.registry.Count(),
		Rooms:       s.rooms.RoomCount(),
	}
	status := http.StatusOK
	if !s.rooms.Ready() {
		health.Status = "starting"
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(health)
}

func (s *Server) track(conn *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wg.Add(1)
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
	s.wg.Done()
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}
