// Package dashboard serves live daemon events over WebSocket.
//
// Clients connect to /ws and receive one JSON message per lifecycle event:
// state changes, pass starts and pass results. A newly connected client
// first receives a snapshot of the latest daemon status.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// MessageType names a dashboard message.
type MessageType string

const (
	MessageTypeSnapshot      MessageType = "snapshot"
	MessageTypeStateChanged  MessageType = "state_changed"
	MessageTypePassStarted   MessageType = "pass_started"
	MessageTypePassCompleted MessageType = "pass_completed"
)

// Message is the envelope written to every client.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

const (
	defaultHost  = "127.0.0.1"
	queueSize    = 32
	writeTimeout = 5 * time.Second
)

// Config controls where the dashboard listens. Port 0 picks a free port.
type Config struct {
	Host   string
	Port   int
	Logger *log.Logger
}

// DefaultConfig binds to loopback on 8765.
func DefaultConfig() *Config {
	return &Config{
		Host:   defaultHost,
		Port:   8765,
		Logger: log.New(io.Discard, "", 0),
	}
}

// subscriber is one connected client. Each has its own queue and writer so
// a slow browser tab only loses its own messages.
type subscriber struct {
	conn  *websocket.Conn
	queue chan []byte
}

// Server fans daemon messages out to WebSocket subscribers.
type Server struct {
	addr   string
	logger *log.Logger

	listener net.Listener
	http     *http.Server

	mu       sync.Mutex
	subs     map[*subscriber]struct{}
	snapshot json.RawMessage

	done chan struct{}
	wg   sync.WaitGroup
}

// NewServer prepares a server; call Start to listen.
func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	host := config.Host
	if host == "" {
		host = defaultHost
	}
	logger := config.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		addr:   net.JoinHostPort(host, strconv.Itoa(config.Port)),
		logger: logger,
		subs:   make(map[*subscriber]struct{}),
		done:   make(chan struct{}),
	}
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.http = &http.Server{Handler: s.routes(), ReadHeaderTimeout: 10 * time.Second}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Dashboard listening on %s", ln.Addr())
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("Dashboard serve error: %v", err)
		}
	}()
	return nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.serveWS)
	mux.HandleFunc("GET /health", s.serveHealth)
	mux.HandleFunc("GET /status", s.serveStatus)
	mux.HandleFunc("GET /{$}", s.serveIndex)
	return mux
}

// Stop disconnects every client and shuts the listener down.
func (s *Server) Stop() error {
	select {
	case <-s.done:
		return nil
	default:
		close(s.done)
	}

	s.mu.Lock()
	for sub := range s.subs {
		delete(s.subs, sub)
		close(sub.queue)
	}
	s.mu.Unlock()

	if s.http == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down dashboard: %w", err)
	}
	s.wg.Wait()
	s.logger.Println("Dashboard stopped")
	return nil
}

// Broadcast queues msg for every client without blocking. A client whose
// queue is full misses the message.
func (s *Server) Broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Printf("Failed to encode %s message: %v", msg.Type, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		select {
		case sub.queue <- data:
		default:
			s.logger.Printf("Dropping %s message for a slow client", msg.Type)
		}
	}
}

// SetSnapshot replaces the status sent on connect and served at /status.
func (s *Server) SetSnapshot(data json.RawMessage) {
	s.mu.Lock()
	s.snapshot = data
	s.mu.Unlock()
}

func (s *Server) currentSnapshot() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// subscribe registers conn with the snapshot already at the head of its
// queue, so later broadcasts always arrive after it.
func (s *Server) subscribe(conn *websocket.Conn) (*subscriber, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return nil, false
	default:
	}

	welcome, err := json.Marshal(Message{
		Type:      MessageTypeSnapshot,
		Timestamp: time.Now().UTC(),
		Data:      s.snapshot,
	})
	if err != nil {
		return nil, false
	}
	sub := &subscriber{conn: conn, queue: make(chan []byte, queueSize)}
	sub.queue <- welcome
	s.subs[sub] = struct{}{}
	s.logger.Printf("Client connected (%d total)", len(s.subs))
	return sub, true
}

func (s *Server) unsubscribe(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub]; !ok {
		return
	}
	delete(s.subs, sub)
	close(sub.queue)
	s.logger.Printf("Client disconnected (%d total)", len(s.subs))
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	sub, ok := s.subscribe(conn)
	if !ok {
		_ = conn.Close(websocket.StatusGoingAway, "dashboard stopping")
		return
	}

	// CloseRead discards client frames and cancels ctx once the peer leaves.
	ctx := conn.CloseRead(context.Background())
	go func() {
		<-ctx.Done()
		s.unsubscribe(sub)
	}()
	s.pump(ctx, sub)
}

// pump writes queued messages until the queue is closed or a write fails.
func (s *Server) pump(ctx context.Context, sub *subscriber) {
	for data := range sub.queue {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := sub.conn.Write(wctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			s.unsubscribe(sub)
			break
		}
	}
	_ = sub.conn.Close(websocket.StatusNormalClosure, "")
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ok", "clients": s.ClientCount()})
}

func (s *Server) serveStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := s.currentSnapshot()
	if snapshot == nil {
		snapshot = json.RawMessage("{}")
	}
	writeJSON(w, snapshot)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprintf(w, indexPage, r.Host)
}

const indexPage = `<!DOCTYPE html>
<title>PowerFlow Daemon</title>
<h1>PowerFlow Daemon</h1>
<ul>
  <li>Events: <code>ws://%[1]s/ws</code></li>
  <li>Status: <a href="/status">/status</a></li>
  <li>Health: <a href="/health">/health</a></li>
</ul>
`

// Addr is the bound address once started, else the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount reports connected clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
