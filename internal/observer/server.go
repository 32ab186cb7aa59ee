// Package observer streams a running world to websocket clients. Observers
// are read-only: they receive the tile layout once and then one frame per
// published tick.
package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/tui-traffic/internal/sim"
)

// ProtocolVersion is sent in every hello and bootstrap response.
const ProtocolVersion = 1

// Message types.
const (
	TypeHello = "HELLO"
	TypeFrame = "FRAME"
)

const (
	writeWait  = 5 * time.Second
	readWait   = 60 * time.Second
	sendBuffer = 8
)

// Hello is the first message on every connection.
type Hello struct {
	Type            string         `json:"type"`
	ProtocolVersion int            `json:"protocol_version"`
	Session         string         `json:"session"`
	Scene           string         `json:"scene"`
	Tiles           []sim.TileView `json:"tiles"`
	Frame           *sim.Snapshot  `json:"frame,omitempty"`
}

// FrameMsg carries one tick.
type FrameMsg struct {
	Type  string       `json:"type"`
	Frame sim.Snapshot `json:"frame"`
}

// Bootstrap is served over plain HTTP for clients that want the layout
// before connecting.
type Bootstrap struct {
	ProtocolVersion int            `json:"protocol_version"`
	Scene           string         `json:"scene"`
	Tick            uint64         `json:"tick"`
	TickRate        int            `json:"tick_rate"`
	Tiles           []sim.TileView `json:"tiles"`
	Observers       int            `json:"observers"`
}

// Config controls a Server.
type Config struct {
	// AllowRemote accepts connections from non-loopback addresses.
	AllowRemote bool
	TickRate    int
}

// Server fans frames out to connected observers.
type Server struct {
	cfg      Config
	logger   *log.Logger
	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu     sync.RWMutex
	scene  string
	tiles  []sim.TileView
	latest *sim.Snapshot
	subs   map[string]chan []byte
	drops  map[string]uint64
}

// NewServer creates a server for a scene layout. A nil logger discards.
func NewServer(scene string, tiles []sim.TileView, cfg Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		scene: scene,
		tiles: tiles,
		subs:  make(map[string]chan []byte),
		drops: make(map[string]uint64),
	}
}

// Handler returns the HTTP routes: /bootstrap and /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/ws", s.WSHandler())
	return mux
}

// Observers returns the number of connected observers.
func (s *Server) Observers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Publish sends a frame to every observer. Observers that fall behind lose
// frames rather than slowing the publisher.
func (s *Server) Publish(frame sim.Snapshot) error {
	frame.Tiles = nil
	b, err := json.Marshal(FrameMsg{Type: TypeFrame, Frame: frame})
	if err != nil {
		return fmt.Errorf("observer: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &frame
	for id, ch := range s.subs {
		select {
		case ch <- b:
		default:
			s.drops[id]++
		}
	}
	return nil
}

// BootstrapHandler serves the layout as JSON.
func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		s.mu.RLock()
		resp := Bootstrap{
			ProtocolVersion: ProtocolVersion,
			Scene:           s.scene,
			TickRate:        s.cfg.TickRate,
			Tiles:           s.tiles,
			Observers:       len(s.subs),
		}
		if s.latest != nil {
			resp.Tick = s.latest.Tick
		}
		s.mu.RUnlock()

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

// WSHandler upgrades the connection and streams frames until the client
// goes away.
func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			s.logger.Debug("upgrade failed", "remote", r.RemoteAddr, "err", err)
			return
		}
		defer conn.Close()

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		out, hello := s.subscribe(sid)
		defer s.unsubscribe(sid)

		s.logger.Info("observer joined", "session", sid, "remote", r.RemoteAddr)
		defer s.logger.Info("observer left", "session", sid)

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(hello); err != nil {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Observers never send anything meaningful; reading only detects
		// the close.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readWait))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) subscribe(sid string) (chan []byte, Hello) {
	out := make(chan []byte, sendBuffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sid] = out
	hello := Hello{
		Type:            TypeHello,
		ProtocolVersion: ProtocolVersion,
		Session:         sid,
		Scene:           s.scene,
		Tiles:           s.tiles,
	}
	if s.latest != nil {
		f := *s.latest
		hello.Frame = &f
	}
	return out, hello
}

func (s *Server) unsubscribe(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.drops[sid]; n > 0 {
		s.logger.Debug("observer dropped frames", "session", sid, "frames", n)
	}
	delete(s.subs, sid)
	delete(s.drops, sid)
}

func (s *Server) allowed(r *http.Request) bool {
	return s.cfg.AllowRemote || isLoopbackRemote(r.RemoteAddr)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
