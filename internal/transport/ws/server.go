// Package ws bridges a game to websocket clients: commands in, responses
// and game events out.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"sburbterm/internal/debug"
	"sburbterm/internal/game/commands"
	"sburbterm/internal/game/events"
	"sburbterm/internal/observability"
)

const (
	writeTimeout = 5 * time.Second
	readTimeout  = 10 * time.Minute
	outQueue     = 64
)

type Executor interface {
	Execute(ctx context.Context, input string) (commands.Response, error)
}

type Subscriber interface {
	Subscribe(fn func(events.Event)) func()
}

type Server struct {
	game Executor
	bus  Subscriber
	log  *debug.Logger

	// one command at a time across every connection
	mu sync.Mutex

	upgrader websocket.Upgrader
}

func NewServer(game Executor, bus Subscriber, log *debug.Logger) *Server {
	return &Server{
		game: game,
		bus:  bus,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // local play
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			s.log.Printf("ws: upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		sessionID := uuid.NewString()
		ctx, cancel := context.WithCancel(observability.WithSessionID(r.Context(), sessionID))
		defer cancel()

		out := make(chan Outbound, outQueue)
		if err := writeJSON(conn, Outbound{Type: TypeWelcome, ProtocolVersion: ProtocolVersion, SessionID: sessionID}); err != nil {
			return
		}
		s.log.Printf("ws: %s connected from %s", sessionID, r.RemoteAddr)

		if s.bus != nil {
			unsubscribe := s.bus.Subscribe(func(ev events.Event) {
				select {
				case out <- Outbound{Type: TypeEvent, Event: &ev}:
				default:
					s.log.Printf("ws: %s queue full, dropped %s", sessionID, ev.Name)
				}
			})
			defer unsubscribe()
		}

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case frame := <-out:
					b, err := json.Marshal(frame)
					if err != nil {
						s.log.Printf("ws: %s skipped unencodable %s frame: %v", sessionID, frame.Type, err)
						continue
					}
					if err := writeFrame(conn, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			reply := s.handle(ctx, msg)
			select {
			case out <- reply:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		s.log.Printf("ws: %s disconnected", sessionID)
	}
}

func (s *Server) handle(ctx context.Context, msg []byte) Outbound {
	var in Inbound
	if err := json.Unmarshal(msg, &in); err != nil {
		return Outbound{Type: TypeError, Error: "malformed frame"}
	}
	if in.Type != TypeCommand {
		return Outbound{Type: TypeError, Error: "unknown frame type " + in.Type}
	}

	s.mu.Lock()
	resp, err := s.game.Execute(ctx, in.Command)
	s.mu.Unlock()
	if err != nil {
		return Outbound{Type: TypeError, Error: err.Error()}
	}
	return Outbound{Type: TypeResponse, Response: &resp}
}

// ListenAndServe serves the websocket endpoint at /ws until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Printf("ws: listening on %s", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeFrame(conn, b)
}

func writeFrame(conn *websocket.Conn, b []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
