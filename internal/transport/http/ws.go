package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nadzzz/cutline/internal/history"
	"github.com/nadzzz/cutline/internal/selection"
	"github.com/nadzzz/cutline/internal/session"
)

// wsMessage is both directions of the /ws protocol. Clients send
// {"type":"command","text":"..."} (or choose/apply/discard/undo/reset/ping);
// the server pushes snapshot, event, error and pong frames. Liveness is
// checked with websocket ping/pong control frames.
type wsMessage struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Voice  bool   `json:"voice,omitempty"`
	Target string `json:"target,omitempty"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// wsConn serializes writes to one websocket.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

const wsWriteWait = 10 * time.Second

func (c *wsConn) send(m wsMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteJSON(m)
}

func (c *wsConn) ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

func (t *Transport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &wsConn{conn: conn}
	defer conn.Close()

	id := uuid.NewString()
	log := slog.With("ws", id)
	log.Info("websocket client connected", "remote", r.RemoteAddr)

	events, unsubscribe := t.svc.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if snap, err := t.svc.Snapshot(ctx); err == nil {
		_ = c.send(wsMessage{Type: "snapshot", Data: snap})
	}

	conn.SetReadLimit(64 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(t.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(t.pongWait))
	})

	// Read errors are permanent on a websocket, so any error ends the loop.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			var msg wsMessage
			if err := conn.ReadJSON(&msg); err != nil {
				var netErr net.Error
				switch {
				case errors.As(err, &netErr) && netErr.Timeout():
					log.Info("websocket client timed out")
				case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure):
					log.Warn("websocket read failed", "error", err)
				}
				return
			}
			t.handleWSMessage(ctx, c, msg)
			// A turn can outlast pongWait; restart the clock once it is done.
			_ = conn.SetReadDeadline(time.Now().Add(t.pongWait))
		}
	}()

	ticker := time.NewTicker(t.pongWait * 5 / 6)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-readDone:
			log.Info("websocket client disconnected")
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				log.Debug("websocket ping failed", "error", err)
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := c.send(wsMessage{Type: "event", Data: ev}); err != nil {
				log.Warn("websocket write failed", "error", err)
				return
			}
		}
	}
}

// handleWSMessage runs one client request. Turn outcomes reach the client
// through the event stream; only failures are answered directly.
func (t *Transport) handleWSMessage(ctx context.Context, c *wsConn, msg wsMessage) {
	var err error
	switch msg.Type {
	case "ping":
		_ = c.send(wsMessage{Type: "pong"})
		return
	case "command":
		role := history.RoleUser
		if msg.Voice {
			role = history.RoleUserVoice
		}
		_, err = t.svc.Submit(ctx, msg.Text, role)
	case "choose":
		target := selection.ParseTarget(msg.Target)
		if target == selection.TargetNone {
			err = errors.New("target must be clips or tracks")
			break
		}
		_, err = t.svc.Choose(ctx, target)
	case "apply":
		_, err = t.svc.Apply(ctx)
	case "discard":
		_, err = t.svc.Discard(ctx)
	case "undo":
		_, err = t.svc.Undo(ctx)
	case "reset":
		if err = t.svc.Reset(ctx); err == nil {
			var snap session.Snapshot
			if snap, err = t.svc.Snapshot(ctx); err == nil {
				_ = c.send(wsMessage{Type: "snapshot", Data: snap})
			}
		}
	default:
		err = errors.New("unknown message type " + msg.Type)
	}
	if err != nil {
		_ = c.send(wsMessage{Type: "error", Error: err.Error()})
	}
}
