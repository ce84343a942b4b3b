package server

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"

	"github.com/homedash/homedash/internal/icons"
	"github.com/homedash/homedash/internal/widgets"
)

var streamWriteTimeout = time.Second * 5

// streamMsg is the browser push envelope: either a widget snapshot or a
// connection state transition.
type streamMsg struct {
	Type string `json:"type"`

	ID       string            `json:"id,omitempty"`
	Snapshot *widgets.Snapshot `json:"snapshot,omitempty"`

	State string `json:"state,omitempty"`
}

// hub fans stream messages out to all connected browsers. A client that
// cannot keep up gets dropped instead of blocking the others.
type hub struct {
	mu      sync.Mutex
	nextID  int64
	clients map[int64]chan streamMsg
}

func newHub() *hub {
	return &hub{clients: make(map[int64]chan streamMsg)}
}

func (h *hub) add() (int64, <-chan streamMsg) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	ch := make(chan streamMsg, 64)
	h.clients[id] = ch

	return id, ch
}

func (h *hub) remove(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(ch)
	}
}

func (h *hub) broadcast(msg streamMsg) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.clients {
		select {
		case ch <- msg:
		default:
			// slow consumer
			delete(h.clients, id)
			close(ch)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.clients {
		delete(h.clients, id)
		close(ch)
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// streamHandler upgrades to a websocket and replays the current state before
// following live updates, the browser never renders from a cold cache.
func (s *Server) streamHandler(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.pr.Warnf("%s stream upgrade failed: %v", icons.Cross, err)

		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	id, ch := s.hub.add()
	defer s.hub.remove(id)

	s.pr.Debugf("%s stream client #%d connected (%d total)", icons.ConnectionChain, id, s.hub.len())

	ctx := c.Request.Context()

	if err := s.replay(ctx, conn); err != nil {
		return
	}

	// reads are discarded, the stream is one-way; a read error doubles as
	// the disconnect signal
	readerDone := make(chan struct{})

	go func() {
		defer close(readerDone)

		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-readerDone:
			return

		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			if err := s.write(ctx, conn, msg); err != nil {
				return
			}
		}
	}
}

func (s *Server) replay(ctx context.Context, conn *websocket.Conn) error {
	if err := s.write(ctx, conn, streamMsg{Type: "connection", State: string(s.connectionState())}); err != nil {
		return err
	}

	for id, snap := range s.opts.Registry.Snapshots() {
		snap := snap

		if err := s.write(ctx, conn, streamMsg{Type: "widget", ID: id, Snapshot: &snap}); err != nil {
			return err
		}
	}

	return nil
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, msg streamMsg) error {
	writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()

	return wsjson.Write(writeCtx, conn, msg)
}
