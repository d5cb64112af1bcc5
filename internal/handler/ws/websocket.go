package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/travela2a/concierge/backend/internal/service/turn"
)

// InterruptCommand is the inbound text that cancels the streaming turn.
const InterruptCommand = "/interrupt"

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler serves the turn protocol over WebSocket. Inbound frames are plain
// text user messages; outbound frames are JSON turn.Frame values.
type Handler struct {
	hub      *turn.Hub
	busy     string
	greeting string
	upgrader websocket.Upgrader
}

// New creates the WebSocket handler. An empty greeting disables the welcome
// frame.
func New(hub *turn.Hub, greeting string) *Handler {
	return &Handler{
		hub:      hub,
		busy:     turn.DefaultMessages.Busy,
		greeting: greeting,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the WebSocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

// connection is the per-socket state. The writer goroutine is the only one
// writing data frames; pings and close frames go through WriteControl.
type connection struct {
	sessionID string
	conn      *websocket.Conn
	runner    *turn.Runner

	ctx    context.Context
	cancel context.CancelFunc

	// queue is unbounded so the reader never waits on the writer; superseded
	// turns pile up here already finished while the current one streams.
	mu          sync.Mutex
	queue       []outbound
	ready       chan struct{}
	outstanding []*turn.Turn
}

// outbound is either a turn to relay up to its terminal frame, or a single
// frame. closeAfter ends the connection once it has been written.
type outbound struct {
	turn       *turn.Turn
	frame      turn.Frame
	closeAfter bool
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &connection{
		sessionID: sessionID,
		conn:      conn,
		ctx:       ctx,
		cancel:    cancel,
		ready:     make(chan struct{}, 1),
	}

	runner, detach := h.hub.Attach(sessionID, true, c.kick)
	c.runner = runner
	defer func() {
		c.abandonOutstanding()
		detach()
		log.Printf("[ws] session=%s connection closed", sessionID)
	}()

	log.Printf("[ws] session=%s connected", sessionID)

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	if h.greeting != "" {
		if err := c.write(turn.Complete(h.greeting)); err != nil {
			log.Printf("[ws] session=%s greeting failed: %v", sessionID, err)
			return
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.pingLoop()
	}()
	go func() {
		defer wg.Done()
		c.writeLoop()
	}()

	h.readLoop(c)
	cancel()
	wg.Wait()
}

func (h *Handler) readLoop(c *connection) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[ws] session=%s read error: %v", c.sessionID, err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(readTimeout))

		if messageType != websocket.TextMessage {
			continue
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}
		if text == InterruptCommand {
			c.runner.Interrupt()
			continue
		}

		t, err := c.runner.Submit(text)
		if errors.Is(err, turn.ErrRunnerClosed) {
			// The session is being torn down; the writer tells the client and
			// closes the connection, which ends this loop.
			c.enqueue(outbound{frame: turn.Interrupted(h.busy), closeAfter: true})
			continue
		}
		if err != nil {
			log.Printf("[ws] session=%s submit failed: %v", c.sessionID, err)
			return
		}

		c.track(t)
		c.enqueue(outbound{turn: t})
	}
}

func (c *connection) enqueue(item outbound) {
	c.mu.Lock()
	c.queue = append(c.queue, item)
	c.mu.Unlock()

	select {
	case c.ready <- struct{}{}:
	default:
	}
}

func (c *connection) dequeue() (outbound, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return outbound{}, false
	}
	item := c.queue[0]
	c.queue[0] = outbound{}
	c.queue = c.queue[1:]
	return item, true
}

// writeLoop relays turns in submission order, each one fully up to its
// terminal frame before the next.
func (c *connection) writeLoop() {
	for {
		item, ok := c.dequeue()
		if !ok {
			select {
			case <-c.ctx.Done():
				return
			case <-c.ready:
				continue
			}
		}

		if err := c.relay(item); err != nil {
			log.Printf("[ws] session=%s write failed: %v", c.sessionID, err)
			c.close()
			return
		}
		if item.closeAfter {
			c.close()
			return
		}
	}
}

func (c *connection) relay(item outbound) error {
	if item.turn == nil {
		return c.write(item.frame)
	}
	for {
		f, ok := item.turn.Next(c.ctx)
		if !ok {
			return nil
		}
		if err := c.write(f); err != nil {
			return err
		}
	}
}

func (c *connection) write(f turn.Frame) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(f)
}

func (c *connection) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				log.Printf("[ws] session=%s ping failed: %v", c.sessionID, err)
				return
			}
		}
	}
}

// kick is called by the hub when a newer connection takes the session over,
// or when the session is deleted.
func (c *connection) kick() {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "superseded by a newer connection")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.close()
}

// close unblocks both the reader and the writer.
func (c *connection) close() {
	c.cancel()
	_ = c.conn.Close()
}

func (c *connection) track(t *turn.Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	live := c.outstanding[:0]
	for _, o := range c.outstanding {
		select {
		case <-o.Done():
		default:
			live = append(live, o)
		}
	}
	c.outstanding = append(live, t)
}

// abandonOutstanding cancels every turn this connection submitted that has
// not ended yet. Their partial output stays in the session.
func (c *connection) abandonOutstanding() {
	c.mu.Lock()
	turns := c.outstanding
	c.outstanding = nil
	c.mu.Unlock()

	for _, t := range turns {
		select {
		case <-t.Done():
		default:
			t.Abandon()
		}
	}
}
