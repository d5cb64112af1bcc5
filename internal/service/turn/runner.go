package turn

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/travela2a/concierge/backend/internal/service/orchestrator"
)

// State is the protocol state of a session runner.
type State string

const (
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateStreaming  State = "streaming"
	StateClosed     State = "closed"
)

// Handler runs one turn for a session. orchestrator.Orchestrator satisfies it.
type Handler interface {
	HandleTurn(ctx context.Context, sessionID, text string, emit func(fragment string)) (orchestrator.Result, error)
}

// Runner is the single worker of one session. Turns run strictly one at a
// time in acceptance order. While a turn streams, at most one more turn waits;
// newer input replaces the waiting turn, which ends as interrupted.
type Runner struct {
	sessionID string
	handler   Handler
	messages  Messages

	mu      sync.Mutex
	state   State
	current *Turn
	pending *Turn
	nextID  uint64

	start  chan *Turn
	closed chan struct{}
	exited chan struct{}
}

// NewRunner starts the worker goroutine for sessionID in the connecting state.
func NewRunner(sessionID string, handler Handler, messages Messages) *Runner {
	r := &Runner{
		sessionID: sessionID,
		handler:   handler,
		messages:  messages.withDefaults(),
		state:     StateConnecting,
		start:     make(chan *Turn, 1),
		closed:    make(chan struct{}),
		exited:    make(chan struct{}),
	}
	go r.loop()
	return r
}

// SessionID returns the session served by r.
func (r *Runner) SessionID() string {
	return r.sessionID
}

// State returns the current protocol state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Open marks the handshake as done.
func (r *Runner) Open() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateConnecting {
		r.state = StateOpen
	}
}

// Submit accepts a user message. The returned turn always receives exactly one
// terminal frame.
func (r *Runner) Submit(text string) (*Turn, error) {
	r.mu.Lock()
	if r.state == StateClosed {
		r.mu.Unlock()
		return nil, ErrRunnerClosed
	}

	r.nextID++
	t := newTurn(r, r.nextID, text)

	var displaced *Turn
	switch {
	case r.current == nil:
		r.current = t
		r.state = StateStreaming
		r.start <- t
	default:
		displaced = r.pending
		r.pending = t
	}
	r.mu.Unlock()

	if displaced != nil {
		log.Printf("[turn] session=%s turn=%d superseded by turn=%d", r.sessionID, displaced.ID, t.ID)
		displaced.cancel(ErrSuperseded)
		displaced.finish(Interrupted(r.messages.Superseded))
	}
	return t, nil
}

// Interrupt cancels the streaming turn. It ends with an interrupted frame and
// emits nothing afterwards. A waiting turn is not affected.
func (r *Runner) Interrupt() bool {
	r.mu.Lock()
	t := r.current
	r.mu.Unlock()
	if t == nil {
		return false
	}
	log.Printf("[turn] session=%s turn=%d interrupted by client", r.sessionID, t.ID)
	t.cancel(ErrInterrupted)
	return t.finish(Interrupted(""))
}

// Close cancels every turn and stops the worker. It is safe to call twice.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.state == StateClosed {
		r.mu.Unlock()
		return
	}
	r.state = StateClosed
	current, pending := r.current, r.pending
	r.pending = nil
	close(r.closed)
	r.mu.Unlock()

	for _, t := range []*Turn{current, pending} {
		if t == nil {
			continue
		}
		t.cancel(ErrRunnerClosed)
		t.finish(Interrupted(""))
	}
	<-r.exited
}

// drop cancels t and ends it with terminal, removing it from the queue if it
// has not started yet.
func (r *Runner) drop(t *Turn, cause error, terminal Frame) {
	r.mu.Lock()
	if r.pending == t {
		r.pending = nil
	}
	r.mu.Unlock()

	t.cancel(cause)
	if t.finish(terminal) {
		log.Printf("[turn] session=%s turn=%d ended: %v", r.sessionID, t.ID, cause)
	}
}

func (r *Runner) loop() {
	defer close(r.exited)
	for {
		select {
		case <-r.closed:
			return
		case t := <-r.start:
			for t != nil {
				r.execute(t)
				t = r.advance()
			}
		}
	}
}

// advance promotes the waiting turn, or returns the runner to open.
func (r *Runner) advance() *Turn {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateClosed {
		r.current = nil
		return nil
	}
	next := r.pending
	r.pending = nil
	r.current = next
	if next == nil {
		r.state = StateOpen
	}
	return next
}

func (r *Runner) execute(t *Turn) {
	if t.ctx.Err() != nil {
		t.finish(Interrupted(""))
		return
	}

	res, err := r.handler.HandleTurn(t.ctx, r.sessionID, t.Text, func(fragment string) {
		t.emit(Fragment(fragment))
	})

	switch {
	case err == nil:
		message := ""
		if res.Fallback {
			message = res.Reply
		}
		t.finish(Complete(message))
	case t.ctx.Err() != nil:
		t.finish(Interrupted(""))
	case errors.Is(err, context.DeadlineExceeded):
		log.Printf("[turn] session=%s turn=%d timed out: %v", r.sessionID, t.ID, err)
		t.finish(Complete(r.messages.Timeout))
	default:
		log.Printf("[turn] session=%s turn=%d failed: %v", r.sessionID, t.ID, err)
		t.finish(Complete(r.messages.Failure))
	}
	t.cancel(nil)
}
