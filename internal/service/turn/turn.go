package turn

import (
	"context"
	"sync"
)

// Turn is one user message and the frames produced for it. Frames queue
// without bound so a slow reader never stalls the session worker.
type Turn struct {
	ID   uint64
	Text string

	ctx    context.Context
	cancel context.CancelCauseFunc
	runner *Runner

	mu       sync.Mutex
	queue    []Frame
	finished bool
	signal   chan struct{}
	done     chan struct{}
	terminal Frame
}

func newTurn(r *Runner, id uint64, text string) *Turn {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &Turn{
		ID:     id,
		Text:   text,
		ctx:    ctx,
		cancel: cancel,
		runner: r,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// emit queues a non-terminal frame. It is dropped once the turn is cancelled
// or finished.
func (t *Turn) emit(f Frame) {
	if t.ctx.Err() != nil {
		return
	}
	t.push(f)
}

// finish queues the terminal frame. Only the first call has an effect.
func (t *Turn) finish(f Frame) bool {
	return t.push(f)
}

func (t *Turn) push(f Frame) bool {
	t.mu.Lock()
	if t.finished {
		t.mu.Unlock()
		return false
	}
	t.queue = append(t.queue, f)
	if f.Terminal() {
		t.finished = true
		t.terminal = f
		close(t.done)
	}
	t.mu.Unlock()

	select {
	case t.signal <- struct{}{}:
	default:
	}
	return true
}

// Next blocks until a frame is available and returns it. After the terminal
// frame has been returned, or when ctx ends, ok is false.
func (t *Turn) Next(ctx context.Context) (f Frame, ok bool) {
	for {
		t.mu.Lock()
		if len(t.queue) > 0 {
			f = t.queue[0]
			t.queue[0] = Frame{}
			t.queue = t.queue[1:]
			t.mu.Unlock()
			return f, true
		}
		drained := t.finished
		t.mu.Unlock()

		if drained {
			return Frame{}, false
		}
		select {
		case <-t.signal:
		case <-ctx.Done():
			return Frame{}, false
		}
	}
}

// Done is closed once the terminal frame has been queued.
func (t *Turn) Done() <-chan struct{} {
	return t.done
}

// Terminal returns the terminal frame; it is only meaningful after Done.
func (t *Turn) Terminal() Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.terminal
}

// Abandon is called when the transport that submitted the turn went away. The
// turn is cancelled and ends as interrupted without a synthesized completion.
func (t *Turn) Abandon() {
	t.runner.drop(t, ErrAbandoned, Interrupted(""))
}
