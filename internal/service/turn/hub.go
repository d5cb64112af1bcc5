package turn

import (
	"log"
	"sync"
	"time"
)

// Hub owns one runner per live session. Runners are reference counted by the
// transports attached to them; when the last one detaches a grace timer starts
// and, if nobody reattaches in time, the runner is closed and the session is
// handed to onExpire.
type Hub struct {
	handler  Handler
	messages Messages
	grace    time.Duration
	onExpire func(sessionID string)

	mu      sync.Mutex
	entries map[string]*hubEntry
}

type hubEntry struct {
	runner *Runner
	refs   int
	timer  *time.Timer
	// owner is the exclusive transport currently attached, if any.
	owner *owner
	// expiring is closed once an expired entry has been torn down and
	// handed to onExpire. Attach waits on it instead of racing the teardown.
	expiring chan struct{}
}

type owner struct {
	kick func()
}

// NewHub creates a hub. onExpire may be nil.
func NewHub(handler Handler, messages Messages, grace time.Duration, onExpire func(sessionID string)) *Hub {
	return &Hub{
		handler:  handler,
		messages: messages,
		grace:    grace,
		onExpire: onExpire,
		entries:  make(map[string]*hubEntry),
	}
}

// Attach returns the session's runner, creating it if needed, and a detach
// function that must be called once when the transport goes away. An
// exclusive attach (a WebSocket) supersedes the previous exclusive transport
// by calling its kick function.
func (h *Hub) Attach(sessionID string, exclusive bool, kick func()) (*Runner, func()) {
	h.mu.Lock()
	e, ok := h.lookupLocked(sessionID)
	if !ok {
		e = &hubEntry{runner: NewRunner(sessionID, h.handler, h.messages)}
		h.entries[sessionID] = e
		log.Printf("[turn] session=%s runner started", sessionID)
	}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.refs++

	var self, previous *owner
	if exclusive {
		self = &owner{kick: kick}
		previous = e.owner
		e.owner = self
	}
	h.mu.Unlock()

	if previous != nil && previous.kick != nil {
		log.Printf("[turn] session=%s new connection supersedes the previous one", sessionID)
		previous.kick()
	}
	e.runner.Open()

	var once sync.Once
	detach := func() {
		once.Do(func() { h.detach(sessionID, e, self) })
	}
	return e.runner, detach
}

// lookupLocked returns the live entry for sessionID, waiting out an expiry in
// progress. h.mu is held on entry and on return.
func (h *Hub) lookupLocked(sessionID string) (*hubEntry, bool) {
	for {
		e, ok := h.entries[sessionID]
		if !ok || e.expiring == nil {
			return e, ok
		}
		wait := e.expiring
		h.mu.Unlock()
		<-wait
		h.mu.Lock()
	}
}

func (h *Hub) detach(sessionID string, e *hubEntry, self *owner) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if self != nil && e.owner == self {
		e.owner = nil
	}
	e.refs--
	if e.refs > 0 || h.entries[sessionID] != e {
		return
	}
	if h.grace <= 0 {
		go h.expire(sessionID, e)
		return
	}
	e.timer = time.AfterFunc(h.grace, func() { h.expire(sessionID, e) })
}

func (h *Hub) expire(sessionID string, e *hubEntry) {
	h.mu.Lock()
	if h.entries[sessionID] != e || e.refs > 0 || e.expiring != nil {
		h.mu.Unlock()
		return
	}
	e.expiring = make(chan struct{})
	h.mu.Unlock()

	// The entry stays visible until onExpire returns so Live keeps reporting
	// the session and a reattach waits for the eviction to finish.
	e.runner.Close()
	log.Printf("[turn] session=%s runner expired after grace period", sessionID)
	if h.onExpire != nil {
		h.onExpire(sessionID)
	}

	h.mu.Lock()
	if h.entries[sessionID] == e {
		delete(h.entries, sessionID)
	}
	close(e.expiring)
	h.mu.Unlock()
}

// Live reports whether sessionID has a runner.
func (h *Hub) Live(sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.entries[sessionID]
	return ok
}

// Len returns the number of live runners.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Close shuts the session's runner down immediately and disconnects its
// exclusive transport. It reports whether a runner existed.
func (h *Hub) Close(sessionID string) bool {
	h.mu.Lock()
	e, ok := h.lookupLocked(sessionID)
	var current *owner
	if ok {
		delete(h.entries, sessionID)
		if e.timer != nil {
			e.timer.Stop()
		}
		current = e.owner
	}
	h.mu.Unlock()
	if !ok {
		return false
	}

	if current != nil && current.kick != nil {
		current.kick()
	}
	e.runner.Close()
	return true
}

// Shutdown closes every runner and disconnects exclusive transports without
// calling onExpire.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	entries := h.entries
	h.entries = make(map[string]*hubEntry)
	owners := make([]*owner, 0, len(entries))
	for _, e := range entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		if e.owner != nil {
			owners = append(owners, e.owner)
		}
	}
	h.mu.Unlock()

	for _, o := range owners {
		if o.kick != nil {
			o.kick()
		}
	}
	for _, e := range entries {
		e.runner.Close()
	}
}
