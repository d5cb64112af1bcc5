package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/travela2a/concierge/backend/internal/analysis/entity"
	"github.com/travela2a/concierge/backend/internal/analysis/intent"
	"github.com/travela2a/concierge/backend/internal/model/agent"
	"github.com/travela2a/concierge/backend/internal/model/chat"
	"github.com/travela2a/concierge/backend/internal/service/session"
)

var ErrExecutorUnavailable = errors.New("agent executor unavailable")

// Executor runs one agent on an enriched prompt and streams its output.
type Executor interface {
	Invoke(ctx context.Context, key agent.Key, prompt string) (*schema.StreamReader[*schema.Message], error)
}

// Config bounds what a single turn may consume.
type Config struct {
	HistoryWindow int
	MessageRunes  int
	AgentTimeout  time.Duration
	// Fallback is returned when an agent finishes without producing text.
	Fallback string
}

const (
	defaultHistoryWindow = 10
	defaultMessageRunes  = 500
	defaultAgentTimeout  = 60 * time.Second
)

// Result describes a completed turn.
type Result struct {
	SessionID string
	Agent     agent.Key
	Intent    intent.Intent
	Reason    string
	Entities  entity.Set
	Reply     string
	Fragments int
	// Fallback is set when the agent produced nothing and Reply holds cfg.Fallback.
	Fallback bool
}

// Orchestrator binds extraction, classification, session state and agent
// invocation into one turn.
type Orchestrator struct {
	store  *session.Store
	agents *agent.Registry
	exec   Executor
	cfg    Config
}

// New wires an orchestrator. exec may be nil, in which case every turn fails
// with ErrExecutorUnavailable after the user message is recorded.
func New(store *session.Store, agents *agent.Registry, exec Executor, cfg Config) *Orchestrator {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = defaultHistoryWindow
	}
	if cfg.MessageRunes <= 0 {
		cfg.MessageRunes = defaultMessageRunes
	}
	if cfg.AgentTimeout <= 0 {
		cfg.AgentTimeout = defaultAgentTimeout
	}
	return &Orchestrator{store: store, agents: agents, exec: exec, cfg: cfg}
}

// HandleTurn processes one user message. Fragments are passed to emit as they
// arrive. On failure any fragments already emitted are stored as a partial
// agent message and the error is returned; no completion is synthesized.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, text string, emit func(fragment string)) (Result, error) {
	if _, err := o.store.AppendMessage(ctx, sessionID, chat.Message{Role: chat.RoleUser, Content: text}); err != nil {
		return Result{}, fmt.Errorf("append user message: %w", err)
	}

	extracted := entity.Extract(text)
	merged, err := o.store.MergeEntities(ctx, sessionID, extracted)
	if err != nil {
		return Result{}, fmt.Errorf("merge entities: %w", err)
	}

	// One extra message so the current user message can be split off the history.
	snap, err := o.store.Snapshot(ctx, sessionID, o.cfg.HistoryWindow+1)
	if err != nil {
		return Result{}, fmt.Errorf("snapshot: %w", err)
	}
	history := snap.Recent
	if n := len(history); n > 0 {
		history = history[:n-1]
	}

	decision := intent.ClassifyWithHint(text, intent.Hint{
		Previous:       snap.ActiveIntent,
		NewDestination: extracted.Has(entity.Destination),
	})
	target := o.agents.ForIntent(decision.Intent)

	log.Printf("[orchestrator] session=%s intent=%s reason=%s scores=%d/%d agent=%s entities=[%s]",
		sessionID, decision.Intent, decision.Reason, decision.RestaurantPts, decision.ActivityPts, target.Key, merged)

	prompt := BuildPrompt(PromptInput{
		Agent:         target,
		PreviousAgent: snap.ActiveAgent,
		Entities:      merged,
		History:       history,
		UserText:      text,
		MessageRunes:  o.cfg.MessageRunes,
	})

	result := Result{
		SessionID: sessionID,
		Agent:     target.Key,
		Intent:    decision.Intent,
		Reason:    decision.Reason,
		Entities:  merged,
	}

	reply, fragments, err := o.invoke(ctx, target.Key, prompt, emit)
	result.Fragments = fragments
	if err != nil {
		if reply != "" {
			o.appendAgentMessage(ctx, sessionID, target.Key, reply, true)
		}
		log.Printf("[orchestrator] session=%s agent=%s failed after %d fragments: %v", sessionID, target.Key, fragments, err)
		return result, err
	}

	if strings.TrimSpace(reply) == "" {
		reply = o.cfg.Fallback
		result.Fallback = true
	}
	result.Reply = reply
	o.appendAgentMessage(ctx, sessionID, target.Key, reply, false)

	if err := o.store.SetActiveAgent(ctx, sessionID, target.Key, decision.Intent); err != nil {
		return result, fmt.Errorf("set active agent: %w", err)
	}
	return result, nil
}

// Query runs a single agent directly, without session state.
func (o *Orchestrator) Query(ctx context.Context, key agent.Key, text string) (string, error) {
	d, ok := o.agents.Find(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", agent.ErrUnknownAgent, key)
	}

	prompt := BuildPrompt(PromptInput{
		Agent:        d,
		Entities:     entity.Extract(text),
		UserText:     text,
		MessageRunes: o.cfg.MessageRunes,
	})
	reply, _, err := o.invoke(ctx, key, prompt, nil)
	if err != nil {
		return reply, err
	}
	if strings.TrimSpace(reply) == "" {
		return o.cfg.Fallback, nil
	}
	return reply, nil
}

func (o *Orchestrator) appendAgentMessage(ctx context.Context, sessionID string, key agent.Key, content string, partial bool) {
	msg := chat.Message{Role: chat.RoleAgent, Agent: string(key), Content: content, Partial: partial}
	if _, err := o.store.AppendMessage(context.WithoutCancel(ctx), sessionID, msg); err != nil {
		log.Printf("[orchestrator] session=%s append agent message: %v", sessionID, err)
	}
}

// invoke runs the agent under the configured deadline and drains its stream.
// It returns whatever text was collected, even on error.
func (o *Orchestrator) invoke(ctx context.Context, key agent.Key, prompt string, emit func(string)) (string, int, error) {
	if o.exec == nil {
		return "", 0, ErrExecutorUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.AgentTimeout)
	defer cancel()

	stream, err := o.exec.Invoke(ctx, key, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return "", 0, contextError(ctx)
		}
		return "", 0, err
	}
	return drain(ctx, stream, emit)
}

type chunk struct {
	msg *schema.Message
	err error
}

// drain forwards fragments until EOF, a stream error, or ctx ends. Recv does not
// observe ctx, so it runs on its own goroutine and the reader is closed on exit.
func drain(ctx context.Context, stream *schema.StreamReader[*schema.Message], emit func(string)) (string, int, error) {
	chunks := make(chan chunk)
	done := make(chan struct{})
	defer close(done)
	defer stream.Close()

	go func() {
		for {
			msg, err := stream.Recv()
			select {
			case chunks <- chunk{msg: msg, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	var b strings.Builder
	fragments := 0
	for {
		select {
		case <-ctx.Done():
			return b.String(), fragments, contextError(ctx)
		case c := <-chunks:
			if errors.Is(c.err, io.EOF) {
				return b.String(), fragments, nil
			}
			if c.err != nil {
				return b.String(), fragments, fmt.Errorf("agent stream: %w", c.err)
			}
			if c.msg == nil || c.msg.Content == "" {
				continue
			}
			if ctx.Err() != nil {
				return b.String(), fragments, contextError(ctx)
			}
			b.WriteString(c.msg.Content)
			fragments++
			if emit != nil {
				emit(c.msg.Content)
			}
		}
	}
}

// contextError prefers the cancellation cause so callers can tell an
// interruption from a deadline.
func contextError(ctx context.Context) error {
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}
	return ctx.Err()
}
