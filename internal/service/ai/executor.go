package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/travela2a/concierge/backend/internal/config"
	"github.com/travela2a/concierge/backend/internal/model/agent"
)

// Executor runs every registered agent on one compiled eino chain; agents
// differ only in the system instructions fed into the template.
type Executor struct {
	agents    agent.Store
	chain     compose.Runnable[map[string]any, *schema.Message]
	streaming bool
}

// NewExecutor builds the Ark chat model from cfg and wraps it.
func NewExecutor(ctx context.Context, agents agent.Store, cfg config.AIConfig) (*Executor, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewExecutorWithModel(ctx, agents, chatModel, cfg.StreamResponse)
}

// NewExecutorWithModel compiles the agent chain around chatModel. When
// streaming is false the model is called once and its reply is delivered as a
// single fragment.
func NewExecutorWithModel(ctx context.Context, agents agent.Store, chatModel model.ChatModel, streaming bool) (*Executor, error) {
	template := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile agent chain: %w", err)
	}

	return &Executor{agents: agents, chain: runnable, streaming: streaming}, nil
}

// Invoke runs the agent identified by key on prompt and returns its output as
// a stream of message fragments. The caller owns the reader and must close it.
func (e *Executor) Invoke(ctx context.Context, key agent.Key, prompt string) (*schema.StreamReader[*schema.Message], error) {
	d, ok := e.agents.Find(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", agent.ErrUnknownAgent, key)
	}

	input := map[string]any{
		"system": d.Instructions,
		"query":  prompt,
	}

	if e.streaming {
		stream, err := e.chain.Stream(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to stream agent %s: %w", key, err)
		}
		return stream, nil
	}

	msg, err := e.chain.Invoke(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to run agent %s: %w", key, err)
	}
	log.Printf("[ai] agent=%s replied length=%d", key, len(msg.Content))
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}
