package orchestrator

import (
	"fmt"
	"strings"

	"github.com/travela2a/concierge/backend/internal/analysis/entity"
	"github.com/travela2a/concierge/backend/internal/model/agent"
	"github.com/travela2a/concierge/backend/internal/model/chat"
	"github.com/travela2a/concierge/backend/internal/service/session"
)

// PromptInput is everything the enriched prompt is built from.
type PromptInput struct {
	Agent         agent.Descriptor
	PreviousAgent agent.Key
	Entities      entity.Set
	History       []chat.Message
	UserText      string
	MessageRunes  int
}

// BuildPrompt renders the enriched prompt sent to an agent. History is
// expected to be already windowed; each message is cut to MessageRunes.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	b.WriteString("[AGENT INSTRUCTIONS]\n")
	fmt.Fprintf(&b, "Respond as the %s (%s).", in.Agent.Label, in.Agent.Key)
	if in.Agent.Summary != "" {
		fmt.Fprintf(&b, " Focus: %s", in.Agent.Summary)
	}
	b.WriteString("\n\n")

	if in.PreviousAgent != "" && in.PreviousAgent != in.Agent.Key {
		b.WriteString("[AGENT CONTEXT]\n")
		fmt.Fprintf(&b, "The user was just talking with the %s agent. Continue the conversation smoothly and reuse what was already discussed.\n\n", in.PreviousAgent)
	}

	if len(in.Entities) > 0 {
		b.WriteString("[KNOWN TRIP DETAILS]\n")
		for _, kind := range entity.Kinds {
			if v := in.Entities[kind]; v != "" {
				fmt.Fprintf(&b, "- %s: %s\n", kind, v)
			}
		}
		b.WriteString("\n")
	}

	if len(in.History) > 0 {
		b.WriteString("[CONVERSATION CONTEXT]\n")
		for _, msg := range in.History {
			speaker := string(msg.Role)
			if msg.Role == chat.RoleAgent && msg.Agent != "" {
				speaker = msg.Agent
			}
			fmt.Fprintf(&b, "%s: %s\n", speaker, session.Truncate(msg.Content, in.MessageRunes))
		}
		b.WriteString("\n")
	}

	b.WriteString("[CURRENT USER MESSAGE]\n")
	b.WriteString(in.UserText)
	return b.String()
}
