package session

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/travela2a/concierge/backend/internal/analysis/entity"
	"github.com/travela2a/concierge/backend/internal/analysis/intent"
	"github.com/travela2a/concierge/backend/internal/model/agent"
	"github.com/travela2a/concierge/backend/internal/model/chat"
)

// Context is a read-only projection of a session, rebuilt for every turn.
type Context struct {
	SessionID     string         `json:"sessionId"`
	Recent        []chat.Message `json:"messages"`
	Entities      entity.Set     `json:"entities"`
	ActiveAgent   agent.Key      `json:"activeAgent,omitempty"`
	PreviousAgent agent.Key      `json:"previousAgent,omitempty"`
	ActiveIntent  intent.Intent  `json:"activeIntent,omitempty"`
	MessageCount  int            `json:"messageCount"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

const (
	summaryExchanges = 4
	summaryRunes     = 100
)

// Summary renders a short plain-text digest: known trip details, the agent in
// charge, and the last few exchanges each cut to a fixed length.
func (c Context) Summary() string {
	var b strings.Builder
	if s := c.Entities.String(); s != "" {
		fmt.Fprintf(&b, "Trip details: %s\n", s)
	}
	if c.ActiveAgent != "" {
		fmt.Fprintf(&b, "Current agent: %s\n", c.ActiveAgent)
	}
	if c.PreviousAgent != "" {
		fmt.Fprintf(&b, "Previous agent: %s\n", c.PreviousAgent)
	}

	recent := c.Recent
	if len(recent) > summaryExchanges {
		recent = recent[len(recent)-summaryExchanges:]
	}
	if len(recent) > 0 {
		b.WriteString("Recent exchanges:\n")
		for _, msg := range recent {
			fmt.Fprintf(&b, "- %s: %s\n", msg.Role, Truncate(msg.Content, summaryRunes))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Truncate cuts s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
