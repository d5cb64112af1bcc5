package ai

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travela2a/concierge/backend/internal/model/agent"
)

type fakeChatModel struct {
	mu     sync.Mutex
	inputs [][]*schema.Message
	chunks []string
}

func (m *fakeChatModel) record(input []*schema.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, input)
}

func (m *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.record(input)
	return schema.AssistantMessage(strings.Join(m.chunks, ""), nil), nil
}

func (m *fakeChatModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.record(input)
	msgs := make([]*schema.Message, 0, len(m.chunks))
	for _, c := range m.chunks {
		msgs = append(msgs, schema.AssistantMessage(c, nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

func (m *fakeChatModel) BindTools(_ []*schema.ToolInfo) error { return nil }

func newTestRegistry(t *testing.T) *agent.Registry {
	t.Helper()
	reg, err := agent.NewRegistry(agent.Seed())
	require.NoError(t, err)
	return reg
}

func readAll(t *testing.T, stream *schema.StreamReader[*schema.Message]) []string {
	t.Helper()
	defer stream.Close()
	var out []string
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, msg.Content)
	}
}

func TestExecutorStreamsFragments(t *testing.T) {
	ctx := context.Background()
	fake := &fakeChatModel{chunks: []string{"สวัสดี", "ค่ะ"}}
	reg := newTestRegistry(t)

	exec, err := NewExecutorWithModel(ctx, reg, fake, true)
	require.NoError(t, err)

	stream, err := exec.Invoke(ctx, agent.Restaurant, "ร้านอร่อยในน่าน")
	require.NoError(t, err)
	assert.Equal(t, "สวัสดีค่ะ", strings.Join(readAll(t, stream), ""))

	require.Len(t, fake.inputs, 1)
	input := fake.inputs[0]
	require.Len(t, input, 2)
	assert.Equal(t, schema.System, input[0].Role)
	d, _ := reg.Find(agent.Restaurant)
	assert.Equal(t, d.Instructions, input[0].Content)
	assert.Equal(t, schema.User, input[1].Role)
	assert.Equal(t, "ร้านอร่อยในน่าน", input[1].Content)
}

func TestExecutorNonStreamingYieldsSingleFragment(t *testing.T) {
	ctx := context.Background()
	fake := &fakeChatModel{chunks: []string{"a", "b"}}

	exec, err := NewExecutorWithModel(ctx, newTestRegistry(t), fake, false)
	require.NoError(t, err)

	stream, err := exec.Invoke(ctx, agent.Travel, "hi")
	require.NoError(t, err)
	assert.Equal(t, []string{"ab"}, readAll(t, stream))
}

func TestExecutorUnknownAgent(t *testing.T) {
	ctx := context.Background()
	exec, err := NewExecutorWithModel(ctx, newTestRegistry(t), &fakeChatModel{}, true)
	require.NoError(t, err)

	_, err = exec.Invoke(ctx, "nope", "hi")
	assert.ErrorIs(t, err, agent.ErrUnknownAgent)
}
