package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"imgedit-backend/internal/model"
	"imgedit-backend/internal/tools"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"
)

// fakeChatModel answers every Generate with reply (or err) and records the
// messages it was sent.
type fakeChatModel struct {
	mu       sync.Mutex
	reply    *schema.Message
	err      error
	tools    []*schema.ToolInfo
	received [][]*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, input)
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (f *fakeChatModel) BindTools(tools []*schema.ToolInfo) error {
	f.tools = tools
	return nil
}

func toolCallReply(name, args string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			ID:       "call_1",
			Type:     "function",
			Function: schema.FunctionCall{Name: name, Arguments: args},
		}},
		ResponseMeta: &schema.ResponseMeta{FinishReason: "tool_calls", Usage: &schema.TokenUsage{PromptTokens: 12}},
	}
}

func TestInterpreterPlainCompletionIsRefusal(t *testing.T) {
	fake := &fakeChatModel{reply: &schema.Message{
		Role:         schema.Assistant,
		Content:      "Sorry, I can't write poems about images.",
		ResponseMeta: &schema.ResponseMeta{FinishReason: "stop"},
	}}
	interp, err := NewPromptInterpreter(fake, "Help the user.")
	require.NoError(t, err)
	require.Len(t, fake.tools, 1)
	require.Equal(t, tools.TransformImageToolName, fake.tools[0].Name)

	got, err := interp.Interpret(context.Background(), 640, 480, "write a poem")
	require.NoError(t, err)
	require.Equal(t, model.KindRefusal, got.Kind)
	require.Equal(t, "Sorry, I can't write poems about images.", got.Refusal)
	require.Nil(t, got.Plan)

	require.Len(t, fake.received, 1)
	sent := fake.received[0]
	require.Len(t, sent, 3)
	require.Equal(t, schema.System, sent[0].Role)
	require.Equal(t, "Help the user.", sent[0].Content)
	require.Equal(t, schema.System, sent[1].Role)
	require.Equal(t, "image current size is 640x480", sent[1].Content)
	require.Equal(t, schema.User, sent[2].Role)
	require.Equal(t, "write a poem", sent[2].Content)
}

func TestInterpreterUserPromptIsNotATemplate(t *testing.T) {
	fake := &fakeChatModel{reply: &schema.Message{Role: schema.Assistant, Content: "no"}}
	interp, err := NewPromptInterpreter(fake, "sys")
	require.NoError(t, err)

	_, err = interp.Interpret(context.Background(), 1, 1, "make it {width} wide")
	require.NoError(t, err)
	require.Equal(t, "make it {width} wide", fake.received[0][2].Content)
}

func TestInterpreterToolCallIsPlan(t *testing.T) {
	fake := &fakeChatModel{reply: toolCallReply(tools.TransformImageToolName, `{"make_grayscale": true, "save_as": "BMP"}`)}
	interp, err := NewPromptInterpreter(fake, "sys")
	require.NoError(t, err)

	got, err := interp.Interpret(context.Background(), 10, 10, "gray bmp please")
	require.NoError(t, err)
	require.Equal(t, model.KindPlan, got.Kind)
	require.True(t, *got.Plan.MakeGrayscale)
	require.Equal(t, model.FormatBMP, *got.Plan.SaveAs)
}

func TestInterpreterErrors(t *testing.T) {
	cases := map[string]struct {
		fake *fakeChatModel
		want error
	}{
		"invalid arguments": {&fakeChatModel{reply: toolCallReply(tools.TransformImageToolName, `{"transparency_threshold": 999}`)}, model.ErrInvalidPlan},
		"unknown tool":      {&fakeChatModel{reply: toolCallReply("delete_everything", `{}`)}, model.ErrInvalidPlan},
		"model failure":     {&fakeChatModel{err: errors.New("503 upstream")}, ErrExternalService},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			interp, err := NewPromptInterpreter(tc.fake, "sys")
			require.NoError(t, err)
			_, err = interp.Interpret(context.Background(), 1, 1, "x")
			require.ErrorIs(t, err, tc.want)
		})
	}
}
