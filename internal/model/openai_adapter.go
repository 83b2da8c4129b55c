package model

import (
	"context"
	"fmt"

	"imgedit-backend/internal/config"
	"imgedit-backend/internal/utils"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"
)

// openaiChatModel adapts go-openai to eino's ChatModel, including function
// calling through the tools API.
type openaiChatModel struct {
	client *openai.Client
	model  string
	tools  []openai.Tool
}

func newOpenAIChatModel(cfg config.OpenAIConfig) *openaiChatModel {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = utils.NewHTTPClient(cfg.Timeout, false)

	return &openaiChatModel{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}
}

func (m *openaiChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	req := openai.ChatCompletionRequest{
		Model:    m.model,
		Messages: convertMessages(messages),
		Tools:    m.tools,
	}

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	choice := resp.Choices[0]
	out := &schema.Message{
		Role:    schema.Assistant,
		Content: choice.Message.Content,
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: string(choice.FinishReason),
			Usage: &schema.TokenUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
		},
	}
	for i, tc := range choice.Message.ToolCalls {
		index := i
		out.ToolCalls = append(out.ToolCalls, schema.ToolCall{
			Index: &index,
			ID:    tc.ID,
			Type:  string(tc.Type),
			Function: schema.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	// Older deployments still answer with the legacy function_call field.
	if fc := choice.Message.FunctionCall; fc != nil && len(out.ToolCalls) == 0 {
		out.ToolCalls = append(out.ToolCalls, schema.ToolCall{
			Type: string(openai.ToolTypeFunction),
			Function: schema.FunctionCall{
				Name:      fc.Name,
				Arguments: fc.Arguments,
			},
		})
	}

	return out, nil
}

// Stream is a single-chunk stream over Generate; prompts here are short and
// callers need the full tool call anyway.
func (m *openaiChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *openaiChatModel) BindTools(tools []*schema.ToolInfo) error {
	converted := make([]openai.Tool, 0, len(tools))
	for _, info := range tools {
		var params any = map[string]any{"type": "object", "properties": map[string]any{}}
		if info.ParamsOneOf != nil {
			s, err := info.ParamsOneOf.ToOpenAPIV3()
			if err != nil {
				return fmt.Errorf("convert parameters of tool %s: %w", info.Name, err)
			}
			params = s
		}
		converted = append(converted, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        info.Name,
				Description: info.Desc,
				Parameters:  params,
			},
		})
	}
	m.tools = converted
	return nil
}

func convertMessages(messages []*schema.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case schema.Assistant:
			role = openai.ChatMessageRoleAssistant
		case schema.System:
			role = openai.ChatMessageRoleSystem
		case schema.Tool:
			role = openai.ChatMessageRoleTool
		}

		// Empty assistant turns are rejected by the API.
		if msg.Content == "" && role == openai.ChatMessageRoleAssistant && len(msg.ToolCalls) == 0 {
			continue
		}

		out := openai.ChatCompletionMessage{
			Role:       role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for _, tc := range msg.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		result = append(result, out)
	}
	return result
}
