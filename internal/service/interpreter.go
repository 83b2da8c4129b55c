package service

import (
	"context"
	"fmt"

	"imgedit-backend/internal/model"
	"imgedit-backend/internal/tools"
	"imgedit-backend/pkg/logger"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// Interpreter turns a free-text request about an image into a refusal or a
// transform plan.
type Interpreter interface {
	Interpret(ctx context.Context, width, height int, userPrompt string) (*model.Interpretation, error)
}

// PromptInterpreter asks a chat model to either answer in plain text, which
// is taken as a refusal, or call the transform_image tool.
type PromptInterpreter struct {
	chatModel einoModel.BaseChatModel
	template  prompt.ChatTemplate
}

func NewPromptInterpreter(chatModel einoModel.ChatModel, systemPrompt string) (*PromptInterpreter, error) {
	if err := chatModel.BindTools([]*schema.ToolInfo{tools.TransformImageInfo()}); err != nil {
		return nil, fmt.Errorf("bind %s tool: %w", tools.TransformImageToolName, err)
	}
	return &PromptInterpreter{
		chatModel: chatModel,
		template:  newInterpreterPrompt(systemPrompt),
	}, nil
}

func newInterpreterPrompt(systemPrompt string) prompt.ChatTemplate {
	return prompt.FromMessages(schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.SystemMessage("image current size is {width}x{height}"),
		schema.UserMessage("{user_prompt}"),
	)
}

func (i *PromptInterpreter) Interpret(ctx context.Context, width, height int, userPrompt string) (*model.Interpretation, error) {
	messages, err := i.template.Format(ctx, map[string]any{
		"width":       width,
		"height":      height,
		"user_prompt": userPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("format prompt: %w", err)
	}

	msg, err := i.chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	logResponse(msg)

	if len(msg.ToolCalls) == 0 {
		logger.Warnf("model declined to transform the image: %s", msg.Content)
		return model.Refusal(msg.Content), nil
	}

	call := msg.ToolCalls[0]
	if call.Function.Name != tools.TransformImageToolName {
		return nil, fmt.Errorf("%w: model called unknown tool %q", model.ErrInvalidPlan, call.Function.Name)
	}
	plan, err := tools.ParseArguments(call.Function.Arguments)
	if err != nil {
		return nil, err
	}
	return model.Planned(plan), nil
}

func logResponse(msg *schema.Message) {
	fields := map[string]interface{}{"tool_calls": len(msg.ToolCalls)}
	if meta := msg.ResponseMeta; meta != nil {
		fields["finish_reason"] = meta.FinishReason
		if meta.Usage != nil {
			fields["prompt_tokens"] = meta.Usage.PromptTokens
			fields["completion_tokens"] = meta.Usage.CompletionTokens
		}
	}
	logger.WithFields(fields).Info("model responded")
}
