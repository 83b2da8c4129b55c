package model

import (
	"context"
	"fmt"

	"imgedit-backend/internal/config"
	"imgedit-backend/internal/utils"
	"imgedit-backend/pkg/logger"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	einoModel "github.com/cloudwego/eino/components/model"
)

// NewChatModel creates the chat model selected by model.provider. Tools are
// bound later by the caller.
func NewChatModel(ctx context.Context, cfg *config.Config) (einoModel.ChatModel, error) {
	switch cfg.Model.Provider {
	case "doubao":
		return createDoubaoModel(ctx, cfg.Doubao)
	case "openai":
		return createOpenAIModel(cfg.OpenAI)
	case "qwen":
		return createQwenModel(ctx, cfg.Qwen)
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.Model.Provider)
	}
}

func maskKey(key string) string {
	if len(key) > 6 {
		return key[:6] + "..."
	}
	return "***"
}

func createDoubaoModel(ctx context.Context, cfg config.DoubaoConfig) (einoModel.ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("doubao api key is not configured")
	}
	logger.Infof("Using Doubao model %s (key %s)", cfg.Model, maskKey(cfg.APIKey))

	chatModel, err := ark.NewChatModel(ctx, newArkConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("create doubao model: %w", err)
	}
	return chatModel, nil
}

func newArkConfig(cfg config.DoubaoConfig) *ark.ChatModelConfig {
	arkConfig := &ark.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		CustomHeader: map[string]string{
			"X-Ark-Thinking-Mode": "disable",
		},
		HTTPClient: utils.NewHTTPClient(cfg.Timeout, false),
	}
	if cfg.MaxTokens > 0 {
		arkConfig.MaxTokens = &cfg.MaxTokens
	}
	if cfg.Temperature > 0 {
		arkConfig.Temperature = &cfg.Temperature
	}
	return arkConfig
}

func createOpenAIModel(cfg config.OpenAIConfig) (einoModel.ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is not configured")
	}
	logger.Infof("Using OpenAI model %s (key %s)", cfg.Model, maskKey(cfg.APIKey))

	return newOpenAIChatModel(cfg), nil
}

func createQwenModel(ctx context.Context, cfg config.QwenConfig) (einoModel.ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("qwen api key is not configured")
	}
	logger.Infof("Using Qwen model %s at %s (key %s)", cfg.Model, cfg.BaseURL, maskKey(cfg.APIKey))

	chatModel, err := qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   &cfg.MaxTokens,
		Temperature: &cfg.Temperature,
		TopP:        &cfg.TopP,
		Timeout:     cfg.Timeout,
		HTTPClient:  utils.NewHTTPClient(cfg.Timeout, cfg.DebugRequest),
	})
	if err != nil {
		return nil, fmt.Errorf("create qwen model: %w", err)
	}
	return chatModel, nil
}
