package main

import (
	"context"
	"fmt"

	"imgedit-backend/internal/config"
	"imgedit-backend/internal/model"
	"imgedit-backend/internal/service"
	"imgedit-backend/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "imgedit",
		Short: "Edit images by describing the change in plain language",
		Long: `imgedit lets a user upload an image and describe an edit in natural language.

A language model turns the request into a transformation plan (resize or crop,
grayscale, transparency, brightness, contrast, output format) which is then
applied to the image.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A .env file is optional.
			_ = godotenv.Load()

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
				return fmt.Errorf("failed to init logger: %w", err)
			}
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "./configs/config.yaml", "path to the YAML config file")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newTransformCmd(opts))

	return cmd
}

func newInterpreter(ctx context.Context, cfg *config.Config) (*service.PromptInterpreter, error) {
	chatModel, err := model.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return service.NewPromptInterpreter(chatModel, cfg.Agent.SystemPrompt)
}
