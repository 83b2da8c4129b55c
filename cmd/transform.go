package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"imgedit-backend/internal/model"
	"imgedit-backend/internal/service"
	"imgedit-backend/internal/transform"

	"github.com/spf13/cobra"
)

func newTransformCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "transform <image> <prompt>",
		Short: "Apply a single prompt to an image file",
		Long: `Asks the configured model how to edit the image and writes the result
next to it as <name>-transformed.<ext>.`,
		Example: `  imgedit transform photo.png "crop the image to be square, centered"
  imgedit transform logo.png "make the white background transparent"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			imagePath, userPrompt := args[0], args[1]

			f, err := os.Open(imagePath)
			if err != nil {
				return err
			}
			decoded, err := transform.Decode(f)
			f.Close()
			if err != nil {
				return err
			}

			interpreter, err := newInterpreter(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}

			edited, err := service.Edit(cmd.Context(), interpreter, decoded, userPrompt)
			if err != nil {
				return err
			}
			if edited.Interpretation.Kind == model.KindRefusal {
				cmd.Printf("Refused: %s\n", edited.Interpretation.Refusal)
				return nil
			}

			outPath := transformedPath(imagePath, transform.Extension(edited.Format))
			if err := os.WriteFile(outPath, edited.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			pic := edited.Result.Picture
			cmd.Printf("Saved %s (%dx%d %s)\n", outPath, pic.Width(), pic.Height(), pic.Mode())
			return nil
		},
	}
}

func transformedPath(imagePath, ext string) string {
	dir := filepath.Dir(imagePath)
	stem := strings.TrimSuffix(filepath.Base(imagePath), filepath.Ext(imagePath))
	return filepath.Join(dir, stem+"-transformed."+ext)
}
