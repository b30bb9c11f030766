package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gnemet/SlideLens/internal/ai"
	"github.com/gnemet/SlideLens/internal/pipeline"
)

func convertCmd(a *app) *cobra.Command {
	var format string
	var out string
	var fontsOut string
	var printBase64 bool
	var request string
	var prompt string
	var model string

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert a .pptx or .pdf into one JPEG strip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			data, err := os.ReadFile(input)
			if err != nil {
				return err
			}
			if format == "" {
				format = pipeline.DetectFormat(input)
			}

			p, err := newPipeline(a.cfg.Conversion, a.log)
			if err != nil {
				return err
			}
			res, err := p.Convert(cmd.Context(), data, format)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			switch strings.ToLower(request) {
			case "":
			case "openai":
				return writeJSON(stdout, ai.OpenAIRequest(model, promptOr(prompt, a), res))
			case "gemini":
				return writeJSON(stdout, ai.GeminiParts(promptOr(prompt, a), res))
			default:
				return fmt.Errorf("unknown request kind %q (openai|gemini)", request)
			}

			if printBase64 {
				fmt.Fprintln(stdout, res.Encoded.Base64())
				return nil
			}

			if out == "" {
				out = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ".jpg"
			}
			if err := os.WriteFile(out, res.Encoded.Bytes(), 0644); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%s: %d pages, %dx%d, %s\n", out, len(res.Pages), res.Width, res.Height, humanize.Bytes(uint64(res.Encoded.Len())))

			if res.Format == pipeline.FormatPPTX {
				if fontsOut != "" {
					b, err := json.MarshalIndent(map[string]any{"theme": res.Theme, "fonts": res.Fonts}, "", "  ")
					if err != nil {
						return err
					}
					if err := os.WriteFile(fontsOut, b, 0644); err != nil {
						return err
					}
				}
				fmt.Fprintln(stdout, res.Fonts.String())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "input format: pptx|pdf (default: from the file extension)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output JPEG path (default: <name>.jpg in the current directory)")
	cmd.Flags().StringVar(&fontsOut, "fonts", "", "also write the font report as JSON to this path")
	cmd.Flags().BoolVar(&printBase64, "base64", false, "print the JPEG as base64 instead of writing a file")
	cmd.Flags().StringVar(&request, "request", "", "print a model request payload instead: openai|gemini")
	cmd.Flags().StringVar(&prompt, "prompt", "", "prompt text for --request (default: config ai.prompt)")
	cmd.Flags().StringVar(&model, "model", "", "model id or label for --request openai (see GET /models)")
	return cmd
}

func promptOr(prompt string, a *app) string {
	if prompt != "" {
		return prompt
	}
	return a.cfg.AI.Prompt
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
