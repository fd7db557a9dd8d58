package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/RenatoCabral2022/binaural-studio/internal/model"
	"github.com/RenatoCabral2022/binaural-studio/internal/processing"
	"github.com/RenatoCabral2022/binaural-studio/internal/tui"
	"github.com/RenatoCabral2022/binaural-studio/internal/upload"
)

const (
	originalFileName = "original.mp3"
	mixedFileName    = "mixed.mp3"
)

type processOutput struct {
	File           string `json:"file"`
	Dimensionality int    `json:"dimensionality"`
	Original       string `json:"original"`
	Mixed          string `json:"mixed"`
}

func newProcessCmd(g *globalOptions) *cobra.Command {
	var (
		dimensionality int
		outDir         string
		asJSON         bool
	)

	cmd := &cobra.Command{
		Use:   "process [FILE]",
		Short: "Generate an immersive version of an audio file",
		Long: `Upload FILE with the chosen dimensionality and write the returned clips to
--out as original.mp3 and mixed.mp3.

Dimensionality is clamped to 2..16. Ctrl-C cancels the request.

Examples:
  binaural process song.mp3
  binaural process song.wav --dimensionality 12 --out ./mixes`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := g.logger()
			defer logger.Sync()

			client := processing.NewClient(cfg.ProcessURL, logger)
			form := upload.New(client, logger, upload.WithTimeout(cfg.ProcessTimeout))

			if len(args) == 1 {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("cannot read file: %w", err)
				}
				form.SelectFile(upload.NewSelectedFile(filepath.Base(args[0]), "", data))
			}
			form.SetDimensionality(dimensionality)

			out := cmd.OutOrStdout()
			styles := tui.NewStyles(tui.DefaultTheme)

			if !asJSON && form.State().File != nil {
				// Preview the in-flight frame; Trigger blocks until done.
				fmt.Fprintln(out, tui.Render(styles, form.State().Started().View(nil), tui.Banner{}))
			}

			result, err := form.Trigger(cmd.Context())
			if err != nil {
				if asJSON {
					writeJSON(out, model.ErrorResponse{Error: upload.UserMessage(err)})
				} else {
					fmt.Fprintln(out, tui.Render(styles, form.View(nil), tui.BannerFor(err)))
				}
				return err
			}

			originalPath, mixedPath, err := saveResult(outDir, result)
			if err != nil {
				return err
			}

			if asJSON {
				st := form.State()
				return writeJSON(out, processOutput{
					File:           st.File.Name,
					Dimensionality: st.Dimensionality,
					Original:       originalPath,
					Mixed:          mixedPath,
				})
			}

			view := form.View(nil)
			view.Players[0].Source = originalPath
			view.Players[1].Source = mixedPath
			fmt.Fprintln(out, tui.Render(styles, view, tui.Banner{}))
			return nil
		},
	}

	cmd.Flags().IntVarP(&dimensionality, "dimensionality", "d", upload.DefaultDimensionality, "dimensionality between 2 and 16")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for original.mp3 and mixed.mp3")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

// saveResult decodes both clips and writes them into dir.
func saveResult(dir string, result upload.Result) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output dir: %w", err)
	}

	originalPath := filepath.Join(dir, originalFileName)
	mixedPath := filepath.Join(dir, mixedFileName)
	for path, source := range map[string]string{originalPath: result.Original, mixedPath: result.Mixed} {
		data, err := upload.DecodeSource(source)
		if err != nil {
			return "", "", fmt.Errorf("decode %s: %w", filepath.Base(path), err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "", "", fmt.Errorf("write %s: %w", path, err)
		}
	}
	return originalPath, mixedPath, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
