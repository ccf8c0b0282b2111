package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/syllabus/internal/transcript"
)

var (
	exportFormat  string
	exportSession string
	exportOutput  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a session transcript as Markdown or JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := transcript.RendererFor(exportFormat)
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.open(cmd.Context(), exportSession); err != nil {
			return err
		}
		id := a.store.Current()
		title, _ := a.store.Title(id)
		t, err := transcript.New(id, title, cfg.BackendURL, a.store.Log().Snapshot(), time.Now())
		if err != nil {
			return err
		}
		data, err := r.Render(t)
		if err != nil {
			return err
		}

		if exportOutput == "" || exportOutput == "-" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
			return fmt.Errorf("writing transcript: %w", err)
		}
		cmd.Printf("✓ Wrote %s\n", exportOutput)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "markdown", "output format: markdown or json")
	exportCmd.Flags().StringVar(&exportSession, "session", "", "session id (default: the last used session)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	rootCmd.AddCommand(exportCmd)
}
