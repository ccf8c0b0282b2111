package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/syllabus/internal/transcript"
)

var plainOutput bool

var viewCmd = &cobra.Command{
	Use:   "view <file>",
	Short: "View an exported transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("file not found: %s", path)
			}
			return err
		}

		parser, err := transcript.Detect(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		t, err := parser.Parse(data)
		if err != nil {
			return err
		}

		if plainOutput {
			printTranscript(cmd, t)
			return nil
		}
		p := newPrinter(cmd.OutOrStdout())
		title := t.Title
		if title == "" {
			title = t.SessionID
		}
		fmt.Fprintf(p.w, "# %s\n\n", title)
		p.print(nil, t.Conversation()...)
		return nil
	},
}

// printTranscript writes one line per message, for piping into other tools.
func printTranscript(cmd *cobra.Command, t *transcript.Transcript) {
	cmd.Printf("## %s\n", t.Title)
	cmd.Printf("  Session:   %s\n", t.SessionID)
	cmd.Printf("  Exported:  %s\n", t.ExportedAt.Format("2006-01-02 15:04:05 MST"))
	if t.Backend != "" {
		cmd.Printf("  Backend:   %s\n", t.Backend)
	}
	cmd.Println()
	for _, m := range t.Conversation() {
		cmd.Printf("[%s] %s\n", m.Role(), strings.ReplaceAll(m.Text(), "\n", " "))
	}
}

func init() {
	viewCmd.Flags().BoolVar(&plainOutput, "plain", false, "one line per message, no formatting")
	rootCmd.AddCommand(viewCmd)
}
