package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/syllabus/internal/backend"
	"github.com/fakeyudi/syllabus/internal/dispatch"
	"github.com/fakeyudi/syllabus/internal/inbox"
)

var (
	watchAs       string
	watchExisting bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Watch a folder and send every new PDF to the assistant",
	Long: `Watch a drop folder. Each PDF that appears (and stops changing) is
uploaded as syllabus material, or submitted as a past paper with
--as solve / --as trend. With --existing, files already in the folder
are handled first. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		handle, err := inboxHandler(cmd, a, watchAs)
		if err != nil {
			return err
		}
		if watchAs != "syllabus" {
			if err := a.open(cmd.Context(), ""); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		w := newWatcher(args[0])
		cmd.Printf("Watching %s (Ctrl+C to stop)\n", args[0])
		return w.Run(ctx, handle)
	},
}

func newWatcher(dir string) *inbox.Watcher {
	return &inbox.Watcher{Dir: dir, Patterns: cfg.InboxPatterns, Existing: watchExisting, Logger: logger}
}

// inboxHandler returns the action applied to each dropped file.
func inboxHandler(cmd *cobra.Command, a *app, as string) (inbox.Handler, error) {
	switch as {
	case "syllabus":
		return func(ctx context.Context, path string) error {
			up, err := backend.ReadUpload(path)
			if err != nil {
				return err
			}
			if err := a.router.UploadSyllabus(ctx, up); err != nil {
				return err
			}
			cmd.Printf("✓ Uploaded %s\n", up.Name)
			return nil
		}, nil
	case string(dispatch.PYQSolve), string(dispatch.PYQTrend):
		mode := dispatch.PYQMode(as)
		p := newPrinter(cmd.OutOrStdout())
		return func(ctx context.Context, path string) error {
			up, err := backend.ReadUpload(path)
			if err != nil {
				return err
			}
			reply, err := a.router.SubmitPYQ(ctx, &up, mode)
			if err != nil {
				return err
			}
			p.print(nil, reply)
			return nil
		}, nil
	}
	return nil, fmt.Errorf("unknown --as %q: want syllabus, solve or trend", as)
}

func init() {
	watchCmd.Flags().StringVar(&watchAs, "as", "syllabus", "what dropped files are: syllabus, solve or trend")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "also handle files already in the folder")
	rootCmd.AddCommand(watchCmd)
}
