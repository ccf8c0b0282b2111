package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fakeyudi/syllabus/internal/session"
	"github.com/fakeyudi/syllabus/internal/voice"
)

const probeTimeout = 5 * time.Second

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the backend, the current session and the voice engines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		var (
			backendLine  string
			sessionCount int
			recLine      string
			synthLine    string
		)
		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()
			start := time.Now()
			list, err := a.client.ListSessions(pctx)
			if err != nil {
				backendLine = "unreachable (" + err.Error() + ")"
				return nil
			}
			sessionCount = len(list)
			backendLine = "ok (" + time.Since(start).Round(time.Millisecond).String() + ")"
			return nil
		})
		g.Go(func() error {
			recLine = "ok"
			if _, err := voice.NewRecognizer(cfg.RecognizerCommand); err != nil {
				recLine = "unavailable (" + err.Error() + ")"
			}
			return nil
		})
		g.Go(func() error {
			synthLine = "ok"
			if _, err := voice.NewSynthesizer(cfg.SynthesizerCommand); err != nil {
				synthLine = "unavailable (" + err.Error() + ")"
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return err
		}

		cmd.Printf("Backend:      %s %s\n", cfg.BackendURL, backendLine)
		cmd.Printf("Sessions:     %d\n", sessionCount)
		st, err := loadState()
		switch {
		case errors.Is(err, session.ErrNoState):
			cmd.Println("Current:      none")
		case err != nil:
			return err
		default:
			cmd.Printf("Current:      %s\n", st.CurrentSessionID)
		}
		cmd.Printf("Answer style: %s\n", activeProfile.AnswerStyle)
		cmd.Printf("Voice input:  %s\n", recLine)
		cmd.Printf("Voice output: %s (speed %.2gx)\n", synthLine, activeProfile.VoiceRate)
		return nil
	},
}

func loadState() (*session.State, error) {
	st, err := session.NewStateStore()
	if err != nil {
		return nil, err
	}
	return st.Load()
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
