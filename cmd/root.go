package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fakeyudi/syllabus/internal/config"
	"github.com/fakeyudi/syllabus/internal/logging"
	"github.com/fakeyudi/syllabus/internal/profile"
	"github.com/fakeyudi/syllabus/internal/render"
	"github.com/fakeyudi/syllabus/internal/tui"
	"github.com/fakeyudi/syllabus/internal/voice"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// activeProfile holds the loaded user profile, or defaults before setup.
var activeProfile = defaultProfile()

var logger = zap.NewNop()

var verbose bool

func defaultProfile() *profile.Profile {
	p := profile.Default()
	return &p
}

var rootCmd = &cobra.Command{
	Use:   "syllabus",
	Short: "Study from your syllabus: ask questions, take mock exams, solve past papers",
	Long: `syllabus is a terminal client for a syllabus-scoped study assistant.

Run without arguments to open the interactive chat. Every operation is also
available as a subcommand for scripting.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger, err = logging.New(cfg, verbose)
		if err != nil {
			return err
		}

		// Skip the profile check for the setup command itself.
		if cmd.Name() == "setup" {
			return nil
		}

		// First-run: profile missing → run setup wizard automatically.
		// Only do this when stdin is an interactive terminal.
		if !profile.Exists() && isInteractive(cmd) {
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "  Welcome to syllabus! Looks like this is your first time.")
			if err := runSetup(cmd); err != nil {
				return err
			}
		}

		activeProfile = defaultProfile()
		if profile.Exists() {
			p, err := profile.Load()
			if err != nil {
				return fmt.Errorf("loading profile: %w", err)
			}
			activeProfile = p
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(os.Stdout.Fd()) {
			return fmt.Errorf("the chat needs an interactive terminal; see 'syllabus --help' for subcommands")
		}
		a, err := newApp()
		if err != nil {
			return err
		}

		rec, err := voice.NewRecognizer(cfg.RecognizerCommand)
		if err != nil {
			logger.Info("voice input disabled", zap.Error(err))
		}
		synth, err := voice.NewSynthesizer(cfg.SynthesizerCommand)
		if err != nil {
			logger.Info("voice output disabled", zap.Error(err))
		}
		playback := voice.NewPlayback(synth, logger)
		_ = playback.SetRate(activeProfile.VoiceRate)

		return tui.Run(cmd.Context(), tui.Deps{
			Store:    a.store,
			Router:   a.router,
			Capture:  voice.NewCapture(rec, logger),
			Playback: playback,
			Drawer:   render.NewDrawer(cfg.MarkdownStyle),
			Logger:   logger,
			Style:    activeProfile.AnswerStyle,
			OnRate: func(rate float64) {
				activeProfile.VoiceRate = rate
				if err := profile.Save(activeProfile); err != nil {
					logger.Warn("save voice rate", zap.Error(err))
				}
			},
		})
	},
}

// isInteractive reports whether the command reads from a terminal.
func isInteractive(cmd *cobra.Command) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

// Execute runs the root command. Exits with code 1 on error.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}
