package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/syllabus/internal/message"
	"github.com/fakeyudi/syllabus/internal/voice"
)

var (
	speakRate float64
	speakLast bool
)

var speakCmd = &cobra.Command{
	Use:   "speak [text]",
	Short: "Read text, or the latest answer, aloud",
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if speakLast {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.open(cmd.Context(), ""); err != nil {
				return err
			}
			text = message.LastAnswer(a.store.Log().Snapshot())
		}
		if strings.TrimSpace(text) == "" {
			return errors.New("nothing to read: pass text or --last")
		}

		synth, err := voice.NewSynthesizer(cfg.SynthesizerCommand)
		if err != nil {
			return err
		}
		rate := speakRate
		if rate == 0 {
			rate = activeProfile.VoiceRate
		}
		p := voice.NewPlayback(synth, logger)
		if err := p.SetRate(rate); err != nil {
			return err
		}
		done, _ := p.Speak(text)
		select {
		case <-done:
		case <-cmd.Context().Done():
			p.Stop()
		}
		return nil
	},
}

func init() {
	speakCmd.Flags().Float64Var(&speakRate, "rate", 0, "speed multiplier (default: profile voice speed)")
	speakCmd.Flags().BoolVar(&speakLast, "last", false, "read the latest answer of the current session")
	rootCmd.AddCommand(speakCmd)
}
