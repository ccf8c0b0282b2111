package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/syllabus/internal/backend"
	"github.com/fakeyudi/syllabus/internal/dispatch"
	"github.com/fakeyudi/syllabus/internal/message"
	"github.com/fakeyudi/syllabus/internal/render"
)

var (
	askInternet  bool
	askStyle     string
	studySession string
	examAnswers  bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the syllabus",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.open(cmd.Context(), studySession); err != nil {
			return err
		}
		mode := backend.ModeSyllabus
		if askInternet {
			mode = backend.ModeInternet
		}
		style := askStyle
		if style == "" {
			style = activeProfile.AnswerStyle
		}
		reply, err := a.router.SendQuestion(cmd.Context(), strings.Join(args, " "), mode, style)
		if err != nil {
			return err
		}
		newPrinter(cmd.OutOrStdout()).print(nil, reply)
		if _, ok := reply.(message.SystemAsk); ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Re-run with --internet to search the internet.")
		}
		return nil
	},
}

var examCmd = &cobra.Command{
	Use:   "exam",
	Short: "Generate a mock exam from the syllabus",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.open(cmd.Context(), studySession); err != nil {
			return err
		}
		reply, err := a.router.GenerateExam(cmd.Context())
		if err != nil {
			return err
		}
		var in *render.Interactions
		if exam, ok := reply.(message.AIExam); ok && examAnswers && exam.Exam != nil {
			in = revealAll(exam.Exam)
		}
		newPrinter(cmd.OutOrStdout()).print(in, reply)
		return nil
	},
}

// revealAll answers every question correctly and opens every model answer.
func revealAll(exam *message.Exam) *render.Interactions {
	in := render.NewInteractions()
	for i, q := range exam.MCQs {
		in.Choose(exam, i, q.CorrectAnswer)
	}
	for i := range exam.TheoryItems() {
		in.Toggle(render.TheoryKey(i))
	}
	return in
}

var pyqCmd = &cobra.Command{
	Use:   "pyq",
	Short: "Work with past question papers",
}

func pyqSubcommand(mode dispatch.PYQMode, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(mode) + " <file>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			up, err := backend.ReadUpload(args[0])
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.open(cmd.Context(), studySession); err != nil {
				return err
			}
			reply, err := a.router.SubmitPYQ(cmd.Context(), &up, mode)
			if err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).print(nil, reply)
			return nil
		},
	}
}

var videoCmd = &cobra.Command{
	Use:   "video <url>",
	Short: "Summarize a video and check it against the syllabus",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.open(cmd.Context(), studySession); err != nil {
			return err
		}
		reply, err := a.router.AnalyzeVideo(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		newPrinter(cmd.OutOrStdout()).print(nil, reply)
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <pdf>...",
	Short: "Upload syllabus PDFs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := make([]backend.Upload, 0, len(args))
		for _, p := range args {
			up, err := backend.ReadUpload(p)
			if err != nil {
				return err
			}
			files = append(files, up)
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.router.UploadSyllabus(cmd.Context(), files...); err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
		cmd.Printf("✓ Uploaded %d file(s).\n", len(files))
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askInternet, "internet", false, "answer from general knowledge instead of the syllabus")
	askCmd.Flags().StringVar(&askStyle, "style", "", "answer style: "+strings.Join(backend.Styles, ", "))
	examCmd.Flags().BoolVar(&examAnswers, "answers", false, "show correct options and model answers")

	for _, c := range []*cobra.Command{askCmd, examCmd, pyqCmd, videoCmd} {
		c.PersistentFlags().StringVar(&studySession, "session", "", "session id (default: the last used session)")
	}

	pyqCmd.AddCommand(
		pyqSubcommand(dispatch.PYQSolve, "Solve a past paper against the syllabus"),
		pyqSubcommand(dispatch.PYQTrend, "Predict likely topics from a past paper"),
	)
	rootCmd.AddCommand(askCmd, examCmd, pyqCmd, videoCmd, uploadCmd)
}
