package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var clearYes bool

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session"},
	Short:   "List and manage chat sessions",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionsListCmd.RunE(cmd, args)
	},
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions (* marks the current one)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		list, err := a.client.ListSessions(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}
		current := ""
		if st, err := loadState(); err == nil {
			current = st.CurrentSessionID
		}
		if len(list) == 0 {
			cmd.Println("no sessions")
			return nil
		}
		for _, s := range list {
			mark := " "
			if s.ID == current {
				mark = "*"
			}
			cmd.Printf("%s %s  %s\n", mark, s.ID, s.Title)
		}
		return nil
	},
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new session and make it current",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		id, err := a.store.Create(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Println(id)
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a session's conversation",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		if err := a.open(cmd.Context(), id); err != nil {
			return err
		}
		if title, ok := a.store.Title(a.store.Current()); ok && title != "" {
			cmd.Printf("# %s\n\n", title)
		}
		msgs := a.store.Log().Snapshot()
		if len(msgs) == 0 {
			cmd.Println("(empty session)")
			return nil
		}
		newPrinter(cmd.OutOrStdout()).print(nil, msgs...)
		return nil
	},
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename <id> <title>",
	Short: "Rename a session",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.store.Rename(cmd.Context(), args[0], strings.Join(args[1:], " ")); err != nil {
			return err
		}
		cmd.Println("✓ Renamed.")
		return nil
	},
}

var sessionsUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Make a session current for later commands",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.store.Load(cmd.Context(), args[0]); err != nil {
			return err
		}
		cmd.Printf("Now using %s (%d messages).\n", args[0], a.store.Log().Len())
		return nil
	},
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every session and start a fresh one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			if !isInteractive(cmd) {
				return fmt.Errorf("refusing to clear sessions without --yes")
			}
			cmd.Print("Delete all sessions? (y/N) ")
			line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if ans := strings.ToLower(strings.TrimSpace(line)); ans != "y" && ans != "yes" {
				cmd.Println("Cancelled.")
				return nil
			}
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.store.ClearAll(cmd.Context()); err != nil {
			return err
		}
		cmd.Printf("✓ Cleared. New session %s.\n", a.store.Current())
		return nil
	},
}

func init() {
	sessionsClearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "do not ask for confirmation")
	sessionsCmd.AddCommand(sessionsListCmd, sessionsNewCmd, sessionsShowCmd, sessionsRenameCmd, sessionsUseCmd, sessionsClearCmd)
	rootCmd.AddCommand(sessionsCmd)
}
