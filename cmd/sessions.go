package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/RezaSbu/MO-BOT/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved chats",
}

func init() {
	sessionsCmd.AddCommand(newSessionsListCmd())
	sessionsCmd.AddCommand(newSessionsDeleteCmd())
	sessionsCmd.AddCommand(newSessionsExportCmd())
	rootCmd.AddCommand(sessionsCmd)
}

func newSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved chats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsList(cmd.Context())
		},
	}
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <n>",
		Short: "Delete chat n (as numbered by list)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsDelete(cmd.Context(), args[0])
		},
	}
}

func newSessionsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <n>",
		Short: "Export chat n to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			dir, _ := cmd.Flags().GetString("output")
			return runSessionsExport(cmd.Context(), args[0], format, dir)
		},
	}
	cmd.Flags().StringP("format", "f", "md", "export format (json, md, yaml)")
	cmd.Flags().StringP("output", "o", ".", "output directory")
	return cmd
}

func runSessionsList(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	sessions := a.store.Sessions()
	activeID := a.store.ActiveID()
	for i, sess := range sessions {
		marker := " "
		if sess.ID == activeID {
			marker = "*"
		}
		fmt.Printf("%s %2d. %s (%d messages)\n", marker, i+1, sess.Title, len(sess.Messages))
	}
	return nil
}

func runSessionsDelete(ctx context.Context, arg string) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	sess, err := sessionByArg(a, arg)
	if err != nil {
		return err
	}
	if err := a.store.DeleteSession(ctx, sess.ID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	fmt.Printf("Deleted %q.\n", sess.Title)
	return nil
}

func runSessionsExport(ctx context.Context, arg, format, dir string) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	sess, err := sessionByArg(a, arg)
	if err != nil {
		return err
	}
	path, err := exportSession(sess, format, dir)
	if err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

// sessionByArg resolves a 1-based list index.
func sessionByArg(a *app, arg string) (*session.Session, error) {
	n, err := strconv.Atoi(arg)
	sessions := a.store.Sessions()
	if err != nil || n < 1 || n > len(sessions) {
		return nil, fmt.Errorf("no such chat: %s (run 'mobot sessions list')", arg)
	}
	return sessions[n-1], nil
}
