package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/mnemo-ai/mnemo/internal/session"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage sessions",
	}
	cmd.AddCommand(
		sessionsListCmd(),
		sessionsNewCmd(),
		sessionsDeleteCmd(),
		sessionsSetMainCmd(),
	)
	return cmd
}

func sessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recently updated first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			list, err := app.Sessions.List()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tMAIN\tMESSAGES\tUPDATED")
			for _, s := range list {
				main := ""
				if s.IsMain {
					main = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					s.ID, s.Title, s.Status, main, s.MessageCount,
					s.UpdatedAt.Format("2006-01-02 15:04"),
				)
			}
			return w.Flush()
		},
	}
}

func sessionsNewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a session and make it the main one",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			title, _ := cmd.Flags().GetString("title")
			model, _ := cmd.Flags().GetString("model")
			provider, _ := cmd.Flags().GetString("provider")

			meta, err := app.Sessions.NewSession(session.CreateOptions{
				Title:    title,
				Model:    model,
				Provider: provider,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Created session %s (%q)\n", meta.ID, meta.Title)
			return nil
		},
	}
	cmd.Flags().String("title", "", "Session title")
	cmd.Flags().String("model", "", "Model identifier")
	cmd.Flags().String("provider", "", "Provider identifier")
	return cmd
}

func sessionsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session and its transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			id := args[0]
			meta, err := app.Sessions.Get(id)
			if err != nil {
				return err
			}

			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				var confirmed bool
				form := huh.NewConfirm().
					Title(fmt.Sprintf("Delete session %q (%s)?", meta.Title, id)).
					Description("The transcript file is removed as well.").
					Value(&confirmed)
				if err := form.Run(); err != nil {
					return err
				}
				if !confirmed {
					fmt.Println("Aborted.")
					return nil
				}
			}

			replacement, _ := cmd.Flags().GetString("promote")
			if err := app.Sessions.Delete(id, replacement); err != nil {
				return err
			}
			if err := os.Remove(app.Transcripts.Path(id)); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove transcript: %w", err)
			}
			fmt.Printf("Deleted session %s\n", id)
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().String("promote", "", "Session to promote to main when deleting the main session")
	return cmd
}

func sessionsSetMainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-main <id>",
		Short: "Make a session the main one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if err := app.Sessions.SetMain(args[0]); err != nil {
				return err
			}
			fmt.Printf("Session %s is now main\n", args[0])
			return nil
		},
	}
}
