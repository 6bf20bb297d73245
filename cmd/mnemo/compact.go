package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mnemo-ai/mnemo/internal/compaction"
	"github.com/mnemo-ai/mnemo/internal/session"
)

// resolveSession returns the named session, or the main session when no
// id argument was given.
func resolveSession(repo *session.Repository, args []string) (*session.Metadata, error) {
	if len(args) == 1 {
		return repo.Get(args[0])
	}
	return repo.GetMain()
}

func compactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compact [session-id]",
		Short: "Compact a session's conversation (defaults to the main session)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			sess, err := resolveSession(app.Sessions, args)
			if err != nil {
				return err
			}

			ctx := context.Background()
			conv, err := app.Conversations.Load(ctx, sess.ID)
			if err != nil {
				return err
			}

			force, _ := cmd.Flags().GetBool("force")
			if !force && !app.Compactor.ShouldCompact(sess, conv) {
				fmt.Printf("Session %s is below the threshold (%d tokens); nothing to do.\n",
					sess.ID, app.Compactor.Threshold())
				return nil
			}

			result, err := app.Compactor.Compact(ctx, compaction.Request{
				Session:       sess,
				Conversation:  conv,
				Memory:        app.Memories,
				Transcripts:   app.Transcripts,
				Sessions:      app.Sessions,
				Conversations: app.Conversations,
				Force:         force,
			})
			if err != nil {
				return err
			}
			if !result.Compacted {
				fmt.Println("Nothing to compact.")
				return nil
			}
			fmt.Printf("Compacted %d messages into a summary; %d memories extracted.\n",
				result.MessagesCompacted, result.MemoriesFlushed)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Compact even below the token threshold")
	return cmd
}

func repairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repair [session-id]",
		Short: "Repair truncated transcripts (all sessions when no ID is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			var ids []string
			if len(args) == 1 {
				ids = args
			} else {
				list, err := app.Sessions.List()
				if err != nil {
					return err
				}
				for _, s := range list {
					ids = append(ids, s.ID)
				}
			}

			repaired := 0
			for _, id := range ids {
				changed, err := app.Transcripts.Repair(id)
				if err != nil {
					return fmt.Errorf("repair %s: %w", id, err)
				}
				if changed {
					repaired++
					fmt.Printf("Repaired transcript for session %s\n", id)
				}
			}
			fmt.Printf("Checked %d transcripts, repaired %d.\n", len(ids), repaired)
			return nil
		},
	}
}
