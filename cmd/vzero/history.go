package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rhuss/vzero/pkg/config"
	"github.com/rhuss/vzero/pkg/storage"
)

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var (
		opts storage.ListOptions
		desc bool
		full bool
	)

	cmd := &cobra.Command{
		Use:   "history [chat-id]",
		Short: "List recorded messages",
		Long: "List messages recorded by earlier runs. Only a persistent store " +
			"(storage.type: postgres) keeps messages across invocations.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer e.close()

			if e.store == nil {
				return errors.New("storage is disabled")
			}
			if e.cfg.Storage.Type == config.StorageMemory {
				fmt.Fprintln(cmd.ErrOrStderr(), "note: memory storage does not persist between runs")
			}

			if len(args) == 1 {
				opts.ChatID = args[0]
			}
			if desc {
				opts.Order = storage.OrderDesc
			}
			list, err := e.store.ListMessages(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if full {
				for _, m := range list.Data {
					fmt.Fprintf(out, "== %s  %s  %s\n", m.ID, m.CreatedAt.Format(time.RFC3339), m.Title)
					if m.Error != "" {
						fmt.Fprintln(out, e.renderer.RenderError(m.Error))
					}
					fmt.Fprintln(out, e.renderer.Render(m.Content))
				}
			} else {
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tCHAT\tCREATED\tSTATUS\tTITLE")
				for _, m := range list.Data {
					status := "complete"
					if !m.Complete {
						status = "error"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.ID, m.ChatID, m.CreatedAt.Format(time.RFC3339), status, m.Title)
				}
				tw.Flush()
			}
			if list.HasMore {
				fmt.Fprintf(cmd.ErrOrStderr(), "more results: --after %s\n", list.LastID)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "page size (max 100)")
	cmd.Flags().StringVar(&opts.After, "after", "", "list messages after this message ID")
	cmd.Flags().BoolVar(&desc, "desc", false, "newest first")
	cmd.Flags().BoolVar(&full, "full", false, "render message content")
	return cmd
}
