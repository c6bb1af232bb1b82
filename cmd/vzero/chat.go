package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rhuss/vzero/pkg/api"
	"github.com/rhuss/vzero/pkg/render"
	"github.com/rhuss/vzero/pkg/slot"
	"github.com/rhuss/vzero/pkg/storage"
	"github.com/rhuss/vzero/pkg/stream"
)

func newChatCmd(flags *globalFlags) *cobra.Command {
	var req api.CreateChatRequest

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Start a chat and stream the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer e.close()

			c, err := e.client()
			if err != nil {
				return err
			}
			defer c.Close()

			req.Message = strings.Join(args, " ")
			body, err := c.StreamChat(cmd.Context(), &req)
			if err != nil {
				return err
			}
			return e.consume(cmd, body, "")
		},
	}
	cmd.Flags().StringVar(&req.System, "system", "", "system prompt")
	cmd.Flags().StringVar(&req.ProjectID, "project", "", "project ID")
	return cmd
}

func newSendCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "send <chat-id> <message>",
		Short: "Send a message to a chat and stream the reply",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer e.close()

			c, err := e.client()
			if err != nil {
				return err
			}
			defer c.Close()

			chatID := args[0]
			body, err := c.StreamMessage(cmd.Context(), chatID, &api.SendMessageRequest{
				Message: strings.Join(args[1:], " "),
			})
			if err != nil {
				return err
			}
			return e.consume(cmd, body, chatID)
		},
	}
}

func newReplayCmd(flags *globalFlags) *cobra.Command {
	var record bool

	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "Render a captured stream from a file, or - for stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer e.close()

			var src io.ReadCloser = os.Stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening capture: %w", err)
				}
				src = f
			}
			if !record {
				e.store = nil
			}
			return e.consume(cmd, stream.NewBody(src), "")
		},
	}
	cmd.Flags().BoolVar(&record, "record", false, "save the replayed message to the store")
	return cmd
}

// consume streams body into a slot, renders it live to the command's output
// and records the result.
func (e *env) consume(cmd *cobra.Command, body *stream.Body, chatID string) error {
	ctx := cmd.Context()
	s := slot.New()
	live := render.NewLive(cmd.OutOrStdout(), e.renderer)

	var rec *storage.Recorder
	var cb stream.Callbacks
	if e.store != nil {
		rec = storage.NewRecorder(e.store, chatID)
		cb = rec.Callbacks(context.WithoutCancel(ctx), cb)
	}
	s.SetCallbacks(cb)

	unsubscribe := s.Subscribe(func() {
		if v := s.Snapshot(); v.HasContent {
			live.Update(v.Content)
		}
	})
	defer unsubscribe()

	done := s.Sync(ctx, body)
	if done == nil {
		return nil
	}
	<-done

	v := s.Snapshot()
	if v.HasError {
		live.Fail(v.Error)
		return fmt.Errorf("stream failed: %s", v.Error)
	}
	live.Update(v.Content)
	live.Finish()

	if rec != nil {
		if msg := rec.Saved(); msg != nil && rec.Err() == nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "saved %s (chat %s)\n", msg.ID, msg.ChatID)
		}
	}
	return nil
}
