// ABOUTME: The transcripts subcommand: lists, shows and deletes saved chats
// ABOUTME: Reads the same SQLite database the chat command writes on end and new chat

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/2389/coven-chat/internal/markup"
	"github.com/2389/coven-chat/internal/store"
	"github.com/2389/coven-chat/internal/widget"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0076d3"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b6b6b"))
)

func newTranscriptsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "transcripts",
		Aliases: []string{"ls"},
		Short:   "List saved chat transcripts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openTranscripts()
			if err != nil {
				return err
			}
			defer s.Close()

			list, err := s.ListTranscripts(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("listing transcripts: %w", err)
			}
			return printTranscriptList(cmd.OutOrStdout(), list)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum transcripts to list")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openTranscripts()
			if err != nil {
				return err
			}
			defer s.Close()

			t, err := s.GetTranscript(cmd.Context(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no transcript %q", args[0])
			}
			if err != nil {
				return fmt.Errorf("loading transcript: %w", err)
			}
			return printTranscript(cmd.OutOrStdout(), t)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a saved transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openTranscripts()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.DeleteTranscript(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("no transcript %q", args[0])
				}
				return fmt.Errorf("deleting transcript: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	})

	return cmd
}

func openTranscripts() (*store.SQLiteStore, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.Storage.TranscriptDB); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no transcripts yet (%s does not exist)", cfg.Storage.TranscriptDB)
	}
	s, err := store.NewSQLiteStore(cfg.Storage.TranscriptDB)
	if err != nil {
		return nil, fmt.Errorf("opening transcript store: %w", err)
	}
	return s, nil
}

func printTranscriptList(out io.Writer, list []*store.Transcript) error {
	if len(list) == 0 {
		fmt.Fprintln(out, dimStyle.Render("no saved transcripts"))
		return nil
	}

	fmt.Fprintln(out, headerStyle.Render("Saved transcripts"))
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSAVED\tAGENT\tMESSAGES\tREASON")
	for _, t := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			t.ID,
			t.CreatedAt.Local().Format("2006-01-02 15:04"),
			t.AgentName,
			t.MessageCount,
			t.Reason,
		)
	}
	return tw.Flush()
}

func printTranscript(out io.Writer, t *store.Transcript) error {
	var msgs []widget.Message
	if len(t.Payload) > 0 {
		if err := json.Unmarshal(t.Payload, &msgs); err != nil {
			return fmt.Errorf("decoding transcript: %w", err)
		}
	}

	title := fmt.Sprintf("%s · %s", t.AgentName, t.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintln(out, headerStyle.Render(title))
	if t.SessionID != "" {
		fmt.Fprintln(out, dimStyle.Render("session "+t.SessionID))
	}
	fmt.Fprintln(out)

	text := markup.NewProcessor(false)
	for _, m := range msgs {
		body := m.Text
		if m.RawHTML {
			body = text.StripToText(body)
		}
		switch m.Sender {
		case widget.SenderUser:
			fmt.Fprintf(out, "[%s] You: %s\n", m.Timestamp, body)
		case widget.SenderAgent:
			fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp, t.AgentName, body)
		default:
			fmt.Fprintln(out, dimStyle.Render(strings.TrimSpace(body)))
		}
	}
	return nil
}
