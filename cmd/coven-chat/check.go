// ABOUTME: The check subcommand: opens and closes a session to verify agent connectivity
// ABOUTME: Prints the same troubleshooting hints the chat shows on a failed connect

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/coven-chat/internal/agentapi"
	"github.com/2389/coven-chat/internal/chaterr"
	"github.com/2389/coven-chat/internal/config"
)

func newCheckCmd() *cobra.Command {
	var send string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the agent backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			logger := slog.New(slog.DiscardHandler)
			client := agentapi.New(cfg.Agent.BaseURL, cfg.Agent.RequestTimeout, agentapi.WithLogger(logger))
			return runCheck(cmd.Context(), cmd.OutOrStdout(), cfg, client, send)
		},
	}
	cmd.Flags().StringVar(&send, "send", "", "also send this message and print the reply")
	return cmd
}

// sessionAPI is the part of the agent client check exercises.
type sessionAPI interface {
	InitSession(ctx context.Context, agentID string, creds agentapi.Credentials) (string, error)
	GetResponse(ctx context.Context, sessionID, message string, creds agentapi.Credentials) (string, error)
	EndSession(ctx context.Context, sessionID string, creds agentapi.Credentials) error
}

func runCheck(ctx context.Context, out io.Writer, cfg *config.Config, api sessionAPI, send string) error {
	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	creds := agentapi.Credentials{
		ConsumerKey:    cfg.Agent.ConsumerKey,
		ConsumerSecret: cfg.Agent.ConsumerSecret,
	}

	fmt.Fprintf(out, "Checking %s at %s\n", cfg.Agent.Name, cfg.Agent.BaseURL)

	start := time.Now()
	sessionID, err := api.InitSession(ctx, cfg.Agent.ID, creds)
	if err != nil {
		fmt.Fprintf(out, "  %s open session: %v\n", bad("✗"), err)
		fmt.Fprintln(out, dim(troubleshooting(err)))
		return errors.New("agent unreachable")
	}
	fmt.Fprintf(out, "  %s open session %s %s\n", ok("✓"), sessionID, dim(time.Since(start).Round(time.Millisecond)))

	if send != "" {
		start = time.Now()
		reply, err := api.GetResponse(ctx, sessionID, send, creds)
		if err != nil {
			fmt.Fprintf(out, "  %s send message: %v\n", bad("✗"), err)
		} else {
			fmt.Fprintf(out, "  %s send message %s\n", ok("✓"), dim(time.Since(start).Round(time.Millisecond)))
			fmt.Fprintf(out, "\n%s\n\n", reply)
		}
	}

	if err := api.EndSession(ctx, sessionID, creds); err != nil {
		fmt.Fprintf(out, "  %s end session: %v\n", bad("✗"), err)
		return errors.New("ending session failed")
	}
	fmt.Fprintf(out, "  %s end session\n", ok("✓"))
	return nil
}

func troubleshooting(err error) string {
	if chaterr.IsKind(err, chaterr.KindConfig) {
		return "    Set agent.id, agent.consumer_key and agent.consumer_secret in the config file."
	}
	return "    1. Check that agent.base_url points at the agent backend\n" +
		"    2. Confirm agent.id is correct\n" +
		"    3. Verify the consumer key and consumer secret are correct"
}
