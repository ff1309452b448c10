// ABOUTME: Entry point for coven-chat, a terminal front-end for a remote chat agent
// ABOUTME: Wires cobra subcommands for chatting, transcripts, config setup and connectivity checks

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/coven-chat/internal/config"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                                            _           _
  ___ _____   _____ _ __         ___| |__   __ _| |_
 / __/ _ \ \ / / _ \ '_ \ _____ / __| '_ \ / _' | __|
| (_| (_) \ V /  __/ | | |_____| (__| | | | (_| | |_
 \___\___/ \_/ \___|_| |_|      \___|_| |_|\__,_|\__|
`

var configPath string

var rootCmd = &cobra.Command{
	Use:   "coven-chat",
	Short: "Chat with a remote agent from the terminal",
	Long: `coven-chat talks to a remote conversational agent with optional voice.

Quick Start:
  coven-chat init          # write a config file
  coven-chat check         # verify the agent is reachable
  coven-chat chat          # start chatting
  coven-chat transcripts   # list saved chats`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $COVEN_CHAT_CONFIG or ~/.config/coven/chat.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newChatCmd(), newTranscriptsCmd(), newInitCmd(), newCheckCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cancel()
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

// resolveConfigPath returns the --config flag or the default location.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

func loadConfig() (*config.Config, string, error) {
	path := resolveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}
