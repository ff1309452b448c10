// ABOUTME: The chat subcommand: runs the widget event loop behind a bubbletea terminal UI
// ABOUTME: The UI only renders presenter view models and forwards user intents to the widget

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat",
		Long: `Start an interactive chat with the configured agent.

Type a message and press enter to send. Commands:
  /voice     toggle voice mode          /mute      toggle the microphone
  /continue  stop speaking and listen   /end       end the chat session
  /new       start a new chat           /open      open or restore the chat
  /min       minimize the chat          /expand    toggle the expanded view
  /theme     toggle dark mode           /think     show or hide agent reasoning
  /quit      exit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context())
		},
	}
}

func runChat(ctx context.Context) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	logFile, err := openLogFile(cfg.Logging)
	if err != nil {
		return err
	}
	defer logFile.Close()

	logger := setupLogger(cfg.Logging, logFile)
	slog.SetDefault(logger)
	logger.Info("starting coven-chat",
		"version", version,
		"config", path,
		"agent_id", cfg.Agent.ID,
		"base_url", cfg.Agent.BaseURL,
	)

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates, _ := a.broadcaster.Subscribe(ctx)

	loopErr := make(chan error, 1)
	go func() { loopErr <- a.run(ctx) }()

	if cfg.Widget.SearchMode {
		a.widget.Start()
	} else {
		a.widget.Open()
	}

	p := tea.NewProgram(newChatModel(a.widget, updates, cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()

	cancel()
	if err := <-loopErr; err != nil {
		logger.Error("widget loop stopped", "error", err)
	}

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("running terminal UI: %w", runErr)
	}
	return nil
}
