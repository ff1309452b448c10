// ABOUTME: The init subcommand: interactively writes a coven-chat config file
// ABOUTME: Prompts for the agent endpoint, credentials and voice settings

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389/coven-chat/internal/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a config file interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(bufio.NewReader(cmd.InOrStdin()), cmd.OutOrStdout())
		},
	}
}

func runInit(reader *bufio.Reader, out io.Writer) error {
	fmt.Fprint(out, banner)
	fmt.Fprintln(out, "coven-chat configuration setup")
	fmt.Fprintln(out, "==============================")
	fmt.Fprintln(out)

	outputFile := prompt(reader, out, "Config file path", resolveConfigPath())
	if _, err := os.Stat(outputFile); err == nil {
		if !yes(prompt(reader, out, "File exists. Overwrite?", "no")) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	fmt.Fprintln(out, "\n--- Agent ---")
	name := prompt(reader, out, "Agent display name", "Agent")
	agentID := prompt(reader, out, "Agent ID", "")
	baseURL := prompt(reader, out, "Backend base URL", "http://localhost:8090")
	consumerKey := prompt(reader, out, "Consumer key", "")
	consumerSecret := prompt(reader, out, "Consumer secret (or ${ENV_VAR})", "${COVEN_CHAT_SECRET}")

	fmt.Fprintln(out, "\n--- Widget ---")
	greeting := prompt(reader, out, "Greeting sent on connect (empty for none)", "")
	searchMode := yes(prompt(reader, out, "Search mode?", "no"))
	darkMode := yes(prompt(reader, out, "Dark mode by default?", "no"))

	fmt.Fprintln(out, "\n--- Voice ---")
	allowVoice := yes(prompt(reader, out, "Allow voice mode?", "no"))
	var ttsURL, captureCmd string
	if allowVoice {
		ttsURL = prompt(reader, out, "Text-to-speech URL (empty for local voice only)", "")
		captureCmd = prompt(reader, out, "Speech capture command", "")
	}

	fmt.Fprintln(out, "\n--- Logging ---")
	logLevel := prompt(reader, out, "Log level (debug/info/warn/error)", "info")

	var b strings.Builder
	b.WriteString("# coven-chat configuration\n")
	b.WriteString("# Generated by coven-chat init\n\n")

	b.WriteString("agent:\n")
	fmt.Fprintf(&b, "  name: %q\n", name)
	fmt.Fprintf(&b, "  id: %q\n", agentID)
	fmt.Fprintf(&b, "  base_url: %q\n", baseURL)
	fmt.Fprintf(&b, "  consumer_key: %q\n", consumerKey)
	fmt.Fprintf(&b, "  consumer_secret: %q\n", consumerSecret)
	b.WriteString("  request_timeout: \"30s\"\n\n")

	b.WriteString("widget:\n")
	fmt.Fprintf(&b, "  greeting: %q\n", greeting)
	fmt.Fprintf(&b, "  search_mode: %t\n", searchMode)
	fmt.Fprintf(&b, "  default_dark_mode: %t\n\n", darkMode)

	b.WriteString("voice:\n")
	fmt.Fprintf(&b, "  allow: %t\n", allowVoice)
	b.WriteString("  default_on: false\n\n")
	if ttsURL != "" {
		b.WriteString("tts:\n")
		fmt.Fprintf(&b, "  url: %q\n\n", ttsURL)
	}
	if captureCmd != "" {
		b.WriteString("capture:\n")
		b.WriteString("  command:\n")
		for _, arg := range strings.Fields(captureCmd) {
			fmt.Fprintf(&b, "    - %q\n", arg)
		}
		b.WriteString("\n")
	}

	b.WriteString("logging:\n")
	fmt.Fprintf(&b, "  level: %q\n", logLevel)
	b.WriteString("  format: \"text\"\n")

	// Parse what we generated so a typo fails here rather than at chat time.
	if _, err := config.Parse([]byte(b.String())); err != nil {
		return fmt.Errorf("generated config is invalid: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Fprintf(out, "\nConfig written to %s\n", outputFile)
	fmt.Fprintln(out, "\nTo verify the agent is reachable:")
	fmt.Fprintln(out, "  coven-chat check")
	return nil
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Fprintln(out)
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}

func yes(answer string) bool {
	a := strings.ToLower(answer)
	return a == "yes" || a == "y"
}
