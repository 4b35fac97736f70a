package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/askbot/internal/config"
	"github.com/kalambet/askbot/internal/storage"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question, or start an interactive conversation",
	Long: `Ask the running server a question.

With no arguments, questions are read line by line from stdin and share one
conversation, so "in english" translates the previous answer.

Examples:
  askbot ask "Comment obtenir un extrait de naissance ?"
  askbot ask --session 3f1c... "en arabe"
  askbot ask`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		client.sessionID = sessionID

		if len(args) > 0 {
			a, err := client.ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			printAnswer(a)
			printStatus("Session", "%s", client.sessionID)
			return nil
		}
		return askLoop(cmd.Context(), client, os.Stdin)
	},
}

func init() {
	askCmd.Flags().String("session", "", "continue an existing conversation")
}

// askLoop answers one question per input line until EOF or "exit".
func askLoop(ctx context.Context, client *apiClient, in io.Reader) error {
	fmt.Fprintln(stderr, colorize(colorBold, "Ask a question (Ctrl-D or \"exit\" to quit)."))
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(stderr, colorize(colorCyan, "> "))
		if !scanner.Scan() {
			fmt.Fprintln(stderr)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		a, err := client.ask(ctx, line)
		if err != nil {
			printError("%v", err)
			continue
		}
		printAnswer(a)
	}
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently answered questions (needs ASKBOT_ADMIN_TOKEN)",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		sessionID, _ := cmd.Flags().GetString("session")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return listHistory(cmd.Context(), client, limit, sessionID)
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of interactions to list")
	historyCmd.Flags().String("session", "", "only show one conversation")
}

func listHistory(ctx context.Context, client *apiClient, limit int, sessionID string) error {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	if sessionID != "" {
		q.Set("session_id", sessionID)
	}

	resp, err := client.get(ctx, "/admin/interactions?"+q.Encode())
	if err != nil {
		return err
	}

	var interactions []storage.Interaction
	if err := decodeJSON(resp, &interactions); err != nil {
		return err
	}

	if len(interactions) == 0 {
		fmt.Fprintln(stdout, "No interactions found.")
		return nil
	}

	for _, ix := range interactions {
		query := ix.Query
		if r := []rune(query); len(r) > 80 {
			query = string(r[:80]) + "..."
		}
		fmt.Fprintf(stdout, "%s  %s  %-13s %s %.2f  %s\n",
			colorize(colorCyan, shortID(ix.SessionID)),
			ix.CreatedAt.Local().Format(time.DateTime),
			ix.Kind,
			ix.Lang,
			ix.Score,
			query,
		)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(stdout, "  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorCyan, "("+k.EnvVar+")"))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return fmt.Errorf("%w (valid keys: %s)", err, strings.Join(config.ValidKeys(), ", "))
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

var configLanguageCmd = &cobra.Command{
	Use:   "language <fr|en|ar>",
	Short: "Set the display language of the category browser on the running server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.put(cmd.Context(), "/admin/settings/"+storage.SettingLanguage, map[string]string{"value": args[0]})
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Browser language set to %s", result[storage.SettingLanguage])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configLanguageCmd)
}
