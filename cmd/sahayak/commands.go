package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zadescoxp/Sahayak/internal/composer"
	"github.com/zadescoxp/Sahayak/internal/config"
	"github.com/zadescoxp/Sahayak/internal/storage"
)

// stdout is swapped out in tests.
var stdout io.Writer = os.Stdout

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the assistant a question in one mode",
	Long: `Ask the assistant a question using the stored profile of the token's user.

Examples:
  sahayak ask --token $ID_TOKEN "What should I eat for dinner?"
  sahayak ask --mode schemes "Which pension schemes can I apply for?"
  sahayak ask --mode health "Can I take this medicine twice a day?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		modeName, _ := cmd.Flags().GetString("mode")
		mode, err := composer.ParseMode(modeName)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		answer, err := ask(cmd.Context(), client, mode, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, answer)
		return nil
	},
}

func init() {
	askCmd.Flags().String("mode", string(composer.ModeGeneral), "assistant mode: general, religion, schemes or health")
}

func modePath(mode composer.Mode) string {
	if mode == composer.ModeHealth {
		return "/mode/health/chat"
	}
	return "/mode/" + string(mode)
}

func ask(ctx context.Context, client *apiClient, mode composer.Mode, input string) (string, error) {
	if err := client.requireToken(); err != nil {
		return "", err
	}
	resp, err := client.post(ctx, modePath(mode), map[string]string{"input": input})
	if err != nil {
		return "", err
	}
	var out struct {
		Response string `json:"response"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// --- user ---

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Show or update the token user's profile",
}

var userShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored profile as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := client.requireToken(); err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/get_user", nil)
		if err != nil {
			return err
		}
		var doc map[string]any
		if err := decodeJSON(resp, &doc); err != nil {
			return err
		}

		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	},
}

var userSetCmd = &cobra.Command{
	Use:   "set <key=value>...",
	Short: "Merge profile fields",
	Long: `Merge one or more fields into the stored profile. Integer values are
sent as numbers.

Example:
  sahayak user set name=Asha age=70 gender=F state=Kerala language=Malayalam`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := parseFields(args)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := client.requireToken(); err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/store_user", fields)
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("%s", result["message"])
		return nil
	},
}

func init() {
	userCmd.AddCommand(userShowCmd)
	userCmd.AddCommand(userSetCmd)
}

func parseFields(args []string) (map[string]any, error) {
	fields := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q, want key=value", arg)
		}
		if n, err := strconv.Atoi(value); err == nil {
			fields[key] = n
			continue
		}
		fields[key] = value
	}
	return fields, nil
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history <uid>",
	Short: "List a user's health analyses from the local database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		return printHistory(cmd.Context(), store, args[0], limit)
	},
}

func init() {
	historyCmd.Flags().Int("limit", 10, "maximum number of records to list")
}

func printHistory(ctx context.Context, store *storage.Store, uid string, limit int) error {
	records, err := store.ListHealthRecords(ctx, uid, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		printWarning("no health records for %s", uid)
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(stdout, "%s  %s\n", labelColor.Sprint(r.CreatedAt.Format("2006-01-02 15:04")), r.ImageURL)
		fmt.Fprintf(stdout, "  %s\n", strings.ReplaceAll(strings.TrimSpace(r.Analysis), "\n", "\n  "))
	}
	return nil
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
			fmt.Fprintf(stdout, "  %s = %s  (%s)\n", labelColor.Sprint(k.Key), k.Value, k.EnvVar)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in the config file",
	Long: "Set a configuration value in the config file.\n\nValid keys: " +
		strings.Join(config.ValidKeys(), ", "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
