package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"protospace/internal/config"
)

const maskedValue = "********"

func newConfigCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and write protospace settings",
	}
	cmd.AddCommand(
		newConfigGetCmd(cfg),
		newConfigSetCmd(),
		newConfigListCmd(cfg, jsonOutput),
	)
	return cmd
}

func newConfigGetCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one effective config value",
		Args:  requireExactlyArgs(1, "config key is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkConfigKey(args[0]); err != nil {
				return err
			}
			value, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			return writePlain("%s\n", value)
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist a value in the global config file",
		Args:  requireExactlyArgs(2, "config key and value are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkConfigKey(args[0]); err != nil {
				return err
			}
			path, err := config.GlobalPath()
			if err != nil {
				return err
			}
			return config.SetKey(path, args[0], args[1])
		},
	}
}

func newConfigListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List effective config values with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := effectiveConfig(cfg)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(values)
			}
			tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
			for _, key := range config.AllowedKeys() {
				fmt.Fprintf(tw, "%s\t%s\n", key, values[key])
			}
			return tw.Flush()
		},
	}
}

func checkConfigKey(key string) error {
	if config.IsAllowedKey(key) {
		return nil
	}
	return fmt.Errorf("unknown key %q; known keys: %s", key, strings.Join(config.AllowedKeys(), ", "))
}

// effectiveConfig resolves every key after file and env layering. Non-empty
// secrets are replaced by maskedValue.
func effectiveConfig(cfg *config.Config) (map[string]string, error) {
	keys := config.AllowedKeys()
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		value, err := cfg.Get(key)
		if err != nil {
			return nil, err
		}
		if value != "" && config.IsSecretKey(key) {
			value = maskedValue
		}
		values[key] = value
	}
	return values, nil
}
