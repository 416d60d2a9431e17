package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/soyeahso/agentdash/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// secretKeys are printed masked by config get unless --reveal is set.
var secretKeys = map[string]bool{
	"token":        true,
	"password":     true,
	"clientSecret": true,
	"dsn":          true,
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Get or set configuration values",
	}

	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigUnsetCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigGetCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ParseConfigPath(args[0])
			if err != nil {
				return err
			}

			raw, err := config.LoadRaw(paths.Config)
			if err != nil {
				return err
			}

			val, ok := config.GetValueAtPath(raw, path)
			if !ok {
				return fmt.Errorf("key %q not found", args[0])
			}
			if !reveal {
				val = maskSecrets(path[len(path)-1], val)
			}

			return printValue(cmd.OutOrStdout(), val)
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "print credentials unmasked")
	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ParseConfigPath(args[0])
			if err != nil {
				return err
			}

			raw, err := config.LoadRaw(paths.Config)
			if err != nil {
				return err
			}

			value := parseValue(args[1])
			config.SetValueAtPath(raw, path, value)

			if err := paths.EnsureDirs(); err != nil {
				return err
			}
			if err := config.SaveRaw(paths.Config, raw); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", args[0], maskSecrets(path[len(path)-1], value))
			return nil
		},
	}
}

func newConfigUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ParseConfigPath(args[0])
			if err != nil {
				return err
			}

			raw, err := config.LoadRaw(paths.Config)
			if err != nil {
				return err
			}

			if !config.UnsetValueAtPath(raw, path) {
				return fmt.Errorf("key %q not found", args[0])
			}

			if err := config.SaveRaw(paths.Config, raw); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Unset %s\n", args[0])
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), paths.Config)
		},
	}
}

// maskSecrets replaces credential values, recursing into maps. Values that
// are ${VAR} references are left readable.
func maskSecrets(key string, v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = maskSecrets(k, inner)
		}
		return out
	case string:
		if secretKeys[key] && val != "" && !strings.HasPrefix(val, "${") {
			return "********"
		}
		return val
	default:
		return v
	}
}

// printValue outputs a value in a human-readable format.
func printValue(out io.Writer, v any) error {
	switch val := v.(type) {
	case string:
		fmt.Fprintln(out, val)
	case map[string]any, []any:
		data, err := yaml.Marshal(val)
		if err != nil {
			return err
		}
		fmt.Fprint(out, string(data))
	default:
		fmt.Fprintln(out, val)
	}
	return nil
}

// parseValue interprets a string as a bool, integer or float when it is one.
func parseValue(s string) any {
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
