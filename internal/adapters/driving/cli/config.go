package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/loom-gateway/internal/adapters/driven/config/file"
	"github.com/custodia-labs/loom-gateway/internal/config"
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driven"
)

// defaultConfigFile is read by config.Load when --config is not given.
const defaultConfigFile = "loom.toml"

// openConfigStore opens the store behind config get and set.
var openConfigStore = func(path string) (driven.ConfigStore, error) {
	return file.NewConfigStore(path)
}

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Manage the configuration file",
	Annotations: skipApp(),
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with the defaults",
	Long: `Writes the built-in defaults as TOML. The path defaults to --config or
./loom.toml. An existing file is never overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print configuration values",
	Long:  `Prints one value by dotted key (e.g. chat.model), or every value set in the file.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Sets a dotted key in the configuration file. Values that parse as
booleans or numbers are stored as such.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func configPath(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	if configFile != "" {
		return configFile
	}
	return defaultConfigFile
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath(args)
	if err := config.WriteDefault(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	cmd.Printf("Wrote %s\n", path)
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	store, err := openConfigStore(configPath(nil))
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}

	if len(args) == 1 {
		v, ok := store.Get(args[0])
		if !ok {
			return fmt.Errorf("%s is not set in %s", args[0], store.Path())
		}
		cmd.Println(v)
		return nil
	}

	for _, key := range store.Keys() {
		v, _ := store.Get(key)
		cmd.Printf("%s = %v\n", key, v)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	store, err := openConfigStore(configPath(nil))
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}

	key, value := args[0], parseValue(args[1])
	if err := store.Set(key, value); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	cmd.Printf("%s = %v\n", key, value)
	return nil
}

func parseValue(s string) any {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
