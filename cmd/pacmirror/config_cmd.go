package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pacmirror/pacmirror/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage pacmirror configuration. Subcommands allow viewing the loaded
configuration and writing a default config file.`,
		Example: `  pacmirror config show
  pacmirror config init --path pacmirror.yaml`,
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigInitCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the current configuration in YAML format. If a config file is
loaded, shows the loaded configuration with any command-line overrides
applied.`,
		Example: `  pacmirror config show
  pacmirror config show --config /etc/pacmirror/pacmirror.yaml`,
		RunE: configShowRun,
	}

	return cmd
}

func configShowRun(cmd *cobra.Command, args []string) error {
	log := slog.Default()

	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	log.Info("showing configuration")

	data, err := yaml.Marshal(globalCfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Println("Current Configuration:")
	fmt.Println("======================")
	fmt.Println(string(data))

	return nil
}

var configInitPath string

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write a configuration file populated with the documented defaults
(protocol=https, age=12, latest=20, sort=rate) to the given path.`,
		Example: `  pacmirror config init --path pacmirror.yaml`,
		RunE:    configInitRun,
	}

	cmd.Flags().StringVar(&configInitPath, "path", "pacmirror.yaml", "where to write the config file")

	return cmd
}

func configInitRun(cmd *cobra.Command, args []string) error {
	log := slog.Default()

	if _, err := os.Stat(configInitPath); err == nil {
		return fmt.Errorf("refusing to overwrite existing file: %s", configInitPath)
	}

	data, err := yaml.Marshal(config.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(configInitPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Info("default config written", "path", configInitPath)
	fmt.Printf("Default configuration written to %s\n", configInitPath)

	return nil
}
