package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pacmirror/pacmirror/internal/config"
	"github.com/pacmirror/pacmirror/internal/engine"
	"github.com/pacmirror/pacmirror/internal/mirror"
	"github.com/pacmirror/pacmirror/internal/reflector"
	"github.com/pacmirror/pacmirror/internal/store"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgPath    string
	targetPath string
	logLevel   string
	logFormat  string
	quiet      bool
	globalCfg  *config.Config
	logger     *slog.Logger

	// Global components
	globalStore  *store.Store
	globalStatus *mirror.StatusClient
	globalRunner *reflector.Runner
	globalEngine *engine.Manager
)

// initializeComponents initializes the global store, status client, and engine
func initializeComponents() error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	// Initialize store
	dbPath := globalCfg.Mirrorlist.DBPath
	if dbPath == "" {
		dbPath = "/var/lib/pacmirror/pacmirror.db"
	}
	st, err := store.New(dbPath, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	globalStore = st

	// Initialize mirror status client
	globalStatus = mirror.NewStatusClient(logger)
	if globalCfg.Mirrorlist.StatusURL != "" {
		globalStatus.SetStatusURL(globalCfg.Mirrorlist.StatusURL)
	}
	globalStatus.SetLocalMirrorlist(globalCfg.Mirrorlist.Path)

	// Initialize runner and installer for the ranking tool
	globalRunner = reflector.NewRunner(logger)
	installer := reflector.NewInstaller(logger)

	// Initialize apply engine
	globalEngine = engine.NewManager(globalRunner, installer, globalStatus, globalStore, globalCfg.Mirrorlist.Path, logger)
	globalEngine.SetProbeFallback(globalCfg.Mirrorlist.ProbeFallback)

	logger.Info("components initialized successfully")
	return nil
}

// shouldSkipComponentInit checks if a command should skip component initialization
func shouldSkipComponentInit(cmdName string) bool {
	skipInitCmds := map[string]bool{
		"help":    true,
		"version": true,
		"config":  true,
	}
	return skipInitCmds[cmdName]
}

// closeStore closes the global store connection
func closeStore() {
	if globalStore != nil {
		if err := globalStore.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pacmirror",
		Short: "Generate a ranked pacman mirrorlist with automatic fallback",
		Long: `pacmirror produces a pacman mirrorlist by delegating ranking to the
external reflector utility. When reflector is missing, fails, or times out,
pacmirror falls back to writing the manually selected mirror regions, so the
target always ends up with a usable mirrorlist.`,
		Example: `  pacmirror apply
  pacmirror apply --dry-run
  pacmirror validate
  pacmirror countries
  pacmirror status --limit 5`,
		Version: "0.1.0",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Initialize logging
			setupLogging()

			// Skip config loading for commands that don't need it
			if shouldSkipConfig(cmd.Name()) {
				return nil
			}

			// Load config
			if cfgPath == "" {
				var err error
				cfgPath, err = config.FindConfigFile()
				if err != nil && cmd.Name() != "config" {
					logger.Warn("config file not found, using defaults", "error", err)
				}
			}

			if cfgPath != "" {
				var err error
				globalCfg, err = config.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
			} else {
				globalCfg = config.DefaultConfig()
			}

			// Override with command-line flags if provided
			if targetPath != "" {
				globalCfg.Mirrorlist.Path = targetPath
			}

			if !quiet {
				logger.Debug("config loaded", "path", cfgPath, "target", globalCfg.Mirrorlist.Path)
			}

			// Initialize components after config is loaded
			if !shouldSkipComponentInit(cmd.Name()) {
				if err := initializeComponents(); err != nil {
					return fmt.Errorf("failed to initialize components: %w", err)
				}
			}

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeStore()
		},
	}

	// Add persistent flags
	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (auto-discovered if not specified)")
	cmd.PersistentFlags().StringVar(&targetPath, "target", "", "override mirrorlist target path")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")
	cmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	// Add subcommands
	cmd.AddCommand(
		newApplyCmd(),
		newValidateCmd(),
		newStatusCmd(),
		newCountriesCmd(),
		newConfigCmd(),
	)

	return cmd
}

// setupLogging initializes the slog logger based on flags
func setupLogging() {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if strings.ToLower(logFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// shouldSkipConfig checks if a command should skip config loading
func shouldSkipConfig(cmdName string) bool {
	skipConfigCmds := map[string]bool{
		"help":    true,
		"version": true,
	}
	return skipConfigCmds[cmdName]
}
