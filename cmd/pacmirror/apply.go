package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pacmirror/pacmirror/internal/engine"
	"github.com/pacmirror/pacmirror/internal/mirror"
	"github.com/pacmirror/pacmirror/internal/reflector"
	"github.com/spf13/cobra"
)

var (
	applyDryRun  bool
	applyTimeout int
)

func newApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Generate the mirrorlist, ranked if possible",
		Long: `Generate the pacman mirrorlist from the configured mirror selection.

The apply command will:
  1. Validate the reflector configuration against the known country list
  2. Run reflector to write a ranked mirrorlist (installing it if missing)
  3. Fall back to the manually selected regions if ranking is unavailable
  4. Record the outcome in the run history

With --dry-run, the reflector invocation is printed without executing
anything and no mirrorlist is written.`,
		Example: `  pacmirror apply
  pacmirror apply --dry-run
  pacmirror apply --timeout 60
  pacmirror apply --target /tmp/mirrorlist`,
		RunE: applyRun,
	}

	cmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "print the reflector command without executing")
	cmd.Flags().IntVar(&applyTimeout, "timeout", 0, "ranking timeout in seconds (default 30)")

	return cmd
}

func applyRun(cmd *cobra.Command, args []string) error {
	log := slog.Default()

	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	if globalEngine == nil {
		return fmt.Errorf("apply engine not initialized")
	}

	mirrorCfg := globalCfg.MirrorConfig()

	if applyDryRun {
		return applyDryRunShow(cmd, mirrorCfg)
	}

	if applyTimeout > 0 {
		globalRunner.SetTimeout(time.Duration(applyTimeout) * time.Second)
	}

	result, err := globalEngine.Apply(cmd.Context(), mirrorCfg)
	if err != nil {
		return fmt.Errorf("apply failed: %w", err)
	}

	log.Info("apply completed", "path_taken", result.Path, "mirrorlist", result.MirrorlistPath)

	switch result.Path {
	case engine.PathRanked:
		fmt.Printf("Mirrorlist ranked by reflector: %s\n", result.MirrorlistPath)
	case engine.PathFallback:
		fmt.Printf("Mirrorlist written from manual regions: %s\n", result.MirrorlistPath)
		if result.Diagnostic != "" {
			fmt.Printf("  (%s)\n", result.Diagnostic)
		}
	}

	return nil
}

// applyDryRunShow validates the configuration and prints the exact reflector
// invocation that apply would run.
func applyDryRunShow(cmd *cobra.Command, mirrorCfg mirror.Config) error {
	if !mirrorCfg.Reflector.Enabled {
		fmt.Println("Reflector disabled: apply would write the manual region list")
		fmt.Printf("  regions: %v\n", mirrorCfg.RegionNames())
		return nil
	}

	countries, err := globalStatus.Countries(cmd.Context())
	if err != nil {
		slog.Default().Warn("country vocabulary unavailable, skipping country check", "error", err)
		countries = nil
	}

	validated, err := mirror.Validate(mirrorCfg.Reflector, countries)
	if err != nil {
		return err
	}

	tokens := reflector.BuildArgs(validated, globalCfg.Mirrorlist.Path)
	fmt.Println("Reflector command that would be executed:")
	fmt.Printf("  %s\n", reflector.CommandString(reflector.DefaultBinary, tokens))

	return nil
}
