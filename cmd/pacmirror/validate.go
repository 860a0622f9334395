package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/pacmirror/pacmirror/internal/mirror"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the reflector configuration",
		Long: `Validate the configured reflector settings without generating anything.
Checks protocol and sort tokens, age and latest bounds, and country names
against the mirror status country list.`,
		Example: `  pacmirror validate
  pacmirror validate --config /etc/pacmirror/pacmirror.yaml`,
		RunE: validateRun,
	}

	return cmd
}

func validateRun(cmd *cobra.Command, args []string) error {
	log := slog.Default()

	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	mirrorCfg := globalCfg.MirrorConfig()

	if !mirrorCfg.Reflector.Enabled {
		fmt.Println("Reflector is disabled; manual regions will be used:")
		for _, name := range mirrorCfg.RegionNames() {
			fmt.Printf("  - %s\n", name)
		}
		return nil
	}

	countries, err := globalStatus.Countries(cmd.Context())
	if err != nil {
		log.Warn("country vocabulary unavailable, skipping country check", "error", err)
		countries = nil
	}

	validated, err := mirror.Validate(mirrorCfg.Reflector, countries)
	if err != nil {
		return err
	}

	cfg := validated.Config()

	protocols := make([]string, len(cfg.Protocols))
	for i, p := range cfg.Protocols {
		protocols[i] = string(p)
	}

	fmt.Println("Reflector configuration is valid:")
	if len(cfg.Countries) > 0 {
		fmt.Printf("  countries: %s\n", strings.Join(cfg.Countries, ", "))
	} else {
		fmt.Println("  countries: (no filter)")
	}
	fmt.Printf("  protocols: %s\n", strings.Join(protocols, ", "))
	fmt.Printf("  age:       %d hours\n", cfg.Age)
	fmt.Printf("  latest:    %d mirrors\n", cfg.Latest)
	fmt.Printf("  sort:      %s\n", cfg.Sort)

	return nil
}
