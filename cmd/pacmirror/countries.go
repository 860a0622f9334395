package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newCountriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "countries",
		Short: "List countries accepted by the reflector configuration",
		Long: `List the country names known from the mirror status data. These are the
values accepted in the reflector countries setting.`,
		Example: `  pacmirror countries`,
		RunE:    countriesRun,
	}

	return cmd
}

func countriesRun(cmd *cobra.Command, args []string) error {
	log := slog.Default()

	if globalStatus == nil {
		return fmt.Errorf("status client not initialized")
	}

	countries, err := globalStatus.Countries(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load countries: %w", err)
	}

	if len(countries) == 0 {
		log.Warn("no countries found in mirror status data")
		fmt.Println("No countries available")
		return nil
	}

	fmt.Printf("Available countries (%d):\n", len(countries))
	for _, c := range countries {
		fmt.Printf("  %s\n", c)
	}

	return nil
}
