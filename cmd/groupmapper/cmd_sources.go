package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/groupmapper/internal/config"
	"github.com/ajitpratap0/groupmapper/internal/registry"
)

func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "Show the registry sources and their configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := []struct {
				name string
				sc   config.SourceConfig
			}{
				{registry.CompaniesHouseName, cfg.CompaniesHouse},
				{registry.OpenCorporatesName, cfg.OpenCorporates},
			}
			for _, r := range rows {
				state := "disabled (no API key)"
				if r.sc.Enabled() {
					state = "enabled"
				}
				fmt.Printf("%-16s %s\n", r.name, state)
				if r.sc.Enabled() {
					fmt.Printf("    key: %s | base: %s | pace: %s\n", config.MaskAPIKey(r.sc.APIKey), r.sc.BaseURL, r.sc.RateInterval)
				}
			}
			return nil
		},
	}
}
