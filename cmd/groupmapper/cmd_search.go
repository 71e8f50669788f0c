package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/groupmapper/internal/report"
)

func searchCmd() *cobra.Command {
	var (
		jurisdiction string
		source       string
		limit        int
		variants     bool
	)

	cmd := &cobra.Command{
		Use:   "search [name]",
		Short: "Search the registry for companies by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			svc, err := newService(logger)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			query := strings.Join(args, " ")
			search := svc.Search
			if variants {
				search = svc.SearchVariants
			}
			results, err := search(cmd.Context(), source, query, jurisdiction)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			if len(results) == 0 {
				fmt.Println("No companies found.")
				return nil
			}
			for i := range results {
				if limit > 0 && i >= limit {
					fmt.Printf("... %d more\n", len(results)-limit)
					break
				}
				c := &results[i]
				if variants {
					fmt.Printf("[%d] %s (%s)\n", i+1, c.Name, report.Categorize(*c, query).Title())
				} else {
					fmt.Printf("[%d] %s\n", i+1, c.Name)
				}
				fmt.Printf("    ID: %s | Jurisdiction: %s | Status: %s\n", c.ID, strings.ToUpper(c.Jurisdiction), orDash(c.Status))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&jurisdiction, "jurisdiction", "", "restrict to a jurisdiction code (e.g. gb, us_de)")
	cmd.Flags().StringVar(&source, "source", "", "registry source (default: first configured)")
	cmd.Flags().IntVar(&limit, "limit", 20, "max results to print (0 = all)")
	cmd.Flags().BoolVar(&variants, "variants", false, "also search legal-suffix variants and label each result by name category")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
