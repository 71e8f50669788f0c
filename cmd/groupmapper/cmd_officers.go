package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func officersCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "officers [company-id]",
		Short: "List the officers of a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			svc, err := newService(logger)
			if err != nil {
				return fmt.Errorf("officers: %w", err)
			}

			roster, err := svc.Officers(cmd.Context(), source, args[0])
			if err != nil {
				return fmt.Errorf("officers: %w", err)
			}

			if len(roster) == 0 {
				fmt.Println("No officers found.")
				return nil
			}
			for i := range roster {
				o := &roster[i]
				resigned := "Current"
				if o.ResignedOn != "" {
					resigned = "resigned " + o.ResignedOn
				}
				fmt.Printf("%-40s %-22s appointed %-10s %s\n", o.Name, o.Role.Title(), orDash(o.AppointedOn), resigned)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "registry source (default: first configured)")
	return cmd
}
