package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/groupmapper/internal/export"
	"github.com/ajitpratap0/groupmapper/internal/graphsink"
	"github.com/ajitpratap0/groupmapper/internal/mapper"
	"github.com/ajitpratap0/groupmapper/internal/models"
	"github.com/ajitpratap0/groupmapper/internal/report"
)

func mapCmd() *cobra.Command {
	var (
		companyID    string
		jurisdiction string
		source       string
		depth        int
		perLevel     int
		timeout      time.Duration
		format       string
		output       string
		toNeo4j      bool
	)

	cmd := &cobra.Command{
		Use:   "map [company name]",
		Short: "Map the group connected to a company through shared officers",
		Long: `Resolves the root company (by --id, or by name) and walks outward through
shared officers one level at a time. The result is written as an xlsx
workbook by default; use --format csv or json, and -o - for stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			name := strings.TrimSpace(strings.Join(args, " "))
			if companyID == "" && name == "" {
				return fmt.Errorf("map: pass a company name or --id")
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return fmt.Errorf("map: %w", err)
			}

			svc, err := newService(logger)
			if err != nil {
				return fmt.Errorf("map: %w", err)
			}

			runID := uuid.NewString()
			res, err := svc.Map(ctx, mapper.Request{
				Source:               source,
				CompanyID:            companyID,
				Name:                 name,
				Jurisdiction:         jurisdiction,
				MaxDepth:             depth,
				MaxCompaniesPerLevel: perLevel,
				Timeout:              timeout,
				RunID:                runID,
			})
			if err != nil {
				var amb *mapper.AmbiguousMatchError
				if errors.As(err, &amb) {
					printCandidates(os.Stderr, amb)
				}
				return fmt.Errorf("map: %w", err)
			}

			rep := report.Assemble(res)
			if output != "-" {
				printTree(os.Stdout, rep)
			}
			if err := writeReport(rep, f, output); err != nil {
				return fmt.Errorf("map: %w", err)
			}

			if toNeo4j {
				if err := exportGraph(ctx, res); err != nil {
					return fmt.Errorf("map: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&companyID, "id", "", "registry id of the root company")
	cmd.Flags().StringVar(&jurisdiction, "jurisdiction", "", "jurisdiction used to resolve the name")
	cmd.Flags().StringVar(&source, "source", "", "registry source (default: first configured)")
	cmd.Flags().IntVar(&depth, "depth", 0, "officer hops from the root (default: mapping.max_depth)")
	cmd.Flags().IntVar(&perLevel, "per-level", 0, "max new companies per level (default: mapping.max_companies_per_level)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "time budget for the run (default: mapping.timeout)")
	cmd.Flags().StringVar(&format, "format", string(export.FormatXLSX), "output format (xlsx|csv|json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: <company>_structure.<format>)")
	cmd.Flags().BoolVar(&toNeo4j, "neo4j", false, "also write the graph to the configured Neo4j database")
	return cmd
}

func writeReport(rep report.Report, f export.Format, output string) error {
	if output == "-" {
		return export.Write(os.Stdout, f, rep)
	}
	if output == "" {
		output = export.Filename(rep, f)
	}

	file, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := export.Write(file, f, rep); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %d companies to %s\n", len(rep.Rows), output)
	return nil
}

func exportGraph(ctx context.Context, res *models.MappingResult) error {
	sink, err := graphsink.Open(ctx, cfg.Neo4j, newLogger())
	if err != nil {
		return err
	}
	defer func() { _ = sink.Close(context.WithoutCancel(ctx)) }()
	return sink.Export(ctx, res)
}

// printTree renders the rows as an indented outline followed by the run state.
func printTree(w io.Writer, rep report.Report) {
	for _, r := range rep.Rows {
		line := fmt.Sprintf("%d %s", r.Level, r.DisplayName)
		if r.Jurisdiction != "" {
			line += fmt.Sprintf(" [%s %s]", strings.ToUpper(r.Jurisdiction), r.CompanyID)
		}
		if r.Level > 0 {
			line += "  <- " + r.Evidence
		}
		fmt.Fprintln(w, line)
	}

	sum := rep.Summary
	fmt.Fprintf(w, "\n%d companies, %d cross links, state %s\n", sum.TotalCompanies, sum.CrossLinks, sum.State)
	for _, t := range sum.Truncations {
		fmt.Fprintf(w, "  truncated at level %d: %s", t.Level, t.Reason)
		if t.Dropped > 0 {
			fmt.Fprintf(w, " (%d dropped)", t.Dropped)
		}
		fmt.Fprintln(w)
	}
	if sum.Warnings > 0 {
		fmt.Fprintf(w, "  %d registry lookups failed and were skipped\n", sum.Warnings)
	}
}

func printCandidates(w io.Writer, amb *mapper.AmbiguousMatchError) {
	fmt.Fprintf(w, "%q matches %d companies; rerun with --id:\n", amb.Query, len(amb.Candidates))
	for _, c := range amb.Candidates {
		fmt.Fprintf(w, "  %-12s %s [%s] %s\n", c.ID, c.Name, strings.ToUpper(c.Jurisdiction), orDash(c.Status))
	}
}
