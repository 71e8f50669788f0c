package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/groupmapper/internal/config"
	"github.com/ajitpratap0/groupmapper/internal/mapper"
	"github.com/ajitpratap0/groupmapper/internal/officers"
	"github.com/ajitpratap0/groupmapper/internal/ratelimit"
	"github.com/ajitpratap0/groupmapper/internal/registry"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "groupmapper",
		Short: "Map corporate groups through shared officers",
		Long: "groupmapper starts from one company in a public registry and finds the companies " +
			"connected to it through shared directors and other officers, level by level.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		searchCmd(),
		officersCmd(),
		mapCmd(),
		sourcesCmd(),
		serveCmd(),
		mcpCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newService wires the configured registry sources into a mapping service.
// One limiter pool per process keeps every command within the registry pace.
func newService(logger *slog.Logger) (*mapper.Service, error) {
	catalog := registry.FromConfig(cfg, ratelimit.NewPool(nil), &http.Client{Timeout: 30 * time.Second}, logger)
	if catalog.Len() == 0 {
		return nil, fmt.Errorf("no registry source configured: set COMPANIES_HOUSE_API_KEY or OPENCORPORATES_API_KEY")
	}

	matcher, err := officers.MatcherFor(cfg.Mapping.MatchStrategy)
	if err != nil {
		return nil, err
	}
	indexOpts := officers.Options{
		Policy:        officers.PolicyFromConfig(cfg.Mapping),
		Matcher:       matcher,
		MaxCandidates: cfg.Mapping.MaxCandidatesPerOfficer,
		Logger:        logger,
	}
	return mapper.NewService(catalog, indexOpts, mapper.OptionsFromConfig(cfg.Mapping), logger), nil
}
