package mapper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ajitpratap0/groupmapper/internal/models"
	"github.com/ajitpratap0/groupmapper/internal/officers"
	"github.com/ajitpratap0/groupmapper/internal/registry"
)

// Request describes one mapping run. Zero bounds fall back to the service
// defaults.
type Request struct {
	Source               string
	CompanyID            string
	Name                 string
	Jurisdiction         string
	MaxDepth             int
	MaxCompaniesPerLevel int
	Timeout              time.Duration
	RunID                string
}

// Service resolves companies and runs mappings against a catalog of sources.
// It is shared by the CLI, the HTTP API and the MCP server.
type Service struct {
	catalog   *registry.Catalog
	indexOpts officers.Options
	defaults  Options
	logger    *slog.Logger
}

// NewService creates a Service. indexOpts configures the officer index built
// for each source; defaults bounds runs that do not override them.
func NewService(catalog *registry.Catalog, indexOpts officers.Options, defaults Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if indexOpts.Logger == nil {
		indexOpts.Logger = logger
	}
	return &Service{catalog: catalog, indexOpts: indexOpts, defaults: defaults, logger: logger}
}

// Sources lists the configured source names, default first.
func (s *Service) Sources() []string {
	return s.catalog.Names()
}

// Search finds companies by name on a source.
func (s *Service) Search(ctx context.Context, source, query, jurisdiction string) ([]models.Company, error) {
	src, err := s.catalog.Get(source)
	if err != nil {
		return nil, err
	}
	results, err := src.Search(ctx, query, jurisdiction)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}
	return results, nil
}

// variantSuffixes are appended to a name by SearchVariants.
var variantSuffixes = []string{"", " Ltd", " Limited"}

// SearchVariants searches for name and its common legal-suffix variants and
// returns the distinct companies in first-seen order. It finds same-named
// group members that share no officer with the root. A failed variant is
// logged and skipped; the search fails only when every variant does or the
// key is rejected.
func (s *Service) SearchVariants(ctx context.Context, source, name, jurisdiction string) ([]models.Company, error) {
	src, err := s.catalog.Get(source)
	if err != nil {
		return nil, err
	}
	base := strings.TrimSpace(name)
	var (
		all     []models.Company
		lastErr error
		failed  int
	)
	for _, suffix := range variantSuffixes {
		term := base + suffix
		results, err := src.Search(ctx, term, jurisdiction)
		if err != nil {
			if registry.IsFatal(err) || ctx.Err() != nil {
				return nil, fmt.Errorf("searching %q: %w", term, err)
			}
			s.logger.Warn("variant search failed, continuing", "term", term, "error", err)
			lastErr = err
			failed++
			continue
		}
		all = append(all, results...)
	}
	if failed == len(variantSuffixes) {
		return nil, fmt.Errorf("searching variants of %q: %w", base, lastErr)
	}
	return uniqueByID(all), nil
}

// Officers lists the officers of a company on a source.
func (s *Service) Officers(ctx context.Context, source, companyID string) ([]models.Officer, error) {
	src, err := s.catalog.Get(source)
	if err != nil {
		return nil, err
	}
	roster, err := officers.New(src, s.indexOpts).OfficersOf(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing officers of %s: %w", companyID, err)
	}
	return roster, nil
}

// Map resolves the root company and builds its shared-officer map.
func (s *Service) Map(ctx context.Context, req Request) (*models.MappingResult, error) {
	src, err := s.catalog.Get(req.Source)
	if err != nil {
		return nil, err
	}
	root, err := Locate(ctx, src, req.CompanyID, req.Name, req.Jurisdiction)
	if err != nil {
		return nil, err
	}

	opts := s.defaults
	if req.MaxDepth > 0 {
		opts.MaxDepth = req.MaxDepth
	}
	if req.MaxCompaniesPerLevel > 0 {
		opts.MaxCompaniesPerLevel = req.MaxCompaniesPerLevel
	}
	if req.Timeout > 0 {
		opts.Timeout = req.Timeout
	}
	opts.RunID = req.RunID

	b := NewBuilder(officers.New(src, s.indexOpts), s.logger.With("source", src.Name()))
	return b.Build(ctx, root, opts)
}
