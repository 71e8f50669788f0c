// Package mapper builds the leveled shared-officer graph around a root company.
package mapper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ajitpratap0/groupmapper/internal/config"
	"github.com/ajitpratap0/groupmapper/internal/metrics"
	"github.com/ajitpratap0/groupmapper/internal/models"
	"github.com/ajitpratap0/groupmapper/internal/officers"
	"github.com/ajitpratap0/groupmapper/internal/registry"
)

// ErrInvalidOptions is returned for out-of-range traversal bounds.
var ErrInvalidOptions = errors.New("invalid mapping options")

var errInterrupted = errors.New("mapping interrupted")

// Options bounds one mapping run.
type Options struct {
	MaxDepth             int
	MaxCompaniesPerLevel int
	// Timeout bounds the whole run; zero means no limit beyond ctx.
	Timeout time.Duration
	// RunID tags log lines. Generated when empty.
	RunID string
}

// DefaultOptions returns the configured defaults.
func DefaultOptions() Options {
	return Options{
		MaxDepth:             config.DefaultMaxDepth,
		MaxCompaniesPerLevel: config.DefaultMaxCompaniesPerLevel,
		Timeout:              config.DefaultMapTimeout,
	}
}

// OptionsFromConfig reads traversal bounds from the mapping configuration.
func OptionsFromConfig(cfg config.MappingConfig) Options {
	return Options{
		MaxDepth:             cfg.MaxDepth,
		MaxCompaniesPerLevel: cfg.MaxCompaniesPerLevel,
		Timeout:              cfg.Timeout,
	}
}

func (o Options) validate() error {
	if o.MaxDepth < 0 {
		return fmt.Errorf("%w: max depth %d", ErrInvalidOptions, o.MaxDepth)
	}
	if o.MaxCompaniesPerLevel < 1 {
		return fmt.Errorf("%w: max companies per level %d", ErrInvalidOptions, o.MaxCompaniesPerLevel)
	}
	if o.Timeout < 0 {
		return fmt.Errorf("%w: timeout %s", ErrInvalidOptions, o.Timeout)
	}
	return nil
}

// Builder runs bounded breadth-first expansion over the shares-an-officer
// relation. A Builder is safe for concurrent use; each Build owns its state.
type Builder struct {
	index  *officers.Index
	logger *slog.Logger
}

// NewBuilder creates a Builder over index.
func NewBuilder(index *officers.Index, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{index: index, logger: logger}
}

// Build maps the companies connected to root by shared officers, level by
// level up to opts.MaxDepth. Each company appears once, at its shortest hop
// distance; every further edge to it is kept as evidence or as a cross link.
//
// A rejected credential aborts the run with a nil result. Timeout and
// cancellation end the run early with the levels built so far and a
// truncation entry. Other registry failures become warnings.
func (b *Builder) Build(ctx context.Context, root models.Company, opts Options) (*models.MappingResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if root.ID == "" {
		return nil, fmt.Errorf("%w: root company has no id", ErrInvalidOptions)
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	logger := b.logger.With("run_id", opts.RunID, "root", root.ID)
	logger.Info("mapping started", "max_depth", opts.MaxDepth, "max_per_level", opts.MaxCompaniesPerLevel)
	start := time.Now()

	r := newRun(b.index.Scoped(), opts, root, logger)
	var interruption *models.Truncation
	for level := 1; level <= opts.MaxDepth; level++ {
		if runCtx.Err() != nil {
			interruption = interruptedAt(runCtx, level)
			break
		}
		admitted, err := r.expand(runCtx, level)
		if errors.Is(err, errInterrupted) {
			interruption = interruptedAt(runCtx, level)
			break
		}
		if err != nil {
			metrics.MappingRuns.WithLabelValues("aborted").Inc()
			logger.Error("mapping aborted", "level", level, "error", err)
			return nil, fmt.Errorf("mapping %s: %w", root.ID, err)
		}
		logger.Debug("level expanded", "level", level, "admitted", admitted)
		if admitted == 0 {
			break
		}
	}

	result := r.result(interruption)
	metrics.MappingRuns.WithLabelValues(string(result.State)).Inc()
	metrics.MappingCompanies.Observe(float64(len(result.Levels)))
	logger.Info("mapping finished",
		"state", result.State,
		"companies", len(result.Levels),
		"warnings", len(result.Warnings),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return result, nil
}

func interruptedAt(ctx context.Context, level int) *models.Truncation {
	reason := models.TruncatedCancelled
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = models.TruncatedTimeout
	}
	return &models.Truncation{Level: level, Reason: reason}
}

type node struct {
	company models.Company
	level   int
	conns   []models.Connection
	keys    map[string]bool
}

// run is the state of one Build: an arena of nodes indexed by company id,
// with levels as ordered groups of arena indexes.
type run struct {
	index  *officers.Index
	opts   Options
	logger *slog.Logger

	arena   []node
	byID    map[string]int
	levels  [][]int
	dropped map[string]bool
	capped  map[int]int

	crossLinks []models.Connection
	crossKeys  map[string]bool
	warnings   []models.Warning
}

func newRun(index *officers.Index, opts Options, root models.Company, logger *slog.Logger) *run {
	r := &run{
		index:     index,
		opts:      opts,
		logger:    logger,
		byID:      make(map[string]int),
		dropped:   make(map[string]bool),
		capped:    make(map[int]int),
		crossKeys: make(map[string]bool),
	}
	r.arena = append(r.arena, node{company: root, level: 0})
	r.byID[root.ID] = 0
	r.levels = append(r.levels, []int{0})
	return r
}

// expand builds one level from the previous level's companies and returns
// how many companies it admitted.
func (r *run) expand(ctx context.Context, level int) (int, error) {
	r.levels = append(r.levels, nil)
	for _, idx := range r.levels[level-1] {
		if ctx.Err() != nil {
			return len(r.levels[level]), errInterrupted
		}
		from := r.arena[idx].company

		roster, err := r.index.OfficersOf(ctx, from.ID)
		if err != nil {
			if err := r.check(ctx, err, from.ID, level, "officers", ""); err != nil {
				return len(r.levels[level]), err
			}
			continue
		}

		for _, o := range r.index.DrivingOfficers(roster) {
			if ctx.Err() != nil {
				return len(r.levels[level]), errInterrupted
			}
			candidates, skipped, err := r.index.CompaniesSharingOfficer(ctx, o, from.ID)
			if err != nil {
				if err := r.check(ctx, err, from.ID, level, "companies_sharing_officer", o.Name); err != nil {
					return len(r.levels[level]), err
				}
				continue
			}
			for _, s := range skipped {
				r.warn(s.CompanyID, level, "officers", s.Err, "")
			}
			for _, d := range candidates {
				r.link(level, from, d, o)
			}
		}
	}
	return len(r.levels[level]), nil
}

// check classifies a registry failure: fatal errors abort, failures caused by
// the run's context interrupt, everything else is recorded as a warning.
func (r *run) check(ctx context.Context, err error, companyID string, level int, op, officer string) error {
	switch {
	case registry.IsFatal(err):
		return err
	case ctx.Err() != nil:
		return errInterrupted
	}
	r.warn(companyID, level, op, err, officer)
	return nil
}

func (r *run) warn(companyID string, level int, op string, err error, officer string) {
	msg := err.Error()
	if officer != "" {
		msg = fmt.Sprintf("officer %s: %s", officer, msg)
	}
	r.logger.Warn("registry lookup failed, continuing", "company", companyID, "level", level, "op", op, "error", err)
	r.warnings = append(r.warnings, models.Warning{CompanyID: companyID, Level: level, Op: op, Message: msg})
}

// link records the edge from -> d discovered while building level.
func (r *run) link(level int, from, d models.Company, o models.Officer) {
	if d.ID == "" || d.ID == from.ID {
		return
	}
	conn := models.NewConnection(from.ID, d.ID, o)
	officerKey := r.index.Key(o)

	if idx, ok := r.byID[d.ID]; ok {
		n := &r.arena[idx]
		n.company = n.company.Merge(d)
		if n.level == level {
			key := from.ID + "|" + officerKey
			if !n.keys[key] {
				n.keys[key] = true
				n.conns = append(n.conns, conn)
			}
			return
		}
		r.crossLink(conn, officerKey)
		return
	}

	if r.dropped[d.ID] {
		return
	}
	if len(r.levels[level]) >= r.opts.MaxCompaniesPerLevel {
		r.dropped[d.ID] = true
		r.capped[level]++
		return
	}

	r.byID[d.ID] = len(r.arena)
	r.levels[level] = append(r.levels[level], len(r.arena))
	r.arena = append(r.arena, node{
		company: d,
		level:   level,
		conns:   []models.Connection{conn},
		keys:    map[string]bool{from.ID + "|" + officerKey: true},
	})
}

// crossLink stores an edge between two already placed companies once per
// unordered pair and officer.
func (r *run) crossLink(conn models.Connection, officerKey string) {
	a, b := conn.FromCompanyID, conn.ToCompanyID
	if b < a {
		a, b = b, a
	}
	key := a + "|" + b + "|" + officerKey
	if r.crossKeys[key] {
		return
	}
	r.crossKeys[key] = true
	r.crossLinks = append(r.crossLinks, conn)
}

func (r *run) result(interruption *models.Truncation) *models.MappingResult {
	res := &models.MappingResult{
		Root:       r.arena[0].company,
		Levels:     make([]models.LevelEntry, 0, len(r.arena)),
		CrossLinks: r.crossLinks,
		Warnings:   r.warnings,
		State:      models.RunCompleted,
	}
	for _, n := range r.arena {
		conns := n.conns
		if conns == nil {
			conns = []models.Connection{}
		}
		res.Levels = append(res.Levels, models.LevelEntry{Company: n.company, Level: n.level, Connections: conns})
	}
	for level := 1; level <= r.opts.MaxDepth; level++ {
		if n := r.capped[level]; n > 0 {
			res.Truncations = append(res.Truncations, models.Truncation{Level: level, Reason: models.TruncatedPerLevelCap, Dropped: n})
		}
	}
	if interruption != nil {
		res.Truncations = append(res.Truncations, *interruption)
	}
	if len(res.Truncations) > 0 {
		res.Truncated = true
		res.State = models.RunTruncated
	}
	return res
}
