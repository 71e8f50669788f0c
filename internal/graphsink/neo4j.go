// Package graphsink writes mapping results to Neo4j as Company nodes joined
// by SHARES_OFFICER relationships. It only ever writes.
package graphsink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ajitpratap0/groupmapper/internal/config"
	"github.com/ajitpratap0/groupmapper/internal/models"
)

// ErrNotConfigured is returned by Open when no URI is set.
var ErrNotConfigured = errors.New("neo4j is not configured")

const constraintQuery = `CREATE CONSTRAINT company_id IF NOT EXISTS FOR (c:Company) REQUIRE c.id IS UNIQUE`

const companiesQuery = `
UNWIND $companies AS c
MERGE (n:Company {id: c.id})
SET n.name = c.name,
    n.jurisdiction = c.jurisdiction,
    n.status = c.status,
    n.type = c.type,
    n.source = c.source,
    n.source_url = c.source_url,
    n.level = c.level`

const linksQuery = `
UNWIND $links AS l
MATCH (a:Company {id: l.from}), (b:Company {id: l.to})
MERGE (a)-[r:SHARES_OFFICER {officer: l.officer}]->(b)
SET r.role = l.role,
    r.evidence = l.evidence,
    r.cross_link = l.cross_link`

// Statement is one parameterized Cypher query.
type Statement struct {
	Query  string
	Params map[string]any
}

// runner executes statements in one write transaction.
type runner interface {
	run(ctx context.Context, stmts []Statement) error
	close(ctx context.Context) error
}

// Sink exports mapping results.
type Sink struct {
	r      runner
	logger *slog.Logger
}

// Open connects to Neo4j, verifies connectivity and ensures the Company id
// constraint exists.
func Open(ctx context.Context, cfg config.Neo4jConfig, logger *slog.Logger) (*Sink, error) {
	if cfg.URI == "" {
		return nil, ErrNotConfigured
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("graphsink: creating driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("graphsink: connecting to %s: %w", cfg.URI, err)
	}
	_, err = neo4j.ExecuteQuery(ctx, driver, constraintQuery, nil,
		neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(cfg.Database))
	if err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("graphsink: creating constraint: %w", err)
	}
	return newSink(&driverRunner{driver: driver, database: cfg.Database}, logger), nil
}

func newSink(r runner, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{r: r, logger: logger}
}

// Export merges res into the graph in a single write transaction.
func (s *Sink) Export(ctx context.Context, res *models.MappingResult) error {
	stmts := Statements(res)
	if err := s.r.run(ctx, stmts); err != nil {
		return fmt.Errorf("graphsink: exporting %s: %w", res.Root.ID, err)
	}
	s.logger.Info("graph exported", "root", res.Root.ID, "companies", len(res.Levels))
	return nil
}

// Close releases the driver.
func (s *Sink) Close(ctx context.Context) error {
	return s.r.close(ctx)
}

// Statements renders res as the node and relationship merges.
func Statements(res *models.MappingResult) []Statement {
	companies := make([]any, 0, len(res.Levels))
	for _, e := range res.Levels {
		c := e.Company
		companies = append(companies, map[string]any{
			"id":           c.ID,
			"name":         c.Name,
			"jurisdiction": c.Jurisdiction,
			"status":       c.Status,
			"type":         c.Type,
			"source":       c.Source,
			"source_url":   c.SourceURL,
			"level":        int64(e.Level),
		})
	}

	var links []any
	for _, e := range res.Levels {
		for _, conn := range e.Connections {
			links = append(links, linkParams(conn, false))
		}
	}
	for _, conn := range res.CrossLinks {
		links = append(links, linkParams(conn, true))
	}

	stmts := []Statement{{Query: companiesQuery, Params: map[string]any{"companies": companies}}}
	if len(links) > 0 {
		stmts = append(stmts, Statement{Query: linksQuery, Params: map[string]any{"links": links}})
	}
	return stmts
}

func linkParams(c models.Connection, cross bool) map[string]any {
	return map[string]any{
		"from":       c.FromCompanyID,
		"to":         c.ToCompanyID,
		"officer":    c.OfficerName,
		"role":       string(c.OfficerRole),
		"evidence":   c.Evidence,
		"cross_link": cross,
	}
}

type driverRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (d *driverRunner) run(ctx context.Context, stmts []Statement) error {
	session := d.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: d.database,
	})
	defer func() { _ = session.Close(ctx) }()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, st := range stmts {
			result, err := tx.Run(ctx, st.Query, st.Params)
			if err != nil {
				return nil, err
			}
			if _, err := result.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (d *driverRunner) close(ctx context.Context) error {
	return d.driver.Close(ctx)
}
