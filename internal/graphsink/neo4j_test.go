package graphsink

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/groupmapper/internal/config"
	"github.com/ajitpratap0/groupmapper/internal/models"
)

type recordingRunner struct {
	stmts  []Statement
	err    error
	closed bool
}

func (r *recordingRunner) run(_ context.Context, stmts []Statement) error {
	r.stmts = append(r.stmts, stmts...)
	return r.err
}

func (r *recordingRunner) close(context.Context) error {
	r.closed = true
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func sampleResult() *models.MappingResult {
	jane := models.Officer{Name: "Jane Doe", Role: models.RoleDirector}
	return &models.MappingResult{
		Root: models.Company{ID: "A1", Name: "Acme Ltd"},
		Levels: []models.LevelEntry{
			{Company: models.Company{ID: "A1", Name: "Acme Ltd"}},
			{Company: models.Company{ID: "A2", Name: "Acme Holdings"}, Level: 1,
				Connections: []models.Connection{models.NewConnection("A1", "A2", jane)}},
			{Company: models.Company{ID: "A3", Name: "Acme Services"}, Level: 1,
				Connections: []models.Connection{models.NewConnection("A1", "A3", jane)}},
		},
		CrossLinks: []models.Connection{models.NewConnection("A2", "A3", jane)},
	}
}

func TestStatements(t *testing.T) {
	stmts := Statements(sampleResult())
	require.Len(t, stmts, 2)

	companies := stmts[0].Params["companies"].([]any)
	require.Len(t, companies, 3)
	a2 := companies[1].(map[string]any)
	assert.Equal(t, "A2", a2["id"])
	assert.Equal(t, int64(1), a2["level"])
	assert.Contains(t, stmts[0].Query, "MERGE (n:Company {id: c.id})")

	links := stmts[1].Params["links"].([]any)
	require.Len(t, links, 3)
	first, last := links[0].(map[string]any), links[2].(map[string]any)
	assert.Equal(t, "A1", first["from"])
	assert.Equal(t, "director", first["role"])
	assert.Equal(t, false, first["cross_link"])
	assert.Equal(t, true, last["cross_link"])
	assert.Contains(t, stmts[1].Query, "SHARES_OFFICER")
}

func TestStatements_RootOnly(t *testing.T) {
	res := &models.MappingResult{
		Root:   models.Company{ID: "A1"},
		Levels: []models.LevelEntry{{Company: models.Company{ID: "A1"}}},
	}
	assert.Len(t, Statements(res), 1)
}

func TestSink_Export(t *testing.T) {
	r := &recordingRunner{}
	s := newSink(r, testLogger())

	require.NoError(t, s.Export(context.Background(), sampleResult()))
	assert.Len(t, r.stmts, 2)

	require.NoError(t, s.Close(context.Background()))
	assert.True(t, r.closed)
}

func TestSink_ExportError(t *testing.T) {
	s := newSink(&recordingRunner{err: errors.New("connection reset")}, testLogger())
	err := s.Export(context.Background(), sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exporting A1")
}

func TestOpen_NotConfigured(t *testing.T) {
	_, err := Open(context.Background(), config.Neo4jConfig{}, testLogger())
	assert.ErrorIs(t, err, ErrNotConfigured)
}
