package mapper

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/groupmapper/internal/models"
	"github.com/ajitpratap0/groupmapper/internal/officers"
	"github.com/ajitpratap0/groupmapper/internal/registry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func director(name string) models.Officer {
	return models.Officer{Name: name, Role: models.RoleDirector}
}

func company(id, name string) models.Company {
	return models.Company{ID: id, Name: name, Jurisdiction: "gb"}
}

// acmeGroup: A1 -Jane Doe- {A2, A3}; A2 -Bob Lee- A4.
func acmeGroup() *registry.MockSource {
	m := registry.NewMockSource("mock")
	m.AddCompany(company("A1", "Acme Ltd"), director("Jane Doe"))
	m.AddCompany(company("A2", "Acme Holdings"), director("Jane Doe"), director("Bob Lee"))
	m.AddCompany(company("A3", "Acme Services"), director("Jane Doe"))
	m.AddCompany(company("A4", "Global Shelf Co"), director("Bob Lee"))
	return m
}

func newBuilder(src registry.Source, policy officers.RolePolicy) *Builder {
	idx := officers.New(src, officers.Options{Policy: policy, Logger: testLogger()})
	return NewBuilder(idx, testLogger())
}

func opts(depth, perLevel int) Options {
	return Options{MaxDepth: depth, MaxCompaniesPerLevel: perLevel, Timeout: time.Minute}
}

func levelOf(t *testing.T, r *models.MappingResult, id string) models.LevelEntry {
	t.Helper()
	e, ok := r.Entry(id)
	require.True(t, ok, "company %s missing from result", id)
	return e
}

func assertNoDuplicates(t *testing.T, r *models.MappingResult) {
	t.Helper()
	seen := map[string]bool{}
	for _, e := range r.Levels {
		assert.False(t, seen[e.Company.ID], "company %s listed twice", e.Company.ID)
		seen[e.Company.ID] = true
		if e.Level == 0 {
			assert.Empty(t, e.Connections)
		} else {
			assert.NotEmpty(t, e.Connections, "company %s has no evidence", e.Company.ID)
		}
	}
}

func TestBuild_AcmeScenario(t *testing.T) {
	sources := map[string]registry.Source{
		"confirm by roster": acmeGroup(),
		"reverse lookup":    acmeGroup().WithReverseLookup(),
	}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			b := newBuilder(src, officers.DefaultRolePolicy())
			res, err := b.Build(context.Background(), company("A1", "Acme Ltd"), opts(2, 20))
			require.NoError(t, err)

			assert.Equal(t, models.RunCompleted, res.State)
			assert.False(t, res.Truncated)
			assert.Empty(t, res.Warnings)
			require.Len(t, res.Levels, 4)
			assertNoDuplicates(t, res)

			assert.Equal(t, 0, levelOf(t, res, "A1").Level)
			for _, id := range []string{"A2", "A3"} {
				e := levelOf(t, res, id)
				assert.Equal(t, 1, e.Level)
				require.Len(t, e.Connections, 1)
				assert.Equal(t, "A1", e.Connections[0].FromCompanyID)
				assert.Equal(t, "Jane Doe", e.Connections[0].OfficerName)
				assert.Equal(t, "Shared officer: Jane Doe (Director)", e.Connections[0].Evidence)
			}

			a4 := levelOf(t, res, "A4")
			assert.Equal(t, 2, a4.Level)
			require.Len(t, a4.Connections, 1)
			assert.Equal(t, "A2", a4.Connections[0].FromCompanyID)
			assert.Equal(t, "Bob Lee", a4.Connections[0].OfficerName)

			// A2-A1, A2-A3 and A3-A1 via Jane Doe, each stored once.
			assert.Len(t, res.CrossLinks, 3)
		})
	}
}

func TestBuild_LevelIsShortestDistance(t *testing.T) {
	m := registry.NewMockSource("mock")
	m.AddCompany(company("R", "Root"), director("Xavier"), director("Yolanda"))
	m.AddCompany(company("C", "Via C"), director("Yolanda"), director("Zed"))
	m.AddCompany(company("B", "Both Ways"), director("Zed"), director("Xavier"))

	res, err := newBuilder(m, officers.DefaultRolePolicy()).Build(context.Background(), company("R", "Root"), opts(3, 20))
	require.NoError(t, err)
	assertNoDuplicates(t, res)

	assert.Equal(t, 1, levelOf(t, res, "B").Level)
	assert.Equal(t, 1, levelOf(t, res, "C").Level)
	assert.Equal(t, 1, res.MaxLevel())
}

func TestBuild_SeveralPathsBecomeSeveralConnections(t *testing.T) {
	m := registry.NewMockSource("mock")
	m.AddCompany(company("R", "Root"), director("Xavier"), director("Yolanda"))
	m.AddCompany(company("B", "B"), director("Xavier"), director("Pat"))
	m.AddCompany(company("C", "C"), director("Yolanda"), director("Quinn"))
	m.AddCompany(company("D", "D"), director("Pat"), director("Quinn"))

	res, err := newBuilder(m, officers.DefaultRolePolicy()).Build(context.Background(), company("R", "Root"), opts(2, 20))
	require.NoError(t, err)
	assertNoDuplicates(t, res)

	d := levelOf(t, res, "D")
	assert.Equal(t, 2, d.Level)
	require.Len(t, d.Connections, 2)
	assert.Equal(t, "B", d.Connections[0].FromCompanyID)
	assert.Equal(t, "Pat", d.Connections[0].OfficerName)
	assert.Equal(t, "C", d.Connections[1].FromCompanyID)
	assert.Equal(t, "Quinn", d.Connections[1].OfficerName)
}

func TestBuild_PerLevelCap(t *testing.T) {
	m := registry.NewMockSource("mock")
	m.AddCompany(company("R", "Root"), director("Hub Agent"))
	for _, id := range []string{"H1", "H2", "H3", "H4", "H5"} {
		m.AddCompany(company(id, "Shelf "+id), director("Hub Agent"))
	}

	res, err := newBuilder(m.WithReverseLookup(), officers.DefaultRolePolicy()).Build(context.Background(), company("R", "Root"), opts(2, 2))
	require.NoError(t, err)

	require.Len(t, res.Levels, 3)
	levelOf(t, res, "H1")
	levelOf(t, res, "H2")
	for _, id := range []string{"H3", "H4", "H5"} {
		_, ok := res.Entry(id)
		assert.False(t, ok, "%s must have been dropped", id)
	}
	assert.True(t, res.Truncated)
	assert.Equal(t, models.RunTruncated, res.State)
	assert.Equal(t, []models.Truncation{{Level: 1, Reason: models.TruncatedPerLevelCap, Dropped: 3}}, res.Truncations)
}

func TestBuild_AuthFailureAbortsWithoutFurtherCalls(t *testing.T) {
	m := acmeGroup()
	m.FailOn("officers", "", &registry.Error{Kind: registry.ErrAuth, Source: "mock", Op: "officers", Status: 401})

	res, err := newBuilder(m, officers.DefaultRolePolicy()).Build(context.Background(), company("A1", "Acme Ltd"), opts(2, 20))
	assert.Nil(t, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrAuth)
	assert.Equal(t, 1, m.CallCount())
}

func TestBuild_AuthFailureDuringFanOut(t *testing.T) {
	m := acmeGroup()
	m.FailOn("search", "", &registry.Error{Kind: registry.ErrAuth, Source: "mock", Op: "search", Status: 403})

	res, err := newBuilder(m, officers.DefaultRolePolicy()).Build(context.Background(), company("A1", "Acme Ltd"), opts(2, 20))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, registry.ErrAuth)
	assert.Equal(t, 2, m.CallCount())
}

func TestBuild_Idempotent(t *testing.T) {
	m := acmeGroup()
	root := company("A1", "Acme Ltd")

	first, err := newBuilder(m, officers.DefaultRolePolicy()).Build(context.Background(), root, opts(2, 20))
	require.NoError(t, err)
	second, err := newBuilder(m, officers.DefaultRolePolicy()).Build(context.Background(), root, opts(2, 20))
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestBuild_StopsWhenLevelAddsNothing(t *testing.T) {
	m := registry.NewMockSource("mock")
	m.AddCompany(company("L", "Lonely Ltd"), director("Solo Person"))

	res, err := newBuilder(m.WithReverseLookup(), officers.DefaultRolePolicy()).Build(context.Background(), company("L", "Lonely Ltd"), opts(5, 20))
	require.NoError(t, err)
	assert.Len(t, res.Levels, 1)
	assert.Equal(t, models.RunCompleted, res.State)
	assert.Equal(t, 2, m.CallCount(), "roster plus one reverse lookup, then stop")
}

func TestBuild_DepthZeroIsRootOnly(t *testing.T) {
	m := acmeGroup()
	res, err := newBuilder(m, officers.DefaultRolePolicy()).Build(context.Background(), company("A1", "Acme Ltd"), opts(0, 20))
	require.NoError(t, err)
	assert.Len(t, res.Levels, 1)
	assert.Zero(t, m.CallCount())
}

func TestBuild_TransientFailureBecomesWarning(t *testing.T) {
	m := acmeGroup()
	m.FailOn("officers", "A3", &registry.Error{Kind: registry.ErrTransient, Source: "mock", Op: "officers", Status: 503})

	res, err := newBuilder(m.WithReverseLookup(), officers.DefaultRolePolicy()).Build(context.Background(), company("A1", "Acme Ltd"), opts(2, 20))
	require.NoError(t, err)

	levelOf(t, res, "A4")
	assert.Equal(t, models.RunCompleted, res.State)
	require.Len(t, res.Warnings, 1)
	w := res.Warnings[0]
	assert.Equal(t, "A3", w.CompanyID)
	assert.Equal(t, 2, w.Level)
	assert.Equal(t, "officers", w.Op)
	assert.Contains(t, w.Message, "transient failure")
}

func TestBuild_RateLimitedFanOutBecomesWarning(t *testing.T) {
	m := acmeGroup()
	m.FailOn("companies_for_officer", "Bob Lee", &registry.Error{Kind: registry.ErrRateLimited, Source: "mock", Op: "appointments", Status: 429})

	res, err := newBuilder(m.WithReverseLookup(), officers.DefaultRolePolicy()).Build(context.Background(), company("A1", "Acme Ltd"), opts(2, 20))
	require.NoError(t, err)

	_, ok := res.Entry("A4")
	assert.False(t, ok)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "companies_sharing_officer", res.Warnings[0].Op)
	assert.Equal(t, "A2", res.Warnings[0].CompanyID)
	assert.Equal(t, 2, res.Warnings[0].Level)
	assert.Contains(t, res.Warnings[0].Message, "officer Bob Lee")
}

func TestBuild_SkippedCandidateWarnsAtLevelBeingBuilt(t *testing.T) {
	m := acmeGroup()
	m.FailOn("officers", "A4", &registry.Error{Kind: registry.ErrTransient, Source: "mock", Op: "officers", Status: 503})

	res, err := newBuilder(m, officers.DefaultRolePolicy()).Build(context.Background(), company("A1", "Acme Ltd"), opts(2, 20))
	require.NoError(t, err)

	_, ok := res.Entry("A4")
	assert.False(t, ok)
	require.Len(t, res.Warnings, 1)
	w := res.Warnings[0]
	assert.Equal(t, "A4", w.CompanyID)
	assert.Equal(t, 2, w.Level)
	assert.Equal(t, "officers", w.Op)
}

func TestBuild_SameNameOfficersFollowTheirOwnAppointments(t *testing.T) {
	officer := func(name, ref string) models.Officer {
		return models.Officer{Name: name, Role: models.RoleDirector, Ref: ref}
	}
	m := registry.NewMockSource("mock")
	m.AddCompany(company("R", "Root Ltd"), officer("Jane Doe", "PJ"), officer("John Smith", "P1"))
	m.AddCompany(company("Y", "Why Ltd"), officer("Jane Doe", "PJ"), officer("John Smith", "P2"))
	m.AddCompany(company("Z", "Zed Ltd"), officer("John Smith", "P2"))

	res, err := newBuilder(m.WithReverseLookup(), officers.DefaultRolePolicy()).Build(context.Background(), company("R", "Root Ltd"), opts(2, 20))
	require.NoError(t, err)
	assertNoDuplicates(t, res)

	assert.Equal(t, models.RunCompleted, res.State)
	assert.Equal(t, 1, levelOf(t, res, "Y").Level)
	z := levelOf(t, res, "Z")
	assert.Equal(t, 2, z.Level)
	require.Len(t, z.Connections, 1)
	assert.Equal(t, "Y", z.Connections[0].FromCompanyID)
	assert.Equal(t, "John Smith", z.Connections[0].OfficerName)
}

func TestBuild_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := acmeGroup()
	res, err := newBuilder(m, officers.DefaultRolePolicy()).Build(ctx, company("A1", "Acme Ltd"), opts(2, 20))
	require.NoError(t, err)
	require.Len(t, res.Levels, 1)
	assert.True(t, res.Truncated)
	assert.Equal(t, []models.Truncation{{Level: 1, Reason: models.TruncatedCancelled}}, res.Truncations)
	assert.Zero(t, m.CallCount())
}

// blockingSource hangs on one company's roster until the context ends.
type blockingSource struct {
	*registry.MockReverseSource
	blockOn string
}

func (s blockingSource) Officers(ctx context.Context, companyID string) ([]models.Officer, error) {
	if companyID == s.blockOn {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.MockReverseSource.Officers(ctx, companyID)
}

func TestBuild_TimeoutKeepsAccumulatedLevels(t *testing.T) {
	src := blockingSource{MockReverseSource: acmeGroup().WithReverseLookup(), blockOn: "A2"}
	o := opts(2, 20)
	o.Timeout = 50 * time.Millisecond

	res, err := newBuilder(src, officers.DefaultRolePolicy()).Build(context.Background(), company("A1", "Acme Ltd"), o)
	require.NoError(t, err)

	assert.Len(t, res.Levels, 3)
	_, ok := res.Entry("A4")
	assert.False(t, ok)
	assert.Equal(t, models.RunTruncated, res.State)
	assert.Equal(t, []models.Truncation{{Level: 2, Reason: models.TruncatedTimeout}}, res.Truncations)
	assert.Empty(t, res.Warnings)
	assertNoDuplicates(t, res)
}

func TestBuild_UnknownRolePolicy(t *testing.T) {
	m := registry.NewMockSource("mock")
	m.AddCompany(company("R", "Root"), models.Officer{Name: "Mystery Person"})
	m.AddCompany(company("S", "Sibling"), models.Officer{Name: "Mystery Person"})

	strict := officers.RolePolicy{ControlOnly: true, UnknownIsControl: false, IncludeResigned: true}
	res, err := newBuilder(m, strict).Build(context.Background(), company("R", "Root"), opts(2, 20))
	require.NoError(t, err)
	assert.Len(t, res.Levels, 1)

	res, err = newBuilder(m, officers.DefaultRolePolicy()).Build(context.Background(), company("R", "Root"), opts(2, 20))
	require.NoError(t, err)
	require.Len(t, res.Levels, 2)
	assert.Equal(t, "Shared officer: Mystery Person (Officer)", res.Levels[1].Connections[0].Evidence)
}

func TestBuild_InvalidOptions(t *testing.T) {
	b := newBuilder(acmeGroup(), officers.DefaultRolePolicy())
	_, err := b.Build(context.Background(), company("A1", "Acme"), Options{MaxDepth: 2, MaxCompaniesPerLevel: 0})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = b.Build(context.Background(), company("A1", "Acme"), Options{MaxDepth: -1, MaxCompaniesPerLevel: 1})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = b.Build(context.Background(), models.Company{Name: "No ID"}, opts(2, 20))
	assert.ErrorIs(t, err, ErrInvalidOptions)
}
