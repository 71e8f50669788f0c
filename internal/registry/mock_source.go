package registry

import (
	"context"
	"strings"
	"sync"

	"github.com/ajitpratap0/groupmapper/internal/models"
)

// Call records one operation invoked on a MockSource.
type Call struct {
	Op  string
	Arg string
}

// MockSource is an in-memory Source for testing. Search matches companies
// whose name contains the query or whose roster lists an officer with exactly
// that name, in insertion order.
type MockSource struct {
	mu        sync.Mutex
	name      string
	order     []string
	companies map[string]models.Company
	officers  map[string][]models.Officer
	failures  map[string]error
	calls     []Call
}

// NewMockSource creates an empty mock source.
func NewMockSource(name string) *MockSource {
	if name == "" {
		name = "mock"
	}
	return &MockSource{
		name:      name,
		companies: make(map[string]models.Company),
		officers:  make(map[string][]models.Officer),
		failures:  make(map[string]error),
	}
}

// AddCompany stores c with its officer roster, replacing any previous record.
func (m *MockSource) AddCompany(c models.Company, officers ...models.Officer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.Source == "" {
		c.Source = m.name
	}
	if _, ok := m.companies[c.ID]; !ok {
		m.order = append(m.order, c.ID)
	}
	m.companies[c.ID] = c
	m.officers[c.ID] = append([]models.Officer(nil), officers...)
}

// FailOn makes op fail with err. An empty arg fails every call of op;
// otherwise only calls whose argument equals arg fail.
func (m *MockSource) FailOn(op, arg string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op+"\x00"+arg] = err
}

// ClearFailures removes all injected failures.
func (m *MockSource) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = make(map[string]error)
}

// Calls returns a copy of the call log.
func (m *MockSource) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallCount returns the number of calls made so far.
func (m *MockSource) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// WithReverseLookup wraps m so it also implements OfficerLookup.
func (m *MockSource) WithReverseLookup() *MockReverseSource {
	return &MockReverseSource{MockSource: m}
}

// Name implements Source.
func (m *MockSource) Name() string { return m.name }

// Search implements Source.
func (m *MockSource) Search(_ context.Context, name, jurisdiction string) ([]models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("search", name); err != nil {
		return nil, err
	}
	needle := models.NormalizeName(name)
	var out []models.Company
	for _, id := range m.order {
		c := m.companies[id]
		if jurisdiction != "" && !strings.EqualFold(c.Jurisdiction, jurisdiction) {
			continue
		}
		if strings.Contains(models.NormalizeName(c.Name), needle) || m.listsOfficer(id, needle) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Company implements Source.
func (m *MockSource) Company(_ context.Context, id string) (models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("company", id); err != nil {
		return models.Company{}, err
	}
	c, ok := m.companies[id]
	if !ok {
		return models.Company{}, &Error{Kind: ErrNotFound, Source: m.name, Op: "company", Status: 404}
	}
	return c, nil
}

// Officers implements Source. Unknown companies have an empty roster.
func (m *MockSource) Officers(_ context.Context, companyID string) ([]models.Officer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("officers", companyID); err != nil {
		return nil, err
	}
	return append([]models.Officer(nil), m.officers[companyID]...), nil
}

func (m *MockSource) listsOfficer(companyID, normalized string) bool {
	for _, o := range m.officers[companyID] {
		if models.NormalizeName(o.Name) == normalized {
			return true
		}
	}
	return false
}

// record logs the call and returns the injected failure, if any. Callers hold mu.
func (m *MockSource) record(op, arg string) error {
	m.calls = append(m.calls, Call{Op: op, Arg: arg})
	if err, ok := m.failures[op+"\x00"+arg]; ok {
		return err
	}
	if err, ok := m.failures[op+"\x00"]; ok {
		return err
	}
	return nil
}

// MockReverseSource is a MockSource that also implements OfficerLookup.
type MockReverseSource struct {
	*MockSource
}

// CompaniesForOfficer implements OfficerLookup by scanning every roster. An
// officer with a Ref matches roster entries carrying the same Ref, as a
// registry appointments list would; otherwise the normalized name is matched.
func (m *MockReverseSource) CompaniesForOfficer(_ context.Context, officer models.Officer, jurisdiction string) ([]models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("companies_for_officer", officer.Name); err != nil {
		return nil, err
	}
	needle := models.NormalizeName(officer.Name)
	var out []models.Company
	for _, id := range m.order {
		c := m.companies[id]
		if jurisdiction != "" && !strings.EqualFold(c.Jurisdiction, jurisdiction) {
			continue
		}
		listed := m.listsOfficer(id, needle)
		if officer.Ref != "" {
			listed = m.listsRef(id, officer.Ref)
		}
		if listed {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MockSource) listsRef(companyID, ref string) bool {
	for _, o := range m.officers[companyID] {
		if o.Ref == ref {
			return true
		}
	}
	return false
}
