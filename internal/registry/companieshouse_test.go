package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/groupmapper/internal/models"
)

func newCHServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search/companies", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Acme", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"items":[
			{"company_number":"01234567","title":"ACME HOLDINGS LIMITED","company_status":"active","company_type":"ltd","date_of_creation":"2001-04-02"},
			{"company_number":"","title":"IGNORED"}
		]}`))
	})
	mux.HandleFunc("/company/01234567", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"company_name":"ACME HOLDINGS LIMITED","company_number":"01234567","company_status":"active","type":"ltd"}`))
	})
	mux.HandleFunc("/company/01234567/officers", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total_results":2,"items":[
			{"name":"DOE, Jane","officer_role":"director","appointed_on":"2010-01-01","date_of_birth":{"month":3,"year":1970},
			 "links":{"officer":{"appointments":"/officers/abc123/appointments"}}},
			{"name":"LEE, Bob","officer_role":"secretary","appointed_on":"2011-01-01","resigned_on":"2015-06-30"}
		]}`))
	})
	mux.HandleFunc("/officers/abc123/appointments", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[
			{"appointed_to":{"company_number":"01234567","company_name":"ACME HOLDINGS LIMITED","company_status":"active"}},
			{"appointed_to":{"company_number":"07654321","company_name":"ACME TRADING LIMITED","company_status":"active"}}
		]}`))
	})
	mux.HandleFunc("/officers/def456/appointments", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[
			{"appointed_to":{"company_number":"07654321","company_name":"ACME TRADING LIMITED","company_status":"active"}},
			{"appointed_to":{"company_number":"09999999","company_name":"LEE CONSULTING LTD","company_status":"dissolved"}}
		]}`))
	})
	mux.HandleFunc("/search/officers", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[
			{"title":"Bob LEE","links":{"self":"/officers/def456/appointments"}},
			{"title":"Bob LEESON","links":{"self":"/officers/zzz/appointments"}}
		]}`))
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "ch-key" || pass != "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCompaniesHouse_Search(t *testing.T) {
	srv := newCHServer(t)
	ch := NewCompaniesHouse("ch-key", testOptions(srv.URL, nil))

	got, err := ch.Search(context.Background(), "Acme", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.Company{
		ID:             "01234567",
		Name:           "ACME HOLDINGS LIMITED",
		Jurisdiction:   "gb",
		Status:         "active",
		Type:           "ltd",
		IncorporatedOn: "2001-04-02",
		SourceURL:      "https://find-and-update.company-information.service.gov.uk/company/01234567",
		Source:         CompaniesHouseName,
	}, got[0])
}

func TestCompaniesHouse_SearchOtherJurisdictionIsEmpty(t *testing.T) {
	srv := newCHServer(t)
	ch := NewCompaniesHouse("ch-key", testOptions(srv.URL, nil))

	got, err := ch.Search(context.Background(), "Acme", "us_de")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCompaniesHouse_Company(t *testing.T) {
	srv := newCHServer(t)
	ch := NewCompaniesHouse("ch-key", testOptions(srv.URL, nil))

	c, err := ch.Company(context.Background(), "01234567")
	require.NoError(t, err)
	assert.Equal(t, "ACME HOLDINGS LIMITED", c.Name)

	_, err = ch.Company(context.Background(), "00000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompaniesHouse_Officers(t *testing.T) {
	srv := newCHServer(t)
	ch := NewCompaniesHouse("ch-key", testOptions(srv.URL, nil))

	got, err := ch.Officers(context.Background(), "01234567")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "DOE, Jane", got[0].Name)
	assert.Equal(t, models.RoleDirector, got[0].Role)
	assert.Equal(t, "1970-03", got[0].BirthDate)
	assert.Equal(t, "abc123", got[0].Ref)
	assert.True(t, got[0].IsCurrent())

	assert.Equal(t, models.RoleSecretary, got[1].Role)
	assert.False(t, got[1].IsCurrent())
	assert.Empty(t, got[1].Ref)
}

func TestCompaniesHouse_OfficersOfUnknownCompanyIsEmpty(t *testing.T) {
	srv := newCHServer(t)
	ch := NewCompaniesHouse("ch-key", testOptions(srv.URL, nil))

	got, err := ch.Officers(context.Background(), "00000000")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCompaniesHouse_CompaniesForOfficerByRef(t *testing.T) {
	srv := newCHServer(t)
	ch := NewCompaniesHouse("ch-key", testOptions(srv.URL, nil))

	got, err := ch.CompaniesForOfficer(context.Background(), models.Officer{Name: "DOE, Jane", Ref: "abc123"}, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "07654321", got[1].ID)
	assert.Equal(t, "gb", got[1].Jurisdiction)
}

func TestCompaniesHouse_CompaniesForOfficerByName(t *testing.T) {
	srv := newCHServer(t)
	ch := NewCompaniesHouse("ch-key", testOptions(srv.URL, nil))

	// The roster form "LEE, Bob" matches the search form "Bob LEE" only.
	got, err := ch.CompaniesForOfficer(context.Background(), models.Officer{Name: "LEE, Bob"}, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "07654321", got[0].ID)
	assert.Equal(t, "09999999", got[1].ID)
}

func TestCompaniesHouse_BadKeyIsAuthError(t *testing.T) {
	srv := newCHServer(t)
	ch := NewCompaniesHouse("wrong", testOptions(srv.URL, nil))

	_, err := ch.Officers(context.Background(), "01234567")
	assert.ErrorIs(t, err, ErrAuth)
}

func TestOfficerRef(t *testing.T) {
	assert.Equal(t, "abc123", officerRef("/officers/abc123/appointments"))
	assert.Empty(t, officerRef(""))
	assert.Empty(t, officerRef("/company/123"))
}

var _ OfficerLookup = (*CompaniesHouse)(nil)
