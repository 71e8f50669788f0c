package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ajitpratap0/groupmapper/internal/models"
)

// CompaniesHouseName is the catalog name of the UK Companies House source.
const CompaniesHouseName = "companies_house"

const (
	chJurisdiction     = "gb"
	chPublicURL        = "https://find-and-update.company-information.service.gov.uk/company/"
	chSearchPageSize   = 20
	chOfficerPageSize  = 100
	chMaxOfficerPages  = 5
	chAppointmentsSize = 50
	chMaxOfficerHits   = 5
)

// CompaniesHouse is the UK Companies House public data API.
type CompaniesHouse struct {
	t *Transport
}

// NewCompaniesHouse creates a Companies House source authenticating with apiKey
// as the Basic auth username.
func NewCompaniesHouse(apiKey string, opts Options) *CompaniesHouse {
	return &CompaniesHouse{
		t: NewTransport(CompaniesHouseName, opts, func(req *http.Request) {
			req.SetBasicAuth(apiKey, "")
		}),
	}
}

// Name implements Source.
func (c *CompaniesHouse) Name() string { return CompaniesHouseName }

type chCompanyItem struct {
	CompanyNumber  string `json:"company_number"`
	Title          string `json:"title"`
	CompanyStatus  string `json:"company_status"`
	CompanyType    string `json:"company_type"`
	DateOfCreation string `json:"date_of_creation"`
}

type chSearchResponse struct {
	Items []chCompanyItem `json:"items"`
}

// Search implements Source. Companies House only holds UK companies, so any
// other jurisdiction yields no results.
func (c *CompaniesHouse) Search(ctx context.Context, name, jurisdiction string) ([]models.Company, error) {
	if !chCovers(jurisdiction) {
		return nil, nil
	}
	q := url.Values{}
	q.Set("q", name)
	q.Set("items_per_page", strconv.Itoa(chSearchPageSize))

	var resp chSearchResponse
	if err := c.t.GetJSON(ctx, "search", "/search/companies", q, &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]models.Company, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it.CompanyNumber == "" {
			continue
		}
		out = append(out, chCompany(it.CompanyNumber, it.Title, it.CompanyStatus, it.CompanyType, it.DateOfCreation))
	}
	return out, nil
}

type chProfile struct {
	CompanyName    string `json:"company_name"`
	CompanyNumber  string `json:"company_number"`
	CompanyStatus  string `json:"company_status"`
	Type           string `json:"type"`
	DateOfCreation string `json:"date_of_creation"`
}

// Company implements Source.
func (c *CompaniesHouse) Company(ctx context.Context, id string) (models.Company, error) {
	var p chProfile
	if err := c.t.GetJSON(ctx, "company", "/company/"+url.PathEscape(id), nil, &p); err != nil {
		return models.Company{}, err
	}
	number := p.CompanyNumber
	if number == "" {
		number = id
	}
	return chCompany(number, p.CompanyName, p.CompanyStatus, p.Type, p.DateOfCreation), nil
}

type chPartialDate struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

type chOfficerItem struct {
	Name        string         `json:"name"`
	OfficerRole string         `json:"officer_role"`
	AppointedOn string         `json:"appointed_on"`
	ResignedOn  string         `json:"resigned_on"`
	DateOfBirth *chPartialDate `json:"date_of_birth"`
	Links       struct {
		Officer struct {
			Appointments string `json:"appointments"`
		} `json:"officer"`
	} `json:"links"`
}

type chOfficersResponse struct {
	Items        []chOfficerItem `json:"items"`
	TotalResults int             `json:"total_results"`
}

// Officers implements Source. Pages are followed up to a fixed bound.
func (c *CompaniesHouse) Officers(ctx context.Context, companyID string) ([]models.Officer, error) {
	path := "/company/" + url.PathEscape(companyID) + "/officers"
	var out []models.Officer
	for page := 0; page < chMaxOfficerPages; page++ {
		q := url.Values{}
		q.Set("items_per_page", strconv.Itoa(chOfficerPageSize))
		q.Set("start_index", strconv.Itoa(page*chOfficerPageSize))

		var resp chOfficersResponse
		if err := c.t.GetJSON(ctx, "officers", path, q, &resp); err != nil {
			if errors.Is(err, ErrNotFound) {
				return out, nil
			}
			return nil, err
		}
		for _, it := range resp.Items {
			if strings.TrimSpace(it.Name) == "" {
				continue
			}
			out = append(out, models.Officer{
				Name:        it.Name,
				Role:        models.NormalizeRole(it.OfficerRole),
				AppointedOn: it.AppointedOn,
				ResignedOn:  it.ResignedOn,
				BirthDate:   it.DateOfBirth.String(),
				Ref:         officerRef(it.Links.Officer.Appointments),
			})
		}
		if len(resp.Items) < chOfficerPageSize || (page+1)*chOfficerPageSize >= resp.TotalResults {
			break
		}
	}
	return out, nil
}

type chAppointmentsResponse struct {
	Items []struct {
		AppointedTo struct {
			CompanyNumber string `json:"company_number"`
			CompanyName   string `json:"company_name"`
			CompanyStatus string `json:"company_status"`
		} `json:"appointed_to"`
	} `json:"items"`
}

type chOfficerSearchResponse struct {
	Items []struct {
		Title       string         `json:"title"`
		DateOfBirth *chPartialDate `json:"date_of_birth"`
		Links       struct {
			Self string `json:"self"`
		} `json:"links"`
	} `json:"items"`
}

// CompaniesForOfficer implements OfficerLookup. Officers carrying a registry
// reference are resolved directly; otherwise the officer search is filtered to
// exact name matches and their appointments are merged.
func (c *CompaniesHouse) CompaniesForOfficer(ctx context.Context, officer models.Officer, jurisdiction string) ([]models.Company, error) {
	if !chCovers(jurisdiction) {
		return nil, nil
	}
	if officer.Ref != "" {
		return c.appointments(ctx, officer.Ref)
	}

	q := url.Values{}
	q.Set("q", officer.Name)
	q.Set("items_per_page", strconv.Itoa(chSearchPageSize))
	var resp chOfficerSearchResponse
	if err := c.t.GetJSON(ctx, "officer_search", "/search/officers", q, &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	seen := make(map[string]bool)
	var out []models.Company
	hits := 0
	for _, it := range resp.Items {
		if hits >= chMaxOfficerHits {
			break
		}
		if !chSameName(it.Title, officer.Name) {
			continue
		}
		if officer.BirthDate != "" && it.DateOfBirth != nil && it.DateOfBirth.String() != officer.BirthDate {
			continue
		}
		ref := officerRef(it.Links.Self)
		if ref == "" {
			continue
		}
		hits++
		companies, err := c.appointments(ctx, ref)
		if err != nil {
			return nil, err
		}
		for _, co := range companies {
			if !seen[co.ID] {
				seen[co.ID] = true
				out = append(out, co)
			}
		}
	}
	return out, nil
}

func (c *CompaniesHouse) appointments(ctx context.Context, ref string) ([]models.Company, error) {
	q := url.Values{}
	q.Set("items_per_page", strconv.Itoa(chAppointmentsSize))
	var resp chAppointmentsResponse
	if err := c.t.GetJSON(ctx, "appointments", "/officers/"+url.PathEscape(ref)+"/appointments", q, &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]models.Company, 0, len(resp.Items))
	for _, it := range resp.Items {
		a := it.AppointedTo
		if a.CompanyNumber == "" {
			continue
		}
		out = append(out, chCompany(a.CompanyNumber, a.CompanyName, a.CompanyStatus, "", ""))
	}
	return out, nil
}

func chCompany(number, name, status, typ, created string) models.Company {
	return models.Company{
		ID:             number,
		Name:           name,
		Jurisdiction:   chJurisdiction,
		Status:         status,
		Type:           typ,
		IncorporatedOn: created,
		SourceURL:      chPublicURL + number,
		Source:         CompaniesHouseName,
	}
}

func chCovers(jurisdiction string) bool {
	switch strings.ToLower(jurisdiction) {
	case "", "gb", "uk":
		return true
	}
	return false
}

// chSameName compares names across the "SURNAME, Forenames" roster form and
// the "Forenames SURNAME" search form.
func chSameName(a, b string) bool {
	forms := func(s string) []string {
		out := []string{models.NormalizeName(s)}
		if flipped, ok := models.SurnameFirst(s); ok {
			out = append(out, models.NormalizeName(flipped))
		}
		return out
	}
	for _, x := range forms(a) {
		for _, y := range forms(b) {
			if x == y {
				return true
			}
		}
	}
	return false
}

// officerRef extracts the officer id from "/officers/{id}/appointments".
func officerRef(link string) string {
	rest, ok := strings.CutPrefix(link, "/officers/")
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	return id
}

func (d *chPartialDate) String() string {
	if d == nil || d.Year == 0 {
		return ""
	}
	if d.Month == 0 {
		return strconv.Itoa(d.Year)
	}
	return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
}
