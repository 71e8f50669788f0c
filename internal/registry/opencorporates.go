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

// OpenCorporatesName is the catalog name of the OpenCorporates source.
const OpenCorporatesName = "opencorporates"

const ocSearchPageSize = 20

// OpenCorporates is the OpenCorporates aggregator API. Company IDs are
// "<jurisdiction>/<number>". It has no officer-to-companies lookup.
type OpenCorporates struct {
	t *Transport
}

// NewOpenCorporates creates an OpenCorporates source sending apiKey as the
// api_token query parameter.
func NewOpenCorporates(apiKey string, opts Options) *OpenCorporates {
	return &OpenCorporates{
		t: NewTransport(OpenCorporatesName, opts, func(req *http.Request) {
			q := req.URL.Query()
			q.Set("api_token", apiKey)
			req.URL.RawQuery = q.Encode()
		}),
	}
}

// Name implements Source.
func (o *OpenCorporates) Name() string { return OpenCorporatesName }

type ocOfficer struct {
	Officer struct {
		Name      string `json:"name"`
		Position  string `json:"position"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	} `json:"officer"`
}

type ocCompany struct {
	Name              string      `json:"name"`
	CompanyNumber     string      `json:"company_number"`
	JurisdictionCode  string      `json:"jurisdiction_code"`
	CurrentStatus     string      `json:"current_status"`
	CompanyType       string      `json:"company_type"`
	IncorporationDate string      `json:"incorporation_date"`
	OpencorporatesURL string      `json:"opencorporates_url"`
	Officers          []ocOfficer `json:"officers"`
}

type ocSearchResponse struct {
	Results struct {
		Companies []struct {
			Company ocCompany `json:"company"`
		} `json:"companies"`
	} `json:"results"`
}

type ocCompanyResponse struct {
	Results struct {
		Company ocCompany `json:"company"`
	} `json:"results"`
}

// Search implements Source.
func (o *OpenCorporates) Search(ctx context.Context, name, jurisdiction string) ([]models.Company, error) {
	q := url.Values{}
	q.Set("q", name)
	q.Set("per_page", strconv.Itoa(ocSearchPageSize))
	q.Set("order", "score")
	if jurisdiction != "" {
		q.Set("jurisdiction_code", strings.ToLower(jurisdiction))
	}

	var resp ocSearchResponse
	if err := o.t.GetJSON(ctx, "search", "/companies/search", q, &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]models.Company, 0, len(resp.Results.Companies))
	for _, item := range resp.Results.Companies {
		if item.Company.CompanyNumber == "" || item.Company.JurisdictionCode == "" {
			continue
		}
		out = append(out, item.Company.model())
	}
	return out, nil
}

// Company implements Source.
func (o *OpenCorporates) Company(ctx context.Context, id string) (models.Company, error) {
	c, err := o.fetch(ctx, "company", id)
	if err != nil {
		return models.Company{}, err
	}
	return c.model(), nil
}

// Officers implements Source. OpenCorporates embeds officers in the company record.
func (o *OpenCorporates) Officers(ctx context.Context, companyID string) ([]models.Officer, error) {
	c, err := o.fetch(ctx, "officers", companyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]models.Officer, 0, len(c.Officers))
	for _, item := range c.Officers {
		off := item.Officer
		if strings.TrimSpace(off.Name) == "" {
			continue
		}
		out = append(out, models.Officer{
			Name:        off.Name,
			Role:        models.NormalizeRole(off.Position),
			AppointedOn: off.StartDate,
			ResignedOn:  off.EndDate,
		})
	}
	return out, nil
}

func (o *OpenCorporates) fetch(ctx context.Context, op, id string) (ocCompany, error) {
	jur, number, err := splitOCID(id)
	if err != nil {
		return ocCompany{}, err
	}
	var resp ocCompanyResponse
	path := "/companies/" + url.PathEscape(jur) + "/" + url.PathEscape(number)
	if err := o.t.GetJSON(ctx, op, path, nil, &resp); err != nil {
		return ocCompany{}, err
	}
	c := resp.Results.Company
	if c.CompanyNumber == "" {
		c.CompanyNumber = number
	}
	if c.JurisdictionCode == "" {
		c.JurisdictionCode = jur
	}
	return c, nil
}

func (c ocCompany) model() models.Company {
	return models.Company{
		ID:             c.JurisdictionCode + "/" + c.CompanyNumber,
		Name:           c.Name,
		Jurisdiction:   c.JurisdictionCode,
		Status:         c.CurrentStatus,
		Type:           c.CompanyType,
		IncorporatedOn: c.IncorporationDate,
		SourceURL:      c.OpencorporatesURL,
		Source:         OpenCorporatesName,
	}
}

func splitOCID(id string) (jurisdiction, number string, err error) {
	jurisdiction, number, ok := strings.Cut(id, "/")
	if !ok || jurisdiction == "" || number == "" {
		return "", "", fmt.Errorf("opencorporates id %q: want <jurisdiction>/<number>", id)
	}
	return jurisdiction, number, nil
}
