package registry

import (
	"context"
	"net/url"
	"time"
)

// EMA queries the European Medicines Agency medicine search
type EMA struct {
	http httpClient
}

// NewEMA creates an EMA source
func NewEMA(baseURL string, timeout time.Duration) *EMA {
	return &EMA{http: newHTTPClient(baseURL, timeout)}
}

func (s *EMA) Name() string { return NameEMA }

type emaResponse struct {
	Results []struct {
		Name                         string `json:"name"`
		ActiveSubstance              string `json:"activeSubstance"`
		MarketingAuthorisationHolder string `json:"marketingAuthorisationHolder"`
		AuthorizationNumber          string `json:"authorizationNumber"`
		Status                       string `json:"status"`
	} `json:"results"`
}

// Lookup implements Source
func (s *EMA) Lookup(ctx context.Context, medicineName string) (*Match, error) {
	var resp emaResponse
	found, err := s.http.getJSON(ctx, "/medicines/search?query="+url.QueryEscape(medicineName), &resp)
	if err != nil || !found || len(resp.Results) == 0 {
		return nil, err
	}

	medicine := resp.Results[0]
	return &Match{
		Source:       "EMA (European Medicines Agency)",
		Manufacturer: orDefault(medicine.MarketingAuthorisationHolder, "EMA Verified"),
		GenericName:  orDefault(medicine.ActiveSubstance, medicineName),
		BrandName:    orDefault(medicine.Name, medicineName),
		Metadata: map[string]any{
			"authorization_number": medicine.AuthorizationNumber,
			"status":               medicine.Status,
		},
	}, nil
}
