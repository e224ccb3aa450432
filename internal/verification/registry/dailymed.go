package registry

import (
	"context"
	"net/url"
	"time"
)

// DailyMed queries the NLM structured product label index
type DailyMed struct {
	http httpClient
}

// NewDailyMed creates a DailyMed source
func NewDailyMed(baseURL string, timeout time.Duration) *DailyMed {
	return &DailyMed{http: newHTTPClient(baseURL, timeout)}
}

func (s *DailyMed) Name() string { return NameDailyMed }

type dailyMedResponse struct {
	Data []struct {
		SetID         string `json:"setid"`
		Title         string `json:"title"`
		Author        string `json:"author"`
		PublishedDate string `json:"published_date"`
	} `json:"data"`
}

// Lookup implements Source
func (s *DailyMed) Lookup(ctx context.Context, medicineName string) (*Match, error) {
	var resp dailyMedResponse
	found, err := s.http.getJSON(ctx, "/dailymed/services/v2/spls.json?drug_name="+url.QueryEscape(medicineName), &resp)
	if err != nil || !found || len(resp.Data) == 0 {
		return nil, err
	}

	spl := resp.Data[0]
	return &Match{
		Source:       "DailyMed (NLM)",
		Manufacturer: orDefault(spl.Author, "DailyMed Verified"),
		GenericName:  spl.Title,
		BrandName:    medicineName,
		Metadata:     map[string]any{"setid": spl.SetID, "published_date": spl.PublishedDate},
	}, nil
}
