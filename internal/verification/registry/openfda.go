package registry

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// OpenFDA searches the US FDA drug label endpoint
type OpenFDA struct {
	http httpClient
}

// NewOpenFDA creates an OpenFDA source
func NewOpenFDA(baseURL string, timeout time.Duration) *OpenFDA {
	return &OpenFDA{http: newHTTPClient(baseURL, timeout)}
}

func (s *OpenFDA) Name() string { return NameOpenFDA }

type openFDAResponse struct {
	Results []openFDALabel `json:"results"`
}

type openFDALabel struct {
	OpenFDA             map[string]any `json:"openfda"`
	Purpose             []string       `json:"purpose"`
	IndicationsAndUsage []string       `json:"indications_and_usage"`
	ActiveIngredient    []string       `json:"active_ingredient"`
	AdverseReactions    []string       `json:"adverse_reactions"`
	Contraindications   []string       `json:"contraindications"`
}

// field returns the first string of an openfda harmonised field
func (l openFDALabel) field(key string) string {
	values, ok := l.OpenFDA[key].([]any)
	if !ok || len(values) == 0 {
		return ""
	}
	s, _ := values[0].(string)
	return s
}

var trademarkStripper = strings.NewReplacer("®", "", "™", "", "©", "")

// searchQueries lists the label searches tried in order: exact brand name,
// generic name on the first word, then a free search.
func searchQueries(medicineName string) []string {
	firstWord := strings.Fields(medicineName)
	generic := medicineName
	if len(firstWord) > 0 {
		generic = firstWord[0]
	}

	simple := strings.Fields(trademarkStripper.Replace(medicineName))
	free := generic
	if len(simple) > 0 {
		free = simple[0]
	}

	return []string{
		`openfda.brand_name:"` + medicineName + `"`,
		`openfda.generic_name:"` + generic + `"`,
		free,
	}
}

// search returns the first label found by any of the queries
func (s *OpenFDA) search(ctx context.Context, queries []string) (*openFDALabel, error) {
	var lastErr error
	for _, q := range queries {
		var resp openFDAResponse
		found, err := s.http.getJSON(ctx, "/drug/label.json?search="+url.QueryEscape(q)+"&limit=1", &resp)
		if err != nil {
			lastErr = err
			continue
		}
		if found && len(resp.Results) > 0 {
			return &resp.Results[0], nil
		}
	}
	return nil, lastErr
}

// Lookup implements Source
func (s *OpenFDA) Lookup(ctx context.Context, medicineName string) (*Match, error) {
	label, err := s.search(ctx, searchQueries(medicineName))
	if label == nil {
		return nil, err
	}

	return &Match{
		Source:       "OpenFDA (US FDA)",
		Manufacturer: orDefault(label.field("manufacturer_name"), "FDA Verified Manufacturer"),
		GenericName:  orDefault(label.field("generic_name"), medicineName),
		BrandName:    orDefault(label.field("brand_name"), medicineName),
		Metadata:     label.OpenFDA,
	}, nil
}
