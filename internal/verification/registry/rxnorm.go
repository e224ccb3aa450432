package registry

import (
	"context"
	"net/url"
	"time"
)

// RxNorm queries the NLM RxNav drugs endpoint
type RxNorm struct {
	http httpClient
}

// NewRxNorm creates an RxNorm source
func NewRxNorm(baseURL string, timeout time.Duration) *RxNorm {
	return &RxNorm{http: newHTTPClient(baseURL, timeout)}
}

func (s *RxNorm) Name() string { return NameRxNorm }

type rxNormResponse struct {
	DrugGroup struct {
		ConceptGroup []struct {
			TTY               string `json:"tty"`
			ConceptProperties []struct {
				RxCUI string `json:"rxcui"`
				Name  string `json:"name"`
				TTY   string `json:"tty"`
			} `json:"conceptProperties"`
		} `json:"conceptGroup"`
	} `json:"drugGroup"`
}

// Lookup implements Source
func (s *RxNorm) Lookup(ctx context.Context, medicineName string) (*Match, error) {
	var resp rxNormResponse
	found, err := s.http.getJSON(ctx, "/REST/drugs.json?name="+url.QueryEscape(medicineName), &resp)
	if err != nil || !found {
		return nil, err
	}

	for _, group := range resp.DrugGroup.ConceptGroup {
		if len(group.ConceptProperties) == 0 {
			continue
		}
		drug := group.ConceptProperties[0]
		return &Match{
			Source:       "RxNorm (NLM)",
			Manufacturer: "RxNorm Verified",
			GenericName:  drug.Name,
			BrandName:    medicineName,
			Metadata:     map[string]any{"rxcui": drug.RxCUI, "tty": drug.TTY},
		}, nil
	}
	return nil, nil
}
