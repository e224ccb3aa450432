package registry

import (
	"context"
	"net/url"
	"time"
)

// descriptionLimit bounds the PubChem description kept in metadata
const descriptionLimit = 200

// PubChem queries the NIH PubChem compound descriptions
type PubChem struct {
	http httpClient
}

// NewPubChem creates a PubChem source
func NewPubChem(baseURL string, timeout time.Duration) *PubChem {
	return &PubChem{http: newHTTPClient(baseURL, timeout)}
}

func (s *PubChem) Name() string { return NamePubChem }

type pubChemResponse struct {
	InformationList struct {
		Information []struct {
			CID         int64  `json:"CID"`
			Title       string `json:"Title"`
			Description string `json:"Description"`
		} `json:"Information"`
	} `json:"InformationList"`
}

// Lookup implements Source
func (s *PubChem) Lookup(ctx context.Context, medicineName string) (*Match, error) {
	var resp pubChemResponse
	path := "/rest/pug/compound/name/" + url.PathEscape(medicineName) + "/description/JSON"
	found, err := s.http.getJSON(ctx, path, &resp)
	if err != nil || !found || len(resp.InformationList.Information) == 0 {
		return nil, err
	}

	info := resp.InformationList.Information[0]
	return &Match{
		Source:       "NIH PubChem",
		Manufacturer: "NIH Verified",
		GenericName:  info.Title,
		BrandName:    medicineName,
		Metadata: map[string]any{
			"cid":         info.CID,
			"description": truncateRunes(info.Description, descriptionLimit),
		},
	}, nil
}
