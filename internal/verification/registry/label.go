package registry

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/medguard/medguard-backend/internal/verification/domain"
	"github.com/patrickmn/go-cache"
)

// Label placeholders for fields the FDA record leaves empty
const (
	placeholderNA                = "N/A"
	placeholderSideEffects       = "See package insert for complete information"
	placeholderContraindications = "Consult healthcare provider"
)

// LabelClient resolves OpenFDA drug labels for display next to a scan.
// Both hits and misses are cached; failures are not.
type LabelClient struct {
	http  httpClient
	cache *cache.Cache
}

// NewLabelClient creates a label client whose results live for ttl
func NewLabelClient(baseURL string, timeout, ttl time.Duration) *LabelClient {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &LabelClient{
		http:  newHTTPClient(baseURL, timeout),
		cache: cache.New(ttl, 2*ttl),
	}
}

type labelEntry struct {
	info *domain.FDAInfo
}

// FetchLabel returns the label for a brand name, or nil when OpenFDA has none
func (c *LabelClient) FetchLabel(ctx context.Context, medicineName string) (*domain.FDAInfo, error) {
	key := strings.ToLower(strings.TrimSpace(medicineName))
	if key == "" {
		return nil, nil
	}

	if cached, ok := c.cache.Get(key); ok {
		return cached.(labelEntry).info, nil
	}

	var resp openFDAResponse
	query := `openfda.brand_name:"` + key + `"`
	found, err := c.http.getJSON(ctx, "/drug/label.json?search="+url.QueryEscape(query)+"&limit=1", &resp)
	if err != nil {
		return nil, err
	}

	var info *domain.FDAInfo
	if found && len(resp.Results) > 0 {
		info = mapLabel(resp.Results[0], medicineName)
	}

	c.cache.SetDefault(key, labelEntry{info: info})
	return info, nil
}

func mapLabel(label openFDALabel, medicineName string) *domain.FDAInfo {
	return &domain.FDAInfo{
		GenericName:       orDefault(label.field("generic_name"), placeholderNA),
		BrandName:         orDefault(label.field("brand_name"), medicineName),
		Manufacturer:      orDefault(label.field("manufacturer_name"), placeholderNA),
		Purpose:           firstOr(label.Purpose, firstOr(label.IndicationsAndUsage, placeholderNA)),
		DosageForm:        orDefault(label.field("dosage_form"), placeholderNA),
		Composition:       firstOr(label.ActiveIngredient, placeholderNA),
		SideEffects:       firstOr(label.AdverseReactions, placeholderSideEffects),
		Contraindications: firstOr(label.Contraindications, placeholderContraindications),
	}
}
