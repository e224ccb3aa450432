// Package registry queries public drug registries for a medicine name.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Source names, also the keys accepted in the priority config
const (
	NameOpenFDA  = "openfda"
	NameRxNorm   = "rxnorm"
	NameDailyMed = "dailymed"
	NamePubChem  = "pubchem"
	NameEMA      = "ema"
)

// userAgent identifies registry requests
const userAgent = "MedGuard-Verifier/1.0"

// Match is a registry record that confirms a medicine exists
type Match struct {
	Source       string         `json:"source"`
	Manufacturer string         `json:"manufacturer"`
	GenericName  string         `json:"generic_name"`
	BrandName    string         `json:"brand_name"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Source looks a medicine up in one registry.
// A nil match with a nil error means the registry has no record.
type Source interface {
	Name() string
	Lookup(ctx context.Context, medicineName string) (*Match, error)
}

// httpClient is the GET-and-decode plumbing shared by every source
type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(baseURL string, timeout time.Duration) httpClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// getJSON decodes a 2xx response into v. A 404 reports found=false with no
// error; other non-2xx statuses are errors.
func (c httpClient) getJSON(ctx context.Context, path string, v any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return true, nil
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 && values[0] != "" {
		return values[0]
	}
	return fallback
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
