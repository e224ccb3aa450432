package service

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/k3a/html2text"
	"github.com/medguard/medguard-backend/internal/verification/domain"
	"github.com/medguard/medguard-backend/internal/verification/extractor"
	"github.com/medguard/medguard-backend/pkg/logger"
)

const (
	botUserAgent = "MedGuard-AI-Bot/1.0"
	maxPageBytes = 2 << 20
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// JSON keys accepted for each field, in preference order
var (
	batchKeys        = []string{"batch", "batchNumber", "lot"}
	nameKeys         = []string{"name", "medicine", "product"}
	manufacturerKeys = []string{"manufacturer", "mfg"}
	expiryKeys       = []string{"expiry", "exp", "expiryDate"}
)

// QRClassifier works out what a scanned QR payload is and pulls medicine
// fields out of it
type QRClassifier struct {
	client *http.Client
	logger *logger.Logger
}

// NewQRClassifier creates a classifier that fetches linked pages within timeout
func NewQRClassifier(timeout time.Duration, log *logger.Logger) *QRClassifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &QRClassifier{
		client: &http.Client{Timeout: timeout},
		logger: log.WithComponent("qr"),
	}
}

// Classify never fails; anything that cannot be fetched or parsed degrades to
// whatever extraction did succeed.
func (c *QRClassifier) Classify(ctx context.Context, qrData string) *domain.QRResult {
	trimmed := strings.TrimSpace(qrData)
	result := &domain.QRResult{Data: qrData}

	if isHTTPURL(trimmed) {
		if hasImageExtension(trimmed) {
			result.Type = domain.QRTypeImageURL
			result.ImageURL = trimmed
			result.Extracted.ShouldAnalyzeImage = true
			return result
		}

		result.Type = domain.QRTypeURL
		fromURL := extractor.Extract(trimmed)
		result.Extracted.ExtractedInfo = fromURL

		if text, ok := c.fetchPageText(ctx, trimmed); ok {
			result.Extracted.ExtractedInfo = extractor.Extract(text).Merge(fromURL)
			result.Extracted.FoundInWebsite = true
			result.Extracted.WebsiteURL = trimmed
		}
		return result
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if obj, ok := parseJSONPayload(trimmed); ok {
			result.Type = domain.QRTypeJSON
			result.Extracted.ExtractedInfo = domain.ExtractedInfo{
				BatchNumber:  firstKey(obj, batchKeys),
				MedicineName: firstKey(obj, nameKeys),
				Manufacturer: firstKey(obj, manufacturerKeys),
				ExpiryDate:   firstKey(obj, expiryKeys),
			}
			result.Extracted.RawJSON = obj
			return result
		}
		c.logger.Debug().Msg("QR payload looked like JSON but did not parse")
	}

	result.Type = domain.QRTypeText
	result.Extracted.ExtractedInfo = extractor.Extract(qrData)
	return result
}

// hasImageExtension checks the URL path, ignoring query and fragment
func hasImageExtension(raw string) bool {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	return imageExtensions[strings.ToLower(path.Ext(p))]
}

// fetchPageText downloads a page and reduces it to whitespace-collapsed text
func (c *QRClassifier) fetchPageText(ctx context.Context, pageURL string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", botUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", pageURL).Msg("QR link fetch failed")
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn().Int("status", resp.StatusCode).Str("url", pageURL).Msg("QR link returned non-2xx")
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		c.logger.Warn().Err(err).Str("url", pageURL).Msg("QR link read failed")
		return "", false
	}

	text := strings.Join(strings.Fields(html2text.HTML2Text(string(body))), " ")
	return text, true
}

// parseJSONPayload returns the payload object, or the first object of an array
func parseJSONPayload(s string) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}

	switch t := v.(type) {
	case map[string]any:
		return t, true
	case []any:
		for _, item := range t {
			if obj, ok := item.(map[string]any); ok {
				return obj, true
			}
		}
		return nil, true
	default:
		return nil, false
	}
}

// firstKey returns the first alias holding a truthy value. Strings are kept
// as stored; 0, false, null and "" are skipped so a later alias can win.
func firstKey(obj map[string]any, keys []string) *string {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case nil:
			continue
		case string:
			if v != "" {
				return &v
			}
		case float64:
			if v != 0 && !math.IsNaN(v) {
				s := stringValue(v)
				return &s
			}
		case bool:
			if v {
				s := stringValue(v)
				return &s
			}
		default:
			s := stringValue(v)
			return &s
		}
	}
	return nil
}
