package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/medguard/medguard-backend/internal/verification/domain"
	"github.com/medguard/medguard-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClassifier() *QRClassifier {
	return NewQRClassifier(time.Second, logger.Nop())
}

func strValue(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

func TestClassify_ImageURL(t *testing.T) {
	setupHTTPMock(t)

	for _, raw := range []string{
		"https://cdn.test/pack.JPG",
		"http://cdn.test/a/b.webp?size=large",
		"https://cdn.test/pack.png#front",
	} {
		got := newTestClassifier().Classify(context.Background(), raw)

		assert.Equal(t, domain.QRTypeImageURL, got.Type, raw)
		assert.Equal(t, raw, got.ImageURL)
		assert.True(t, got.Extracted.ShouldAnalyzeImage)
	}
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestClassify_URLPrefersPageFields(t *testing.T) {
	setupHTTPMock(t)
	page := `<html><head><style>.x{}</style><script>var batch = "JS1";</script></head>
		<body><h1>Product page</h1><p>Batch: PAGE77</p><p>Exp: 09/2027</p></body></html>`
	httpmock.RegisterResponder(http.MethodGet, "https://pharma.test/p/LOT.URL55",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "MedGuard-AI-Bot/1.0", req.Header.Get("User-Agent"))
			return httpmock.NewStringResponse(http.StatusOK, page), nil
		})

	got := newTestClassifier().Classify(context.Background(), "https://pharma.test/p/LOT.URL55")

	assert.Equal(t, domain.QRTypeURL, got.Type)
	assert.Equal(t, "PAGE77", strValue(got.Extracted.BatchNumber))
	assert.Equal(t, "09/2027", strValue(got.Extracted.ExpiryDate))
	assert.True(t, got.Extracted.FoundInWebsite)
	assert.Equal(t, "https://pharma.test/p/LOT.URL55", got.Extracted.WebsiteURL)
}

func TestClassify_URLFetchFailureKeepsURLFields(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, "https://pharma.test/p/LOT.URL55",
		httpmock.NewStringResponder(http.StatusNotFound, "gone"))

	got := newTestClassifier().Classify(context.Background(), "https://pharma.test/p/LOT.URL55")

	assert.Equal(t, domain.QRTypeURL, got.Type)
	assert.Equal(t, "URL55", strValue(got.Extracted.BatchNumber))
	assert.False(t, got.Extracted.FoundInWebsite)
	assert.Empty(t, got.Extracted.WebsiteURL)
}

func TestClassify_JSON(t *testing.T) {
	got := newTestClassifier().Classify(context.Background(), `{"name":"Amoxicillin","batch":"B2024X","exp":"11/2025"}`)

	assert.Equal(t, domain.QRTypeJSON, got.Type)
	assert.Equal(t, "Amoxicillin", strValue(got.Extracted.MedicineName))
	assert.Equal(t, "B2024X", strValue(got.Extracted.BatchNumber))
	assert.Equal(t, "11/2025", strValue(got.Extracted.ExpiryDate))
	assert.Nil(t, got.Extracted.Manufacturer)
	assert.Equal(t, "Amoxicillin", got.Extracted.RawJSON["name"])
}

func TestClassify_JSONAliases(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		batch   string
	}{
		{"batch wins over lot", `{"lot":"L1","batch":"B1"}`, "B1"},
		{"batchNumber", `{"batchNumber":"BN2","lot":"L2"}`, "BN2"},
		{"lot", `{"lot":"L3"}`, "L3"},
		{"empty alias skipped", `{"batch":"","lot":"L4"}`, "L4"},
		{"numeric batch", `{"batch":12345}`, "12345"},
		{"zero skipped", `{"batch":0,"lot":"L9"}`, "L9"},
		{"false skipped", `{"batch":false,"batchNumber":"BN7"}`, "BN7"},
		{"null skipped", `{"batch":null,"lot":"L8"}`, "L8"},
		{"string kept as stored", `{"batch":" B1 "}`, " B1 "},
		{"array uses first object", `[{"batch":"A5"},{"batch":"A6"}]`, "A5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestClassifier().Classify(context.Background(), tt.payload)
			assert.Equal(t, domain.QRTypeJSON, got.Type)
			assert.Equal(t, tt.batch, strValue(got.Extracted.BatchNumber))
		})
	}
}

func TestClassify_JSONOtherAliases(t *testing.T) {
	got := newTestClassifier().Classify(context.Background(), `{"product":"Advil","mfg":"Pfizer","expiryDate":"01/01/2027"}`)

	assert.Equal(t, "Advil", strValue(got.Extracted.MedicineName))
	assert.Equal(t, "Pfizer", strValue(got.Extracted.Manufacturer))
	assert.Equal(t, "01/01/2027", strValue(got.Extracted.ExpiryDate))
}

func TestClassify_BrokenJSONFallsBackToText(t *testing.T) {
	got := newTestClassifier().Classify(context.Background(), `{batch: LOT42`)

	assert.Equal(t, domain.QRTypeText, got.Type)
	assert.Equal(t, "LOT42", strValue(got.Extracted.BatchNumber))
}

func TestClassify_Text(t *testing.T) {
	raw := "MFG: Acme Pharma | Batch: LOT98765 | EXP: 03/2027"
	got := newTestClassifier().Classify(context.Background(), raw)

	assert.Equal(t, domain.QRTypeText, got.Type)
	assert.Equal(t, raw, got.Data)
	assert.Equal(t, "LOT98765", strValue(got.Extracted.BatchNumber))
	assert.Equal(t, "03/2027", strValue(got.Extracted.ExpiryDate))
	require.NotNil(t, got.Extracted.Manufacturer)
	assert.Contains(t, *got.Extracted.Manufacturer, "Acme Pharma")
}
