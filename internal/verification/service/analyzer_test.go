package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/medguard/medguard-backend/internal/verification/domain"
	"github.com/medguard/medguard-backend/pkg/config"
	apperrors "github.com/medguard/medguard-backend/pkg/errors"
	"github.com/medguard/medguard-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	gatewayURL     = "https://ai.test"
	completionsURL = gatewayURL + "/v1/chat/completions"
	samplePNG      = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"
)

func setupHTTPMock(t *testing.T) {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
}

type stubLabels struct {
	info *domain.FDAInfo
	err  error
	name string
}

func (s *stubLabels) FetchLabel(_ context.Context, name string) (*domain.FDAInfo, error) {
	s.name = name
	return s.info, s.err
}

func newTestAnalyzer(labels LabelFetcher) *Analyzer {
	return NewAnalyzer(config.AIConfig{
		GatewayURL: gatewayURL,
		APIKey:     "test-key",
		Model:      "google/gemini-2.5-flash",
		Timeout:    time.Second,
	}, labels, nil, logger.Nop())
}

// completion wraps content the way the gateway does
func completion(content any) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
	})
	return string(b)
}

func TestAnalyzer_DefaultsMissingFields(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodPost, completionsURL,
		httpmock.NewStringResponder(http.StatusOK, completion(`{"prediction":"fake","confidence":88}`)))

	p, err := newTestAnalyzer(nil).Analyze(context.Background(), "data:image/png;base64,AAAA")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFake, p.Prediction)
	assert.Equal(t, 88, p.Confidence)
	assert.Equal(t, "Unknown Medicine", p.MedicineName)
	assert.Equal(t, "N/A", p.BatchNumber)
	assert.Equal(t, "N/A", p.ExpiryDate)
	assert.Equal(t, "Unknown", p.Manufacturer)
	assert.Equal(t, "Analysis completed", p.Details)
	assert.Nil(t, p.FDAInfo)
}

func TestAnalyzer_SendsPromptAndImage(t *testing.T) {
	setupHTTPMock(t)

	var captured chatRequest
	httpmock.RegisterResponder(http.MethodPost, completionsURL,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer test-key", req.Header.Get("Authorization"))
			body, _ := io.ReadAll(req.Body)
			require.NoError(t, json.Unmarshal(body, &captured))
			return httpmock.NewStringResponse(http.StatusOK, completion(map[string]any{"prediction": "genuine"})), nil
		})

	p, err := newTestAnalyzer(nil).Analyze(context.Background(), "data:image/png;base64,AAAA")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusGenuine, p.Prediction)
	assert.Equal(t, 50, p.Confidence)
	assert.Equal(t, "google/gemini-2.5-flash", captured.Model)
	assert.Equal(t, "json_object", captured.ResponseFormat["type"])
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[0].Content, "medicine authenticity verification AI")

	parts, ok := captured.Messages[1].Content.([]any)
	require.True(t, ok)
	require.Len(t, parts, 2)
	image := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/png;base64,AAAA", image["url"])
}

func TestAnalyzer_EnrichesFromLabel(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodPost, completionsURL,
		httpmock.NewStringResponder(http.StatusOK, completion(`{"prediction":"real","confidence":"93","medicine_name":"Advil"}`)))

	labels := &stubLabels{info: &domain.FDAInfo{
		GenericName:  "IBUPROFEN",
		BrandName:    "Advil",
		Manufacturer: "Pfizer Consumer Healthcare",
		Purpose:      "Pain reliever",
	}}

	p, err := newTestAnalyzer(labels).Analyze(context.Background(), "data:image/png;base64,AAAA")
	require.NoError(t, err)

	assert.Equal(t, "Advil", labels.name)
	assert.Equal(t, domain.StatusGenuine, p.Prediction)
	assert.Equal(t, 93, p.Confidence)
	assert.Equal(t, "Pfizer Consumer Healthcare", p.Manufacturer)
	require.NotNil(t, p.FDAInfo)
	assert.Equal(t, "IBUPROFEN", p.FDAInfo.GenericName)
	assert.Empty(t, p.FDAInfo.Manufacturer)
}

func TestAnalyzer_LabelFailureIsIgnored(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodPost, completionsURL,
		httpmock.NewStringResponder(http.StatusOK, completion(`{"prediction":"genuine","confidence":140,"manufacturer":"Acme"}`)))

	p, err := newTestAnalyzer(&stubLabels{err: errors.New("timeout")}).Analyze(context.Background(), "data:image/png;base64,AAAA")
	require.NoError(t, err)

	assert.Equal(t, 100, p.Confidence)
	assert.Equal(t, "Acme", p.Manufacturer)
	assert.Nil(t, p.FDAInfo)
}

func TestAnalyzer_UpstreamStatuses(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantCode   string
		wantStatus int
	}{
		{"rate limited", http.StatusTooManyRequests, "RATE_LIMITED", http.StatusTooManyRequests},
		{"payment required", http.StatusPaymentRequired, "PAYMENT_REQUIRED", http.StatusPaymentRequired},
		{"server error", http.StatusBadGateway, "ANALYSIS_FAILED", http.StatusInternalServerError},
		{"bad request", http.StatusBadRequest, "ANALYSIS_FAILED", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupHTTPMock(t)
			httpmock.RegisterResponder(http.MethodPost, completionsURL,
				httpmock.NewStringResponder(tt.status, `{"error":"nope"}`))

			_, err := newTestAnalyzer(nil).Analyze(context.Background(), "data:image/png;base64,AAAA")
			require.Error(t, err)

			var appErr *apperrors.AppError
			require.True(t, apperrors.As(err, &appErr))
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, tt.wantStatus, appErr.StatusCode)
		})
	}
}

func TestAnalyzer_InvalidAnswer(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodPost, completionsURL,
		httpmock.NewStringResponder(http.StatusOK, completion("I think it is genuine")))

	_, err := newTestAnalyzer(nil).Analyze(context.Background(), "data:image/png;base64,AAAA")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, "Invalid AI response format", appErr.Message)
}

func TestAnalyzer_FetchesRemoteImage(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, "https://cdn.test/pack.png",
		func(req *http.Request) (*http.Response, error) {
			assert.True(t, strings.HasPrefix(req.Header.Get("User-Agent"), "Mozilla/5.0"))
			return httpmock.NewStringResponse(http.StatusOK, samplePNG), nil
		})

	var imageURL string
	httpmock.RegisterResponder(http.MethodPost, completionsURL,
		func(req *http.Request) (*http.Response, error) {
			var body struct {
				Messages []struct {
					Content json.RawMessage `json:"content"`
				} `json:"messages"`
			}
			raw, _ := io.ReadAll(req.Body)
			_ = json.Unmarshal(raw, &body)
			var parts []chatContent
			_ = json.Unmarshal(body.Messages[1].Content, &parts)
			imageURL = parts[1].ImageURL.URL
			return httpmock.NewStringResponse(http.StatusOK, completion(`{"prediction":"genuine"}`)), nil
		})

	_, err := newTestAnalyzer(nil).Analyze(context.Background(), "https://cdn.test/pack.png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(imageURL, "data:image/png;base64,"), imageURL)
}

func TestAnalyzer_RemoteImageUnavailable(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, "https://cdn.test/missing.png",
		httpmock.NewStringResponder(http.StatusForbidden, "denied"))
	httpmock.RegisterResponder(http.MethodGet, "https://cdn.test/broken.png",
		httpmock.NewErrorResponder(errors.New("dial tcp: no such host")))

	_, err := newTestAnalyzer(nil).Analyze(context.Background(), "https://cdn.test/missing.png")
	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, "IMAGE_UNAVAILABLE", appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	assert.Contains(t, appErr.Message, "Unable to access the QR code image")
	assert.NotEmpty(t, appErr.Details["hint"])

	_, err = newTestAnalyzer(nil).Analyze(context.Background(), "https://cdn.test/broken.png")
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, "Could not load the image from this QR code.", appErr.Message)

	assert.Zero(t, httpmock.GetCallCountInfo()["POST "+completionsURL])
}

func TestAnalyzer_Preconditions(t *testing.T) {
	_, err := newTestAnalyzer(nil).Analyze(context.Background(), "")
	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, "No image provided", appErr.Message)

	unconfigured := NewAnalyzer(config.AIConfig{GatewayURL: gatewayURL}, nil, nil, logger.Nop())
	_, err = unconfigured.Analyze(context.Background(), "data:image/png;base64,AAAA")
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, "AI gateway not configured", appErr.Message)
}

func TestParseAnswer(t *testing.T) {
	obj, err := parseAnswer(json.RawMessage(`{"prediction":"fake"}`))
	require.NoError(t, err)
	assert.Equal(t, "fake", obj["prediction"])

	str, err := parseAnswer(json.RawMessage(`"{\"prediction\":\"genuine\"}"`))
	require.NoError(t, err)
	assert.Equal(t, "genuine", str["prediction"])

	_, err = parseAnswer(json.RawMessage(`null`))
	assert.Error(t, err)
}

func TestConfidenceValue(t *testing.T) {
	assert.Equal(t, 50, confidenceValue(nil))
	assert.Equal(t, 50, confidenceValue(0.0))
	assert.Equal(t, 77, confidenceValue(76.6))
	assert.Equal(t, 80, confidenceValue("80%"))
	assert.Equal(t, 50, confidenceValue("high"))
	assert.Equal(t, 0, confidenceValue(-5.0))
	assert.Equal(t, 50, confidenceValue("Infinity"))
	assert.Equal(t, 50, confidenceValue("-Inf"))
	assert.Equal(t, 50, confidenceValue("NaN"))
}
