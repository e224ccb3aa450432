package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/medguard/medguard-backend/internal/verification/domain"
	"github.com/medguard/medguard-backend/pkg/config"
	"github.com/medguard/medguard-backend/pkg/errors"
	"github.com/medguard/medguard-backend/pkg/logger"
	"github.com/medguard/medguard-backend/pkg/metrics"
)

const (
	defaultMedicineName = "Unknown Medicine"
	defaultConfidence   = 50
	notAvailable        = "N/A"

	// browserUserAgent is sent when fetching images; some hosts refuse bots
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	maxImageBytes    = 20 << 20
)

const analysisSystemPrompt = `You are a medicine authenticity verification AI with OCR capabilities. Analyze medicine packaging images and determine if they are genuine, fake, or suspicious.

CRITICAL: Perform thorough OCR text extraction from the entire package. Read ALL visible text including:
- Medicine name (brand and generic)
- Batch/Lot number
- Manufacturing date and Expiry date (MFG/EXP)
- Manufacturer name and address
- Any serial numbers or codes
- Dosage and composition details

Return a JSON response with:
- prediction: "genuine", "fake", or "suspicious"
- confidence: number between 0-100
- medicine_name: exact medicine name from package
- batch_number: batch/lot number if visible (extract carefully)
- expiry_date: expiry date if visible (format: DD/MM/YYYY or as shown)
- manufacturer: manufacturer name if visible
- details: detailed explanation including OCR findings, packaging quality analysis, and authenticity indicators

Verification criteria:
- Clear, professional printing (not blurry or smudged)
- Correct spelling and grammar
- Proper batch numbers and dates
- Security features (holograms, QR codes, seals)
- Packaging quality and material
- Any signs of tampering or counterfeiting`

const analysisUserPrompt = "Perform OCR to extract ALL text from this medicine package. Read the medicine name, batch number, expiry date, manufacturer, and any other visible details. Then analyze the packaging quality, printing clarity, security features, and determine if it's genuine or fake. Provide detailed findings."

// LabelFetcher resolves drug label details for a medicine name
type LabelFetcher interface {
	FetchLabel(ctx context.Context, medicineName string) (*domain.FDAInfo, error)
}

// Analyzer forwards packaging images to the hosted AI gateway and reshapes
// its answer into a Prediction
type Analyzer struct {
	gatewayURL  string
	apiKey      string
	model       string
	client      *http.Client
	imageClient *http.Client
	labels      LabelFetcher
	metrics     *metrics.VerificationMetrics
	logger      *logger.Logger
}

// NewAnalyzer creates a new analyzer. labels and m may be nil.
func NewAnalyzer(cfg config.AIConfig, labels LabelFetcher, m *metrics.VerificationMetrics, log *logger.Logger) *Analyzer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Analyzer{
		gatewayURL:  strings.TrimRight(cfg.GatewayURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		client:      &http.Client{Timeout: timeout},
		imageClient: &http.Client{Timeout: 15 * time.Second},
		labels:      labels,
		metrics:     m,
		logger:      log.WithComponent("analyzer"),
	}
}

type chatContent struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze classifies a packaging image given as a data URI or an http(s) URL
func (a *Analyzer) Analyze(ctx context.Context, image string) (*domain.Prediction, error) {
	image = strings.TrimSpace(image)
	if image == "" {
		return nil, errors.RequiredField("image", "No image provided")
	}
	if a.apiKey == "" {
		return nil, errors.Internal("AI gateway not configured")
	}

	if isHTTPURL(image) {
		dataURI, err := a.fetchImage(ctx, image)
		if err != nil {
			return nil, err
		}
		image = dataURI
	}

	answer, err := a.complete(ctx, image)
	if err != nil {
		return nil, err
	}

	return a.buildPrediction(ctx, answer), nil
}

// fetchImage downloads a remote image and re-encodes it as a data URI
func (a *Analyzer) fetchImage(ctx context.Context, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", errors.ImageUnavailable(
			"Could not load the image from this QR code.",
			"Please upload a photo of the medicine package directly instead of scanning a URL-based QR code.",
		)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := a.imageClient.Do(req)
	if err != nil {
		a.logger.Warn().Err(err).Str("url", imageURL).Msg("image fetch failed")
		return "", errors.ImageUnavailable(
			"Could not load the image from this QR code.",
			"Please upload a photo of the medicine package directly instead of scanning a URL-based QR code.",
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		a.logger.Warn().Int("status", resp.StatusCode).Str("url", imageURL).Msg("image fetch returned non-2xx")
		return "", errors.ImageUnavailable(
			"Unable to access the QR code image. Please try uploading the medicine package photo directly.",
			"This QR link may not be a direct image. Try taking a photo of the medicine package instead.",
		)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		a.logger.Warn().Err(err).Str("url", imageURL).Msg("image read failed")
		return "", errors.ImageUnavailable(
			"Could not load the image from this QR code.",
			"Please upload a photo of the medicine package directly instead of scanning a URL-based QR code.",
		)
	}

	return toDataURI(data), nil
}

// toDataURI encodes data with its sniffed MIME type, falling back to JPEG
func toDataURI(data []byte) string {
	mime := "image/jpeg"
	if detected := mimetype.Detect(data); strings.HasPrefix(detected.String(), "image/") {
		mime = detected.String()
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// complete sends one chat completion and decodes the model's JSON answer
func (a *Analyzer) complete(ctx context.Context, image string) (map[string]any, error) {
	payload := chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: analysisSystemPrompt},
			{Role: "user", Content: []chatContent{
				{Type: "text", Text: analysisUserPrompt},
				{Type: "image_url", ImageURL: &chatImageURL{URL: image}},
			}},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.gatewayURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		a.metrics.RecordAIRequest(metrics.AIOutcomeError, time.Since(start))
		a.logger.Error().Err(err).Msg("AI gateway request failed")
		return nil, errors.UpstreamFailed("AI analysis failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		a.metrics.RecordAIRequest(metrics.AIOutcomeRateLimited, time.Since(start))
		return nil, errors.RateLimited()
	case resp.StatusCode == http.StatusPaymentRequired:
		a.metrics.RecordAIRequest(metrics.AIOutcomePaymentRequired, time.Since(start))
		return nil, errors.PaymentRequired()
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		a.metrics.RecordAIRequest(metrics.AIOutcomeError, time.Since(start))
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		a.logger.Error().Int("status", resp.StatusCode).Str("body", string(text)).Msg("AI gateway error")
		return nil, errors.UpstreamFailed("AI analysis failed")
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil || len(chat.Choices) == 0 {
		a.metrics.RecordAIRequest(metrics.AIOutcomeError, time.Since(start))
		a.logger.Error().Err(err).Msg("failed to decode AI gateway response")
		return nil, errors.UpstreamFailed("Invalid AI response format")
	}

	answer, err := parseAnswer(chat.Choices[0].Message.Content)
	if err != nil {
		a.metrics.RecordAIRequest(metrics.AIOutcomeError, time.Since(start))
		a.logger.Error().Err(err).Str("content", string(chat.Choices[0].Message.Content)).Msg("failed to parse AI answer")
		return nil, errors.UpstreamFailed("Invalid AI response format")
	}

	a.metrics.RecordAIRequest(metrics.AIOutcomeOK, time.Since(start))
	return answer, nil
}

// parseAnswer accepts the message content either as a JSON object or as a
// string holding one
func parseAnswer(raw json.RawMessage) (map[string]any, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		raw = json.RawMessage(text)
	}

	var answer map[string]any
	if err := json.Unmarshal(raw, &answer); err != nil {
		return nil, err
	}
	if answer == nil {
		return nil, fmt.Errorf("empty answer")
	}
	return answer, nil
}

func (a *Analyzer) buildPrediction(ctx context.Context, answer map[string]any) *domain.Prediction {
	p := &domain.Prediction{
		Prediction:   domain.ParseStatus(stringValue(answer["prediction"])),
		Confidence:   confidenceValue(answer["confidence"]),
		MedicineName: orDefault(stringValue(answer["medicine_name"]), defaultMedicineName),
		BatchNumber:  orDefault(stringValue(answer["batch_number"]), notAvailable),
		ExpiryDate:   orDefault(stringValue(answer["expiry_date"]), notAvailable),
		Details:      orDefault(stringValue(answer["details"]), "Analysis completed"),
	}

	info := a.fetchLabel(ctx, p.MedicineName)

	p.Manufacturer = stringValue(answer["manufacturer"])
	if p.Manufacturer == "" && info != nil {
		p.Manufacturer = info.Manufacturer
	}
	if p.Manufacturer == "" {
		p.Manufacturer = "Unknown"
	}

	if info != nil {
		label := *info
		label.Manufacturer = ""
		p.FDAInfo = &label
	}
	return p
}

func (a *Analyzer) fetchLabel(ctx context.Context, medicineName string) *domain.FDAInfo {
	if a.labels == nil {
		return nil
	}
	info, err := a.labels.FetchLabel(ctx, medicineName)
	if err != nil {
		a.logger.Warn().Err(err).Str("medicine_name", medicineName).Msg("label lookup failed")
		return nil
	}
	return info
}

// stringValue renders a loosely typed JSON scalar as trimmed text
func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// confidenceValue reads a 0-100 score. Absent, zero, infinite or unparseable
// values fall back to the default.
func confidenceValue(v any) int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(t), "%"), 64)
		if err != nil {
			return defaultConfidence
		}
		f = parsed
	}
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return defaultConfidence
	}
	return domain.ClampConfidence(int(math.Round(f)))
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func isHTTPURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
