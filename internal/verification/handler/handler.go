package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/medguard/medguard-backend/internal/verification/domain"
	"github.com/medguard/medguard-backend/internal/verification/history"
	"github.com/medguard/medguard-backend/internal/verification/repository"
	"github.com/medguard/medguard-backend/pkg/errors"
	"github.com/medguard/medguard-backend/pkg/httputil"
	"github.com/medguard/medguard-backend/pkg/logger"
)

// Analyzer classifies a packaging image
type Analyzer interface {
	Analyze(ctx context.Context, image string) (*domain.Prediction, error)
}

// Verifier settles a batch number
type Verifier interface {
	Verify(ctx context.Context, batchNumber, medicineName string) (*domain.BatchVerification, error)
}

// Classifier classifies a QR payload
type Classifier interface {
	Classify(ctx context.Context, qrData string) *domain.QRResult
}

// Scanner runs scans and owns the per-session history
type Scanner interface {
	ScanImage(ctx context.Context, sessionID, image string) (*domain.ScanResult, error)
	ScanQR(ctx context.Context, sessionID, qrData string) (*domain.ScanResult, error)
	History(sessionID string) []domain.ScanResult
	ImportHistory(sessionID string, data []byte) error
}

// PharmacyFinder lists pharmacies stocking a medicine
type PharmacyFinder interface {
	Find(ctx context.Context, medicineName string, latitude, longitude *float64) []domain.Pharmacy
}

// ReferenceReader reads the medicine reference tables
type ReferenceReader interface {
	FindMedicineInfo(ctx context.Context, name string) (*repository.MedicineInfo, error)
	FindFakeEffect(ctx context.Context, name string) (*repository.FakeMedicineEffect, error)
}

// VerificationHandler serves the scan, verification and lookup endpoints
type VerificationHandler struct {
	analyzer   Analyzer
	verifier   Verifier
	classifier Classifier
	scanner    Scanner
	pharmacies PharmacyFinder
	reference  ReferenceReader
	logger     *logger.Logger
}

// NewVerificationHandler creates a new verification handler
func NewVerificationHandler(
	analyzer Analyzer,
	verifier Verifier,
	classifier Classifier,
	scanner Scanner,
	pharmacies PharmacyFinder,
	reference ReferenceReader,
	log *logger.Logger,
) *VerificationHandler {
	return &VerificationHandler{
		analyzer:   analyzer,
		verifier:   verifier,
		classifier: classifier,
		scanner:    scanner,
		pharmacies: pharmacies,
		reference:  reference,
		logger:     log,
	}
}

// Routes returns the API routes, to be mounted under /api/v1
func (h *VerificationHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/analyze", h.Analyze)
	r.Post("/verify-batch", h.VerifyBatch)
	r.Post("/qr", h.ProcessQR)
	r.Post("/pharmacies", h.FindPharmacies)

	r.Route("/scan", func(r chi.Router) {
		r.Post("/image", h.ScanImage)
		r.Post("/qr", h.ScanQR)
	})

	r.Get("/history", h.GetHistory)
	r.Put("/history", h.ImportHistory)

	r.Route("/medicines", func(r chi.Router) {
		r.Get("/info", h.GetMedicineInfo)
		r.Get("/fake-effects", h.GetFakeEffect)
	})

	return r
}

// AnalyzeRequest carries an image as a data URI or an http(s) URL
type AnalyzeRequest struct {
	Image string `json:"image"`
}

// VerifyBatchRequest asks whether a batch is genuine
type VerifyBatchRequest struct {
	BatchNumber  string `json:"batchNumber" validate:"max=128"`
	MedicineName string `json:"medicineName" validate:"max=256"`
}

// QRRequest carries a raw scanned QR payload
type QRRequest struct {
	QRData string `json:"qrData" validate:"max=8192"`
}

// PharmacyRequest asks for pharmacies near an optional location
type PharmacyRequest struct {
	MedicineName string   `json:"medicineName" validate:"max=256"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,longitude"`
}

// Analyze forwards an image to AI analysis without recording a scan
func (h *VerificationHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		httputil.Error(w, errors.RequiredField("image", "No image provided"))
		return
	}

	prediction, err := h.analyzer.Analyze(r.Context(), req.Image)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, prediction)
}

// VerifyBatch checks a batch number against the verified medicine databases
func (h *VerificationHandler) VerifyBatch(w http.ResponseWriter, r *http.Request) {
	var req VerifyBatchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if strings.TrimSpace(req.BatchNumber) == "" {
		httputil.Error(w, errors.RequiredField("batchNumber", "Batch number is required"))
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.verifier.Verify(r.Context(), req.BatchNumber, req.MedicineName)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// ProcessQR classifies a QR payload and returns the extracted fields
func (h *VerificationHandler) ProcessQR(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQR(w, r)
	if !ok {
		return
	}

	httputil.JSON(w, http.StatusOK, h.classifier.Classify(r.Context(), req.QRData))
}

// ScanImage runs a full scan of an uploaded image
func (h *VerificationHandler) ScanImage(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		httputil.Error(w, errors.RequiredField("image", "No image provided"))
		return
	}

	result, err := h.scanner.ScanImage(r.Context(), httputil.GetSessionID(r.Context()), req.Image)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// ScanQR runs a full scan of a QR payload
func (h *VerificationHandler) ScanQR(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQR(w, r)
	if !ok {
		return
	}

	result, err := h.scanner.ScanQR(r.Context(), httputil.GetSessionID(r.Context()), req.QRData)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// FindPharmacies lists pharmacies stocking a medicine
func (h *VerificationHandler) FindPharmacies(w http.ResponseWriter, r *http.Request) {
	var req PharmacyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		httputil.Error(w, errors.Validation(map[string]string{
			"location": "latitude and longitude must be set together",
		}))
		return
	}

	pharmacies := h.pharmacies.Find(r.Context(), req.MedicineName, req.Latitude, req.Longitude)
	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"pharmacies": pharmacies,
	})
}

// GetHistory returns the caller's session history, newest first, with verdict
// counts over the whole history. ?status= narrows the scans to one verdict.
func (h *VerificationHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := httputil.GetSessionID(r.Context())
	scans := h.scanner.History(sessionID)
	stats := history.Summarize(scans)

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := domain.Status(strings.ToLower(raw))
		switch status {
		case domain.StatusGenuine, domain.StatusFake, domain.StatusSuspicious:
			scans = history.FilterStatus(scans, status)
		default:
			httputil.Error(w, errors.Validation(map[string]string{
				"status": "must be one of genuine, fake, suspicious",
			}))
			return
		}
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"sessionId": sessionID,
		"stats":     stats,
		"scans":     scans,
	})
}

// ImportHistory replaces the caller's session history with an exported array
func (h *VerificationHandler) ImportHistory(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.Error(w, err)
		return
	}

	sessionID := httputil.GetSessionID(r.Context())
	if err := h.scanner.ImportHistory(sessionID, body); err != nil {
		httputil.Error(w, err)
		return
	}

	h.GetHistory(w, r)
}

// GetMedicineInfo returns reference text for a genuine medicine
func (h *VerificationHandler) GetMedicineInfo(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		httputil.Error(w, errors.RequiredField("name", "Medicine name is required"))
		return
	}

	info, err := h.reference.FindMedicineInfo(r.Context(), name)
	if err != nil {
		h.logLookupError(err, name)
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, info)
}

// GetFakeEffect returns the known harm of a counterfeit medicine
func (h *VerificationHandler) GetFakeEffect(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		httputil.Error(w, errors.RequiredField("name", "Medicine name is required"))
		return
	}

	effect, err := h.reference.FindFakeEffect(r.Context(), name)
	if err != nil {
		h.logLookupError(err, name)
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, effect)
}

func (h *VerificationHandler) logLookupError(err error, name string) {
	if errors.Is(err, errors.ErrNotFound) {
		return
	}
	h.logger.Error().Err(err).Str("name", name).Msg("reference lookup failed")
}

func decodeQR(w http.ResponseWriter, r *http.Request) (QRRequest, bool) {
	var req QRRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return req, false
	}
	if strings.TrimSpace(req.QRData) == "" {
		httputil.Error(w, errors.RequiredField("qrData", "Invalid QR data"))
		return req, false
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return req, false
	}
	return req, true
}
