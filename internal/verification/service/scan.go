package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/medguard/medguard-backend/internal/verification/domain"
	"github.com/medguard/medguard-backend/internal/verification/events"
	"github.com/medguard/medguard-backend/internal/verification/history"
	"github.com/medguard/medguard-backend/internal/verification/repository"
	"github.com/medguard/medguard-backend/pkg/errors"
	"github.com/medguard/medguard-backend/pkg/logger"
	"github.com/medguard/medguard-backend/pkg/metrics"
)

// Confidence reported for QR scans, which carry no image to judge
const (
	qrVerifiedConfidence   = 90
	qrUnverifiedConfidence = 40
	qrNoBatchConfidence    = 25
)

// ImageAnalyzer classifies a packaging image
type ImageAnalyzer interface {
	Analyze(ctx context.Context, image string) (*domain.Prediction, error)
}

// PayloadClassifier classifies a raw QR payload
type PayloadClassifier interface {
	Classify(ctx context.Context, qrData string) *domain.QRResult
}

// BatchVerifier settles a batch number
type BatchVerifier interface {
	Verify(ctx context.Context, batchNumber, medicineName string) (*domain.BatchVerification, error)
}

// ReferenceReader reads the static medicine reference tables
type ReferenceReader interface {
	FindMedicineInfo(ctx context.Context, name string) (*repository.MedicineInfo, error)
	FindFakeEffect(ctx context.Context, name string) (*repository.FakeMedicineEffect, error)
}

// Scanner runs a full scan: classification, batch check, enrichment and
// recording in the session history
type Scanner struct {
	analyzer   ImageAnalyzer
	classifier PayloadClassifier
	verifier   BatchVerifier
	reference  ReferenceReader
	sessions   *history.Sessions
	publisher  *events.VerificationEventPublisher
	metrics    *metrics.VerificationMetrics
	logger     *logger.Logger
	now        func() time.Time
}

// NewScanner creates a new scanner. reference, publisher and m may be nil.
func NewScanner(
	analyzer ImageAnalyzer,
	classifier PayloadClassifier,
	verifier BatchVerifier,
	reference ReferenceReader,
	sessions *history.Sessions,
	publisher *events.VerificationEventPublisher,
	m *metrics.VerificationMetrics,
	log *logger.Logger,
) *Scanner {
	return &Scanner{
		analyzer:   analyzer,
		classifier: classifier,
		verifier:   verifier,
		reference:  reference,
		sessions:   sessions,
		publisher:  publisher,
		metrics:    m,
		logger:     log.WithComponent("scanner"),
		now:        time.Now,
	}
}

// ScanImage analyzes an uploaded image and records the result
func (s *Scanner) ScanImage(ctx context.Context, sessionID, image string) (*domain.ScanResult, error) {
	return s.scanImage(ctx, sessionID, image, domain.ScanMethodUpload)
}

// ScanQR classifies a QR payload and records the result. Image links are
// sent through image analysis.
func (s *Scanner) ScanQR(ctx context.Context, sessionID, qrData string) (*domain.ScanResult, error) {
	if strings.TrimSpace(qrData) == "" {
		return nil, errors.RequiredField("qrData", "Invalid QR data")
	}

	qr := s.classifier.Classify(ctx, qrData)
	if qr.Type == domain.QRTypeImageURL {
		return s.scanImage(ctx, sessionID, qr.ImageURL, domain.ScanMethodQR)
	}

	result := s.fromExtracted(ctx, qr)
	return s.finish(ctx, sessionID, result), nil
}

// History returns the scans recorded for a session, newest first
func (s *Scanner) History(sessionID string) []domain.ScanResult {
	return s.sessions.Get(sessionID).List()
}

// ImportHistory replaces a session's history with an exported array
func (s *Scanner) ImportHistory(sessionID string, data []byte) error {
	if err := s.sessions.Get(sessionID).UnmarshalJSON(data); err != nil {
		return errors.BadRequest("history must be an array of scan results")
	}
	return nil
}

func (s *Scanner) scanImage(ctx context.Context, sessionID, image string, method domain.ScanMethod) (*domain.ScanResult, error) {
	p, err := s.analyzer.Analyze(ctx, image)
	if err != nil {
		return nil, err
	}

	result := &domain.ScanResult{
		Status:       p.Prediction,
		Confidence:   domain.ClampConfidence(p.Confidence),
		MedicineName: p.MedicineName,
		BatchNumber:  p.BatchNumber,
		ExpiryDate:   p.ExpiryDate,
		Manufacturer: p.Manufacturer,
		Details:      p.Details,
		FDAInfo:      p.FDAInfo,
		ScanMethod:   method,
	}
	result.BlockchainVerification = s.verify(ctx, result.BatchNumber, result.MedicineName)

	return s.finish(ctx, sessionID, result), nil
}

// fromExtracted builds a result from the fields a QR payload carried
func (s *Scanner) fromExtracted(ctx context.Context, qr *domain.QRResult) *domain.ScanResult {
	ext := qr.Extracted.ExtractedInfo
	result := &domain.ScanResult{
		Status:       domain.StatusSuspicious,
		MedicineName: deref(ext.MedicineName, defaultMedicineName),
		BatchNumber:  deref(ext.BatchNumber, notAvailable),
		ExpiryDate:   deref(ext.ExpiryDate, notAvailable),
		Manufacturer: deref(ext.Manufacturer, ""),
		ScanMethod:   domain.ScanMethodQR,
	}

	switch {
	case ext.Empty():
		result.Confidence = 0
		result.Details = "No medicine information could be read from this QR code. Try uploading a photo of the package instead."
	case ext.BatchNumber == nil:
		result.Confidence = qrNoBatchConfidence
		result.Details = "The QR code does not include a batch number, so authenticity could not be confirmed."
	default:
		name := ""
		if ext.MedicineName != nil {
			name = *ext.MedicineName
		}
		bv := s.verify(ctx, *ext.BatchNumber, name)
		result.BlockchainVerification = bv

		if bv != nil && bv.IsVerified {
			result.Status = domain.StatusGenuine
			result.Confidence = qrVerifiedConfidence
			result.Details = fmt.Sprintf("Batch %s verified by %s.", result.BatchNumber, bv.Source)
			if ext.MedicineName == nil && bv.MedicineName != "" {
				result.MedicineName = bv.MedicineName
			}
			if result.Manufacturer == "" {
				result.Manufacturer = bv.Manufacturer
			}
		} else {
			result.Confidence = qrUnverifiedConfidence
			result.Details = "Batch number not found in verified medicine databases. Please verify with a pharmacist."
		}
	}

	if result.Manufacturer == "" {
		result.Manufacturer = "Unknown"
	}
	if qr.Extracted.FoundInWebsite {
		result.Details += " Details read from " + qr.Extracted.WebsiteURL + "."
	}
	return result
}

// verify checks a batch, returning nil when there is nothing to check or the
// check could not run
func (s *Scanner) verify(ctx context.Context, batchNumber, medicineName string) *domain.BatchVerification {
	if batchNumber == "" || strings.EqualFold(batchNumber, notAvailable) {
		return nil
	}
	if medicineName == defaultMedicineName {
		medicineName = ""
	}

	bv, err := s.verifier.Verify(ctx, batchNumber, medicineName)
	if err != nil {
		s.logger.Warn().Err(err).Str("batch_number", batchNumber).Msg("batch verification failed")
		return nil
	}
	return bv
}

// finish enriches a result, appends it to the session history and returns
// the stored record
func (s *Scanner) finish(ctx context.Context, sessionID string, result *domain.ScanResult) *domain.ScanResult {
	result.IsExpired = IsExpired(result.ExpiryDate, s.now())
	s.attachReference(ctx, result)
	result.VoiceMessage = VoiceMessage(result)

	stored := s.sessions.Get(sessionID).Append(*result)

	s.metrics.RecordScan(string(stored.ScanMethod), string(stored.Status))
	s.publisher.PublishScanCompleted(ctx, sessionID, &stored)

	s.logger.Info().
		Str("session_id", sessionID).
		Str("scan_id", stored.ID).
		Str("status", string(stored.Status)).
		Str("method", string(stored.ScanMethod)).
		Msg("scan completed")

	return &stored
}

// attachReference fills purpose for genuine medicines and side effects for
// fakes, preferring the reference tables over the drug label
func (s *Scanner) attachReference(ctx context.Context, result *domain.ScanResult) {
	name := result.MedicineName
	lookup := s.reference != nil && name != "" && name != defaultMedicineName

	switch result.Status {
	case domain.StatusGenuine:
		if lookup {
			info, err := s.reference.FindMedicineInfo(ctx, name)
			if err == nil && info.Purpose != nil {
				result.Purpose = *info.Purpose
			} else if err != nil && !errors.Is(err, errors.ErrNotFound) {
				s.logger.Warn().Err(err).Str("medicine_name", name).Msg("medicine info lookup failed")
			}
		}
		if result.Purpose == "" && result.FDAInfo != nil && result.FDAInfo.Purpose != notAvailable {
			result.Purpose = result.FDAInfo.Purpose
		}
	case domain.StatusFake:
		if lookup {
			effect, err := s.reference.FindFakeEffect(ctx, name)
			if err == nil && effect.SideEffects != nil {
				result.SideEffects = *effect.SideEffects
			} else if err != nil && !errors.Is(err, errors.ErrNotFound) {
				s.logger.Warn().Err(err).Str("medicine_name", name).Msg("fake effect lookup failed")
			}
		}
	}
}

func deref(p *string, fallback string) string {
	if p == nil || *p == "" {
		return fallback
	}
	return *p
}
