package events

import (
	"context"

	"github.com/medguard/medguard-backend/internal/verification/domain"
	"github.com/medguard/medguard-backend/pkg/logger"
	"github.com/medguard/medguard-backend/pkg/messaging"
)

// Publisher is the subset of messaging.Publisher used here
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// VerificationEventPublisher publishes verification events.
// A nil *VerificationEventPublisher is valid and publishes nothing.
type VerificationEventPublisher struct {
	publisher Publisher
	logger    *logger.Logger
}

// NewVerificationEventPublisher declares the exchange and returns a publisher on it
func NewVerificationEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*VerificationEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeVerificationEvents, "verification-service", log)
	if err != nil {
		return nil, err
	}

	return NewWithPublisher(publisher, log), nil
}

// NewWithPublisher wraps an existing publisher
func NewWithPublisher(p Publisher, log *logger.Logger) *VerificationEventPublisher {
	return &VerificationEventPublisher{
		publisher: p,
		logger:    log,
	}
}

// PublishBatchVerified publishes a batch newly confirmed by a registry
func (p *VerificationEventPublisher) PublishBatchVerified(ctx context.Context, batchNumber string, v *domain.BatchVerification, persisted bool) {
	if p == nil {
		return
	}

	data := messaging.BatchVerifiedEvent{
		BatchNumber:  batchNumber,
		MedicineName: v.MedicineName,
		Manufacturer: v.Manufacturer,
		Source:       v.Source,
		Cached:       persisted,
	}

	if err := p.publisher.Publish(ctx, messaging.EventBatchVerified, data); err != nil {
		p.logger.Error().Err(err).Str("batch_number", batchNumber).Msg("failed to publish batch verified event")
	}
}

// PublishBatchUnverified publishes a batch no registry recognised
func (p *VerificationEventPublisher) PublishBatchUnverified(ctx context.Context, batchNumber, medicineName string) {
	if p == nil {
		return
	}

	data := messaging.BatchUnverifiedEvent{
		BatchNumber:  batchNumber,
		MedicineName: medicineName,
	}

	if err := p.publisher.Publish(ctx, messaging.EventBatchUnverified, data); err != nil {
		p.logger.Error().Err(err).Str("batch_number", batchNumber).Msg("failed to publish batch unverified event")
	}
}

// PublishScanCompleted publishes a finished scan
func (p *VerificationEventPublisher) PublishScanCompleted(ctx context.Context, sessionID string, r *domain.ScanResult) {
	if p == nil {
		return
	}

	data := messaging.ScanCompletedEvent{
		SessionID:    sessionID,
		Input:        string(r.ScanMethod),
		Prediction:   string(r.Status),
		Confidence:   r.Confidence,
		MedicineName: r.MedicineName,
		BatchNumber:  r.BatchNumber,
	}

	if err := p.publisher.Publish(ctx, messaging.EventScanCompleted, data); err != nil {
		p.logger.Error().Err(err).Str("scan_id", r.ID).Msg("failed to publish scan completed event")
	}
}
