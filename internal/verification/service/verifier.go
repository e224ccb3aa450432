package service

import (
	"context"
	"strings"
	"time"

	"github.com/medguard/medguard-backend/internal/verification/domain"
	"github.com/medguard/medguard-backend/internal/verification/events"
	"github.com/medguard/medguard-backend/internal/verification/registry"
	"github.com/medguard/medguard-backend/internal/verification/repository"
	"github.com/medguard/medguard-backend/pkg/database"
	"github.com/medguard/medguard-backend/pkg/errors"
	"github.com/medguard/medguard-backend/pkg/logger"
	"github.com/medguard/medguard-backend/pkg/metrics"
)

// MessageBatchNotFound is returned with every unverified verdict
const MessageBatchNotFound = "Batch not found in verified medicine databases"

// VerifiedMedicineStore reads and writes settled batch verdicts
type VerifiedMedicineStore interface {
	GetByBatchNumber(ctx context.Context, batchNumber string) (*repository.VerifiedMedicine, error)
	Create(ctx context.Context, vm *repository.VerifiedMedicine) error
}

// Resolver picks the winning registry match for a medicine name
type Resolver interface {
	Resolve(ctx context.Context, medicineName string) *registry.Match
}

// Verifier settles whether a batch number is genuine. The store acts as a
// cache in front of the public registries.
type Verifier struct {
	store     VerifiedMedicineStore
	resolver  Resolver
	publisher *events.VerificationEventPublisher
	metrics   *metrics.VerificationMetrics
	logger    *logger.Logger
	now       func() time.Time
}

// NewVerifier creates a new verifier. publisher and m may be nil.
func NewVerifier(
	store VerifiedMedicineStore,
	resolver Resolver,
	publisher *events.VerificationEventPublisher,
	m *metrics.VerificationMetrics,
	log *logger.Logger,
) *Verifier {
	return &Verifier{
		store:     store,
		resolver:  resolver,
		publisher: publisher,
		metrics:   m,
		logger:    log.WithComponent("verifier"),
		now:       time.Now,
	}
}

// Verify returns the verdict for batchNumber. Registry and store failures are
// never returned; the worst outcome is an unverified verdict.
func (v *Verifier) Verify(ctx context.Context, batchNumber, medicineName string) (*domain.BatchVerification, error) {
	batchNumber = strings.TrimSpace(batchNumber)
	medicineName = strings.TrimSpace(medicineName)
	if batchNumber == "" {
		return nil, errors.RequiredField("batchNumber", "Batch number is required")
	}

	existing, err := v.store.GetByBatchNumber(ctx, batchNumber)
	switch {
	case err == nil:
		v.metrics.RecordVerification(metrics.PathCache)
		return fromRow(existing), nil
	case !errors.Is(err, errors.ErrNotFound):
		v.logger.Error().Err(err).Str("batch_number", batchNumber).Msg("failed to read verified medicine")
	}

	if medicineName == "" {
		return v.unverified(ctx, batchNumber, medicineName), nil
	}

	match := v.resolver.Resolve(ctx, medicineName)
	if match == nil {
		return v.unverified(ctx, batchNumber, medicineName), nil
	}

	row := &repository.VerifiedMedicine{
		BatchNumber:        batchNumber,
		MedicineName:       medicineName,
		IsGenuine:          true,
		VerificationSource: match.Source,
	}
	if match.Manufacturer != "" {
		manufacturer := match.Manufacturer
		row.Manufacturer = &manufacturer
	}

	err = row.SetMetadata(match.Metadata)
	if err == nil {
		err = v.store.Create(ctx, row)
	}
	if err == nil {
		v.metrics.RecordVerification(metrics.PathRegistry)
		result := fromRow(row)
		v.publisher.PublishBatchVerified(ctx, batchNumber, result, true)
		return result, nil
	}
	v.logInsertFailure(batchNumber, match.Source, err)

	v.metrics.RecordVerification(metrics.PathPersistErr)
	ts := v.now().UnixMilli()
	result := &domain.BatchVerification{
		IsVerified:   true,
		Timestamp:    &ts,
		Manufacturer: match.Manufacturer,
		MedicineName: match.GenericName,
		Source:       match.Source,
		Metadata:     match.Metadata,
	}
	v.publisher.PublishBatchVerified(ctx, batchNumber, result, false)
	return result, nil
}

func (v *Verifier) logInsertFailure(batchNumber, source string, err error) {
	event := v.logger.Warn()
	if database.IsUniqueViolation(err) {
		event = v.logger.Info()
	}
	event.Err(err).
		Str("batch_number", batchNumber).
		Str("source", source).
		Msg("could not persist verified medicine")
}

func (v *Verifier) unverified(ctx context.Context, batchNumber, medicineName string) *domain.BatchVerification {
	v.metrics.RecordVerification(metrics.PathUnverified)
	v.publisher.PublishBatchUnverified(ctx, batchNumber, medicineName)
	return &domain.BatchVerification{
		IsVerified: false,
		Message:    MessageBatchNotFound,
	}
}

// fromRow maps a stored row onto a verdict without altering any field
func fromRow(vm *repository.VerifiedMedicine) *domain.BatchVerification {
	ts := vm.VerificationTimestamp.UnixMilli()
	result := &domain.BatchVerification{
		IsVerified:   vm.IsGenuine,
		Timestamp:    &ts,
		MedicineName: vm.MedicineName,
		Source:       vm.VerificationSource,
		Metadata:     vm.MetadataMap(),
	}
	if vm.Manufacturer != nil {
		result.Manufacturer = *vm.Manufacturer
	}
	return result
}
