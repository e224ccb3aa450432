package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/medguard/medguard-backend/internal/verification/domain"
	"github.com/medguard/medguard-backend/internal/verification/events"
	"github.com/medguard/medguard-backend/pkg/logger"
	"github.com/medguard/medguard-backend/pkg/messaging"
	"github.com/medguard/medguard-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, interface{}) error {
	return errors.New("broker down")
}

func TestPublishBatchVerified(t *testing.T) {
	mock := testutil.NewMockPublisher()
	p := events.NewWithPublisher(mock, logger.Nop())

	p.PublishBatchVerified(context.Background(), "LOT1", &domain.BatchVerification{
		IsVerified:   true,
		MedicineName: "Ibuprofen",
		Manufacturer: "DailyMed Verified",
		Source:       "DailyMed (NLM)",
	}, true)

	mock.AssertEventPublished(t, messaging.EventBatchVerified)
	require.Len(t, mock.PublishedEvents, 1)

	data, ok := mock.PublishedEvents[0].Payload.(messaging.BatchVerifiedEvent)
	require.True(t, ok)
	assert.Equal(t, "LOT1", data.BatchNumber)
	assert.Equal(t, "DailyMed (NLM)", data.Source)
	assert.True(t, data.Cached)
}

func TestPublishScanCompleted(t *testing.T) {
	mock := testutil.NewMockPublisher()
	p := events.NewWithPublisher(mock, logger.Nop())

	p.PublishScanCompleted(context.Background(), "session-1", &domain.ScanResult{
		ID:           "scan-1",
		Status:       domain.StatusFake,
		Confidence:   88,
		MedicineName: "Unknown Medicine",
		ScanMethod:   domain.ScanMethodUpload,
	})

	require.Len(t, mock.PublishedEvents, 1)
	data := mock.PublishedEvents[0].Payload.(messaging.ScanCompletedEvent)
	assert.Equal(t, "session-1", data.SessionID)
	assert.Equal(t, "fake", data.Prediction)
	assert.Equal(t, "upload", data.Input)
}

func TestNilPublisherIsNoop(t *testing.T) {
	var p *events.VerificationEventPublisher

	assert.NotPanics(t, func() {
		p.PublishBatchVerified(context.Background(), "LOT1", &domain.BatchVerification{}, false)
		p.PublishBatchUnverified(context.Background(), "LOT1", "")
		p.PublishScanCompleted(context.Background(), "s", &domain.ScanResult{})
	})
}

func TestPublishErrorIsSwallowed(t *testing.T) {
	p := events.NewWithPublisher(failingPublisher{}, logger.Nop())

	assert.NotPanics(t, func() {
		p.PublishBatchUnverified(context.Background(), "LOT1", "Aspirin")
	})
}
