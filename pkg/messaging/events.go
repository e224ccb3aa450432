package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventBatchVerified   = "verification.batch.verified"
	EventBatchUnverified = "verification.batch.unverified"
	EventScanCompleted   = "verification.scan.completed"
)

// Exchange names
const (
	ExchangeVerificationEvents = "verification.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// BatchVerifiedEvent is published when a registry confirms a batch for the first time
type BatchVerifiedEvent struct {
	BatchNumber  string `json:"batch_number"`
	MedicineName string `json:"medicine_name,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Source       string `json:"source"`
	Cached       bool   `json:"cached"`
}

// BatchUnverifiedEvent is published when no registry recognised a batch
type BatchUnverifiedEvent struct {
	BatchNumber  string `json:"batch_number"`
	MedicineName string `json:"medicine_name,omitempty"`
}

// ScanCompletedEvent summarises a finished scan
type ScanCompletedEvent struct {
	SessionID    string `json:"session_id"`
	Input        string `json:"input"`
	Prediction   string `json:"prediction"`
	Confidence   int    `json:"confidence"`
	MedicineName string `json:"medicine_name"`
	BatchNumber  string `json:"batch_number,omitempty"`
}
