package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/medguard/medguard-backend/pkg/database"
	"github.com/medguard/medguard-backend/pkg/errors"
)

// VerifiedMedicine is a batch whose authenticity has been settled
type VerifiedMedicine struct {
	ID                    string         `db:"id" json:"id"`
	BatchNumber           string         `db:"batch_number" json:"batch_number"`
	MedicineName          string         `db:"medicine_name" json:"medicine_name"`
	Manufacturer          *string        `db:"manufacturer" json:"manufacturer,omitempty"`
	IsGenuine             bool           `db:"is_genuine" json:"is_genuine"`
	VerificationSource    string         `db:"verification_source" json:"verification_source"`
	VerificationTimestamp time.Time      `db:"verification_timestamp" json:"verification_timestamp"`
	Metadata              types.JSONText `db:"metadata" json:"metadata"`
	ExpiryDate            *time.Time     `db:"expiry_date" json:"expiry_date,omitempty"`
	ManufactureDate       *time.Time     `db:"manufacture_date" json:"manufacture_date,omitempty"`
	CreatedAt             time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at" json:"updated_at"`
}

// MetadataMap decodes the stored metadata. Invalid or empty JSON yields nil.
func (v *VerifiedMedicine) MetadataMap() map[string]any {
	if len(v.Metadata) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(v.Metadata, &m); err != nil {
		return nil
	}
	return m
}

// SetMetadata encodes m as the row's metadata
func (v *VerifiedMedicine) SetMetadata(m map[string]any) error {
	if m == nil {
		v.Metadata = types.JSONText("{}")
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	v.Metadata = types.JSONText(b)
	return nil
}

const verifiedMedicineColumns = `
	id, batch_number, medicine_name, manufacturer, is_genuine,
	verification_source, verification_timestamp, metadata,
	expiry_date, manufacture_date, created_at, updated_at
`

// VerifiedMedicineRepository handles verified_medicines persistence
type VerifiedMedicineRepository struct {
	db *database.DB
}

// NewVerifiedMedicineRepository creates a new verified medicine repository
func NewVerifiedMedicineRepository(db *database.DB) *VerifiedMedicineRepository {
	return &VerifiedMedicineRepository{db: db}
}

// GetByBatchNumber gets a verified medicine by its exact batch number
func (r *VerifiedMedicineRepository) GetByBatchNumber(ctx context.Context, batchNumber string) (*VerifiedMedicine, error) {
	var vm VerifiedMedicine
	query := `SELECT` + verifiedMedicineColumns + `FROM verified_medicines WHERE batch_number = $1`
	if err := r.db.GetContext(ctx, &vm, query, batchNumber); err != nil {
		if database.IsNoRows(err) {
			return nil, errors.NotFound("verified medicine")
		}
		return nil, err
	}
	return &vm, nil
}

// Create inserts a verified medicine and fills in the server-assigned columns
func (r *VerifiedMedicineRepository) Create(ctx context.Context, vm *VerifiedMedicine) error {
	if vm.ID == "" {
		vm.ID = uuid.New().String()
	}
	if len(vm.Metadata) == 0 {
		vm.Metadata = types.JSONText("{}")
	}

	query := `
		INSERT INTO verified_medicines (
			id, batch_number, medicine_name, manufacturer, is_genuine,
			verification_source, metadata, expiry_date, manufacture_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING verification_timestamp, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		vm.ID, vm.BatchNumber, vm.MedicineName, vm.Manufacturer, vm.IsGenuine,
		vm.VerificationSource, vm.Metadata, vm.ExpiryDate, vm.ManufactureDate,
	).Scan(&vm.VerificationTimestamp, &vm.CreatedAt, &vm.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			appErr.Err = err
			return appErr
		}
		return err
	}
	return nil
}
