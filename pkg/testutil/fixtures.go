package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// VerifiedMedicineFixture represents a verified_medicines row
type VerifiedMedicineFixture struct {
	ID                    string
	BatchNumber           string
	MedicineName          string
	Manufacturer          string
	IsGenuine             bool
	VerificationSource    string
	VerificationTimestamp time.Time
	Metadata              string
}

// MedicineInfoFixture represents a medicine_info row
type MedicineInfoFixture struct {
	ID          string
	Name        string
	Purpose     string
	Description string
}

// FakeEffectFixture represents a fake_medicine_effects row
type FakeEffectFixture struct {
	ID          string
	Name        string
	SideEffects string
	Reason      string
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// VerifiedMedicine creates a verified medicine fixture with defaults
func (f *FixtureFactory) VerifiedMedicine(opts ...func(*VerifiedMedicineFixture)) VerifiedMedicineFixture {
	seq := f.nextSeq()

	vm := VerifiedMedicineFixture{
		ID:                    uuid.New().String(),
		BatchNumber:           fmt.Sprintf("LOT%05d", seq),
		MedicineName:          "Paracetamol",
		Manufacturer:          "Acme Pharma",
		IsGenuine:             true,
		VerificationSource:    "OpenFDA (US FDA)",
		VerificationTimestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Metadata:              `{}`,
	}

	for _, opt := range opts {
		opt(&vm)
	}

	return vm
}

// WithBatchNumber sets the batch number
func WithBatchNumber(batch string) func(*VerifiedMedicineFixture) {
	return func(vm *VerifiedMedicineFixture) {
		vm.BatchNumber = batch
	}
}

// WithMedicineName sets the medicine name
func WithMedicineName(name string) func(*VerifiedMedicineFixture) {
	return func(vm *VerifiedMedicineFixture) {
		vm.MedicineName = name
	}
}

// WithGenuine sets the stored verdict
func WithGenuine(genuine bool) func(*VerifiedMedicineFixture) {
	return func(vm *VerifiedMedicineFixture) {
		vm.IsGenuine = genuine
	}
}

// WithSource sets the verification source
func WithSource(source string) func(*VerifiedMedicineFixture) {
	return func(vm *VerifiedMedicineFixture) {
		vm.VerificationSource = source
	}
}

// MedicineInfo creates a reference row with defaults
func (f *FixtureFactory) MedicineInfo(name string) MedicineInfoFixture {
	return MedicineInfoFixture{
		ID:          uuid.New().String(),
		Name:        name,
		Purpose:     "Pain relief and fever reduction",
		Description: fmt.Sprintf("%s reference entry", name),
	}
}

// FakeEffect creates a fake-medicine row with defaults
func (f *FixtureFactory) FakeEffect(name string) FakeEffectFixture {
	return FakeEffectFixture{
		ID:          uuid.New().String(),
		Name:        name,
		SideEffects: "Liver damage, allergic reactions",
		Reason:      "Counterfeit filler substances",
	}
}

// InsertVerifiedMedicine writes the fixture to db
func InsertVerifiedMedicine(ctx context.Context, db *sqlx.DB, vm VerifiedMedicineFixture) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO verified_medicines (
			id, batch_number, medicine_name, manufacturer, is_genuine,
			verification_source, verification_timestamp, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, vm.ID, vm.BatchNumber, vm.MedicineName, vm.Manufacturer, vm.IsGenuine,
		vm.VerificationSource, vm.VerificationTimestamp, vm.Metadata)
	return err
}

// InsertMedicineInfo writes the fixture to db
func InsertMedicineInfo(ctx context.Context, db *sqlx.DB, mi MedicineInfoFixture) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO medicine_info (id, name, purpose, description) VALUES ($1, $2, $3, $4)`,
		mi.ID, mi.Name, mi.Purpose, mi.Description)
	return err
}

// InsertFakeEffect writes the fixture to db
func InsertFakeEffect(ctx context.Context, db *sqlx.DB, fe FakeEffectFixture) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO fake_medicine_effects (id, name, side_effects, reason) VALUES ($1, $2, $3, $4)`,
		fe.ID, fe.Name, fe.SideEffects, fe.Reason)
	return err
}
