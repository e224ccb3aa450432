package repository

import (
	"context"
	"strings"

	"github.com/medguard/medguard-backend/pkg/database"
	"github.com/medguard/medguard-backend/pkg/errors"
)

// MedicineInfo is static reference text about a genuine medicine
type MedicineInfo struct {
	ID          string  `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Purpose     *string `db:"purpose" json:"purpose,omitempty"`
	Description *string `db:"description" json:"description,omitempty"`
}

// FakeMedicineEffect describes the harm a known counterfeit causes
type FakeMedicineEffect struct {
	ID          string  `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	SideEffects *string `db:"side_effects" json:"side_effects,omitempty"`
	Reason      *string `db:"reason" json:"reason,omitempty"`
}

// ReferenceRepository reads the medicine reference tables
type ReferenceRepository struct {
	db *database.DB
}

// NewReferenceRepository creates a new reference repository
func NewReferenceRepository(db *database.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a case-insensitive substring pattern for ILIKE
func containsPattern(name string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(name)) + "%"
}

// FindMedicineInfo returns the closest medicine_info row whose name contains name
func (r *ReferenceRepository) FindMedicineInfo(ctx context.Context, name string) (*MedicineInfo, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.NotFound("medicine info")
	}

	var info MedicineInfo
	query := `
		SELECT id, name, purpose, description
		FROM medicine_info
		WHERE name ILIKE $1
		ORDER BY LENGTH(name), name
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &info, query, containsPattern(name)); err != nil {
		if database.IsNoRows(err) {
			return nil, errors.NotFound("medicine info")
		}
		return nil, err
	}
	return &info, nil
}

// FindFakeEffect returns the closest fake_medicine_effects row whose name contains name
func (r *ReferenceRepository) FindFakeEffect(ctx context.Context, name string) (*FakeMedicineEffect, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.NotFound("fake medicine effect")
	}

	var effect FakeMedicineEffect
	query := `
		SELECT id, name, side_effects, reason
		FROM fake_medicine_effects
		WHERE name ILIKE $1
		ORDER BY LENGTH(name), name
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &effect, query, containsPattern(name)); err != nil {
		if database.IsNoRows(err) {
			return nil, errors.NotFound("fake medicine effect")
		}
		return nil, err
	}
	return &effect, nil
}
