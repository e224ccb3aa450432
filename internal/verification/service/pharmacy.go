package service

import (
	"context"

	"github.com/medguard/medguard-backend/internal/verification/domain"
	"github.com/medguard/medguard-backend/pkg/logger"
)

// nearbyPharmacies is the fixed catalogue served until a pharmacy provider
// is integrated
var nearbyPharmacies = []domain.Pharmacy{
	{
		Name:      "HealthPlus Pharmacy",
		Distance:  "0.5 km",
		Price:     "$12.99",
		Available: true,
		Rating:    4.5,
		Address:   "123 Main St",
		Phone:     "+1-555-0123",
	},
	{
		Name:      "MediCare Express",
		Distance:  "1.2 km",
		Price:     "$11.49",
		Available: true,
		Rating:    4.8,
		Address:   "456 Oak Ave",
		Phone:     "+1-555-0456",
	},
	{
		Name:      "QuickMed Pharmacy",
		Distance:  "2.3 km",
		Price:     "$13.99",
		Available: false,
		Rating:    4.2,
		Address:   "789 Pine Rd",
		Phone:     "+1-555-0789",
	},
}

// PharmacyFinder lists pharmacies stocking a medicine
type PharmacyFinder struct {
	logger *logger.Logger
}

// NewPharmacyFinder creates a new pharmacy finder
func NewPharmacyFinder(log *logger.Logger) *PharmacyFinder {
	return &PharmacyFinder{logger: log.WithComponent("pharmacy")}
}

// Find returns pharmacies near the given coordinates. Coordinates are optional.
func (f *PharmacyFinder) Find(ctx context.Context, medicineName string, latitude, longitude *float64) []domain.Pharmacy {
	event := f.logger.Debug().Str("medicine_name", medicineName)
	if latitude != nil && longitude != nil {
		event = event.Float64("latitude", *latitude).Float64("longitude", *longitude)
	}
	event.Msg("pharmacy lookup")

	out := make([]domain.Pharmacy, len(nearbyPharmacies))
	copy(out, nearbyPharmacies)
	return out
}
