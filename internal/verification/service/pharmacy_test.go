package service

import (
	"context"
	"testing"

	"github.com/medguard/medguard-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPharmacyFinder_Find(t *testing.T) {
	f := NewPharmacyFinder(logger.Nop())
	lat, lng := 40.7128, -74.0060

	got := f.Find(context.Background(), "Advil", &lat, &lng)
	require.Len(t, got, 3)
	assert.Equal(t, "HealthPlus Pharmacy", got[0].Name)
	assert.False(t, got[2].Available)

	got[0].Name = "changed"
	assert.Equal(t, "HealthPlus Pharmacy", f.Find(context.Background(), "Advil", nil, nil)[0].Name)
}
