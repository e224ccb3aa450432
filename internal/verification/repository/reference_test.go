package repository_test

import (
	"context"
	"testing"

	"github.com/medguard/medguard-backend/internal/verification/repository"
	apperrors "github.com/medguard/medguard-backend/pkg/errors"
	"github.com/medguard/medguard-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceRepository_FindMedicineInfo(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("FROM medicine_info").
		WithArgs("%paracetamol%").
		WillReturnRows(testutil.MockRows("id", "name", "purpose", "description").
			AddRow("1", "Paracetamol 500mg", "Pain relief", "Analgesic and antipyretic"))

	repo := repository.NewReferenceRepository(mockDB.Database())
	info, err := repo.FindMedicineInfo(context.Background(), " paracetamol ")
	require.NoError(t, err)

	assert.Equal(t, "Paracetamol 500mg", info.Name)
	require.NotNil(t, info.Purpose)
	assert.Equal(t, "Pain relief", *info.Purpose)
	mockDB.ExpectationsWereMet(t)
}

func TestReferenceRepository_FindMedicineInfo_EscapesWildcards(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("FROM medicine_info").
		WithArgs(`%100\%\_pure%`).
		WillReturnRows(testutil.MockRows("id", "name", "purpose", "description"))

	repo := repository.NewReferenceRepository(mockDB.Database())
	_, err := repo.FindMedicineInfo(context.Background(), "100%_pure")

	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	mockDB.ExpectationsWereMet(t)
}

func TestReferenceRepository_FindFakeEffect(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("FROM fake_medicine_effects").
		WithArgs("%Coartem%").
		WillReturnRows(testutil.MockRows("id", "name", "side_effects", "reason").
			AddRow("2", "Coartem", "Treatment failure, drug resistance", "No active ingredient"))

	repo := repository.NewReferenceRepository(mockDB.Database())
	effect, err := repo.FindFakeEffect(context.Background(), "Coartem")
	require.NoError(t, err)

	require.NotNil(t, effect.SideEffects)
	assert.Equal(t, "Treatment failure, drug resistance", *effect.SideEffects)
	mockDB.ExpectationsWereMet(t)
}

func TestReferenceRepository_EmptyName(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	repo := repository.NewReferenceRepository(mockDB.Database())

	_, err := repo.FindMedicineInfo(context.Background(), "")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = repo.FindFakeEffect(context.Background(), "   ")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	mockDB.ExpectationsWereMet(t)
}
