package extractor

import (
	"testing"

	"github.com/medguard/medguard-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_LabelLine(t *testing.T) {
	info := Extract("MFG: Acme Pharma | Batch: LOT98765 | EXP: 03/2027")

	require.NotNil(t, info.BatchNumber)
	assert.Equal(t, "LOT98765", *info.BatchNumber)
	require.NotNil(t, info.ExpiryDate)
	assert.Equal(t, "03/2027", *info.ExpiryDate)
	require.NotNil(t, info.Manufacturer)
	assert.Contains(t, *info.Manufacturer, "Acme Pharma")
	assert.Nil(t, info.MedicineName)
}

func TestExtract_BatchPatterns(t *testing.T) {
	cases := []testutil.TestCase[string, string]{
		{Name: "batch colon", Input: "Batch: ABC123", Expected: "ABC123"},
		{Name: "lowercase value uppercased", Input: "batch abc-123", Expected: "ABC-123"},
		{Name: "batch no", Input: "Batch No. X1", Expected: "X1"},
		{Name: "batch number", Input: "Batch Number: 7731", Expected: "7731"},
		{Name: "lot no", Input: "Lot No: l-55", Expected: "L-55"},
		{Name: "lot", Input: "LOT 4711A", Expected: "4711A"},
		{Name: "lot glued to code", Input: "LOT4711A", Expected: "4711A"},
		{Name: "lot dot", Input: "LOT.URL55", Expected: "URL55"},
		{Name: "mfg code", Input: "MFG 2024-77", Expected: "2024-77"},
		{Name: "batch before lot", Input: "Lot: L1 Batch: B2", Expected: "B2"},
		{Name: "lotion is not a lot", Input: "Calamine Lotion 100ml", Expected: ""},
		{Name: "batches is not a batch", Input: "Paracetamol Tablets | Batches shipped weekly", Expected: ""},
		{Name: "lottery is not a lot", Input: "Lottery2024 winner", Expected: ""},
	}

	testutil.RunTestCases(t, cases, func(text string) (string, error) {
		info := Extract(text)
		if info.BatchNumber == nil {
			return "", nil
		}
		return *info.BatchNumber, nil
	})
}

func TestExtract_MfgWithoutDigitsIsNotABatch(t *testing.T) {
	info := Extract("Mfg: Sunrise Labs")

	assert.Nil(t, info.BatchNumber)
	require.NotNil(t, info.Manufacturer)
	assert.Equal(t, "Sunrise Labs", *info.Manufacturer)
}

func TestExtract_ExpiryPatterns(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"full date", "EXP: 12/05/2025", "12/05/2025"},
		{"short year", "Expiry 01-02-26", "01-02-26"},
		{"month year", "exp 11/2025", "11/2025"},
		{"month short year", "EXP. 11/25", "11/25"},
		{"expiry date label", "Expiry Date: 31.12.2026", "31.12.2026"},
		{"valid until", "Valid until 06/2027", "06/2027"},
		{"use before", "Use before: 15-08-2025", "15-08-2025"},
		{"best before", "Best Before 09/26", "09/26"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Extract(tt.text)
			require.NotNil(t, info.ExpiryDate)
			assert.Equal(t, tt.want, *info.ExpiryDate)
		})
	}
}

func TestExtract_ManufacturerPatterns(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"manufactured by", "Manufactured by: Cipla Ltd; Batch: 1", "Cipla Ltd"},
		{"mfd by", "Mfd. by Sun Pharma\nLot 7", "Sun Pharma"},
		{"mfr", "Mfr: Novartis AG", "Novartis AG"},
		{"manufacturer stops at next label", "Manufacturer: Pfizer Inc Batch: X9", "Pfizer Inc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Extract(tt.text)
			require.NotNil(t, info.Manufacturer)
			assert.Equal(t, tt.want, *info.Manufacturer)
		})
	}
}

func TestExtract_MfgDateIsNotAManufacturer(t *testing.T) {
	info := Extract("Mfg. Date: 01/2024")
	assert.Nil(t, info.Manufacturer)
}

func TestExtract_MedicineName(t *testing.T) {
	info := Extract("Amoxicillin Trihydrate 500mg Batch: AX-1")

	require.NotNil(t, info.MedicineName)
	assert.Equal(t, "Amoxicillin Trihydrate", *info.MedicineName)
	require.NotNil(t, info.BatchNumber)
	assert.Equal(t, "AX-1", *info.BatchNumber)
}

func TestExtract_NoMatches(t *testing.T) {
	info := Extract("12345 !!!")

	assert.True(t, info.Empty())
}
