package registry

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelClient_FetchLabel(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, fdaURL+"/drug/label.json",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, `openfda.brand_name:"advil"`, req.URL.Query().Get("search"))
			return httpmock.NewStringResponse(http.StatusOK, openFDALabelJSON), nil
		})

	c := NewLabelClient(fdaURL, time.Second, time.Minute)

	info, err := c.FetchLabel(context.Background(), "Advil")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, "IBUPROFEN", info.GenericName)
	assert.Equal(t, "Advil", info.BrandName)
	assert.Equal(t, "Pfizer Consumer Healthcare", info.Manufacturer)
	assert.Equal(t, "Pain reliever/fever reducer", info.Purpose)
	assert.Equal(t, "TABLET, COATED", info.DosageForm)
	assert.Equal(t, "Ibuprofen 200 mg", info.Composition)
	assert.Equal(t, "See package insert for complete information", info.SideEffects)
	assert.Equal(t, "Consult healthcare provider", info.Contraindications)

	// second call is served from the cache
	_, err = c.FetchLabel(context.Background(), " advil ")
	require.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestLabelClient_PurposeFallsBackToIndications(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, fdaURL+"/drug/label.json",
		httpmock.NewStringResponder(http.StatusOK, `{"results":[{"openfda":{},"indications_and_usage":["Treats infections"]}]}`))

	info, err := NewLabelClient(fdaURL, time.Second, time.Minute).FetchLabel(context.Background(), "Amoxil")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, "Treats infections", info.Purpose)
	assert.Equal(t, "N/A", info.GenericName)
	assert.Equal(t, "Amoxil", info.BrandName)
	assert.Equal(t, "N/A", info.Manufacturer)
}

func TestLabelClient_MissIsCached(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, fdaURL+"/drug/label.json",
		httpmock.NewStringResponder(http.StatusNotFound, `{}`))

	c := NewLabelClient(fdaURL, time.Second, time.Minute)
	for i := 0; i < 2; i++ {
		info, err := c.FetchLabel(context.Background(), "Unknown Medicine")
		require.NoError(t, err)
		assert.Nil(t, info)
	}
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestLabelClient_ErrorIsNotCached(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, fdaURL+"/drug/label.json",
		httpmock.NewStringResponder(http.StatusBadGateway, `bad gateway`))

	c := NewLabelClient(fdaURL, time.Second, time.Minute)
	for i := 0; i < 2; i++ {
		_, err := c.FetchLabel(context.Background(), "Advil")
		assert.Error(t, err)
	}
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestLabelClient_EmptyName(t *testing.T) {
	info, err := NewLabelClient(fdaURL, time.Second, time.Minute).FetchLabel(context.Background(), "  ")
	assert.NoError(t, err)
	assert.Nil(t, info)
}
