package shipping

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchDestinations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/mitra/v2/destinations", r.URL.Path)
		assert.Equal(t, "caturtunggal", r.URL.Query().Get("search"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": true,
			"data": []map[string]interface{}{
				{
					"province_id": 5, "province": "DI Yogyakarta",
					"city_id": 501, "city": "Sleman",
					"district_id": 220, "district": "Depok",
					"subdistrict_id": 2203, "subdistrict": "Caturtunggal",
					"postal_code": "55281",
				},
			},
		})
	}))
	defer srv.Close()

	client := NewRateClient("test-key", srv.URL)

	dests, err := client.SearchDestinations(context.Background(), "caturtunggal")
	require.NoError(t, err)

	require.Len(t, dests, 1)
	assert.Equal(t, 2203, dests[0].SubdistrictID)
	assert.Equal(t, "55281", dests[0].PostalCode)
}

func TestGetRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/mitra/v2/shipping_price", r.URL.Path)

		var body map[string]float64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(1102), body["origin"])
		assert.Equal(t, float64(2203), body["destination"])
		assert.Equal(t, float64(1000), body["weight"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": true,
			"data": []map[string]interface{}{
				{"courier": "jne", "service": "REG", "cost": 20000, "etd": "2-3", "insurance_premium": 1500},
				{"courier": "sicepat", "service": "BEST", "cost": 25000, "etd": "1-2"},
			},
		})
	}))
	defer srv.Close()

	client := NewRateClient("test-key", srv.URL)

	options, err := client.GetRates(context.Background(), RateQuery{
		OriginDistrictID:         1102,
		DestinationSubdistrictID: 2203,
		WeightGrams:              1000,
		DeclaredValue:            150_000,
	})
	require.NoError(t, err)

	require.Len(t, options, 2)
	assert.Equal(t, int64(20_000), options[0].Cost)
	assert.Equal(t, int64(1_500), options[0].InsurancePremium)
}

func TestGetRates_ProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"status": false})
	}))
	defer srv.Close()

	client := NewRateClient("test-key", srv.URL)

	_, err := client.GetRates(context.Background(), RateQuery{})
	assert.Error(t, err)
}
