package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"lilinku-be/internal/logger"

	"go.uber.org/zap"
)

// Destination is one node of the provider's postal hierarchy
// (province → city → district → subdistrict).
type Destination struct {
	ProvinceID    int    `json:"province_id"`
	Province      string `json:"province"`
	CityID        int    `json:"city_id"`
	City          string `json:"city"`
	DistrictID    int    `json:"district_id"`
	District      string `json:"district"`
	SubdistrictID int    `json:"subdistrict_id"`
	Subdistrict   string `json:"subdistrict"`
	PostalCode    string `json:"postal_code"`
}

type RateQuery struct {
	OriginDistrictID         int
	DestinationSubdistrictID int
	WeightGrams              int
	DeclaredValue            int64
}

type RateOption struct {
	Courier          string `json:"courier"`
	Service          string `json:"service"`
	Cost             int64  `json:"cost"`
	ETD              string `json:"etd"`
	InsurancePremium int64  `json:"insurance_premium"`
	Cashback         int64  `json:"cashback"`
}

// RateSource resolves destinations and quotes shipping costs. It is an
// external collaborator; this client only reads the fields the core needs.
type RateSource interface {
	SearchDestinations(ctx context.Context, keyword string) ([]Destination, error)
	GetRates(ctx context.Context, q RateQuery) ([]RateOption, error)
}

type rateClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewRateClient(apiKey, baseURL string) RateSource {
	return &rateClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *rateClient) SearchDestinations(ctx context.Context, keyword string) ([]Destination, error) {
	log := logger.FromCtx(ctx).With(zap.String("keyword", keyword))

	u := fmt.Sprintf("%s/api/mitra/v2/destinations?search=%s", c.baseURL, url.QueryEscape(keyword))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("destination search failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate provider response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate provider error (%d): %s", resp.StatusCode, string(bodyBytes))
	}

	var out struct {
		Status bool          `json:"status"`
		Data   []Destination `json:"data"`
	}
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		return nil, err
	}
	if !out.Status {
		return nil, fmt.Errorf("rate provider rejected destination search")
	}

	return out.Data, nil
}

func (c *rateClient) GetRates(ctx context.Context, q RateQuery) ([]RateOption, error) {
	log := logger.FromCtx(ctx).With(
		zap.Int("origin", q.OriginDistrictID),
		zap.Int("destination", q.DestinationSubdistrictID),
		zap.Int("weight_grams", q.WeightGrams),
	)

	body := map[string]interface{}{
		"origin":      q.OriginDistrictID,
		"destination": q.DestinationSubdistrictID,
		"weight":      q.WeightGrams,
		"item_value":  q.DeclaredValue,
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/mitra/v2/shipping_price", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("rate lookup failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate provider response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate provider error (%d): %s", resp.StatusCode, string(bodyBytes))
	}

	var out struct {
		Status bool         `json:"status"`
		Data   []RateOption `json:"data"`
	}
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		return nil, err
	}
	if !out.Status {
		return nil, fmt.Errorf("rate provider rejected rate query")
	}

	log.Debug("rates resolved", zap.Int("options", len(out.Data)))
	return out.Data, nil
}
