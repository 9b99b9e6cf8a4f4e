package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"lilinku-be/internal/logger"

	"go.uber.org/zap"
)

// Placeholder parcel dimensions in cm, used when the merchant has not
// measured the package.
const (
	defaultWidthCm  = 15
	defaultHeightCm = 10
	defaultLengthCm = 20
)

type kiriminAjaCourier struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewKiriminAjaCourier(apiKey, baseURL string) Courier {
	if apiKey == "" {
		logger.L().Warn("KiriminAja API key is empty")
	}

	return &kiriminAjaCourier{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type kaEnvelope struct {
	Status bool            `json:"status"`
	Text   string          `json:"text"`
	Data   json.RawMessage `json:"data"`
}

type kaMakeOrderData struct {
	OrderID string `json:"order_id"`
}

type kaPickupLine struct {
	OrderID string `json:"order_id"`
	Status  bool   `json:"status"`
	AWB     string `json:"awb"`
	Text    string `json:"text"`
}

func (k *kiriminAjaCourier) CreateShipment(ctx context.Context, req ShipmentRequest) (string, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("order_no", req.OrderNo),
		zap.String("courier", req.Courier),
		zap.String("service", req.Service),
	)

	packages := make([]map[string]interface{}, 0, len(req.Items))
	for _, it := range req.Items {
		packages = append(packages, map[string]interface{}{
			"name":   it.Name,
			"qty":    it.Quantity,
			"weight": it.WeightGrams,
			"price":  it.Price,
			"width":  defaultWidthCm,
			"height": defaultHeightCm,
			"length": defaultLengthCm,
		})
	}

	body := map[string]interface{}{
		"order_id": req.OrderNo,
		"shipper": map[string]interface{}{
			"name":        req.Shipper.Name,
			"phone":       req.Shipper.Phone,
			"email":       req.Shipper.Email,
			"address":     req.Shipper.Address,
			"district_id": req.Shipper.DistrictID,
			"subdistrict": req.Shipper.SubdistrictID,
			"zipcode":     req.Shipper.PostalCode,
		},
		"receiver": map[string]interface{}{
			"name":        req.Receiver.Name,
			"phone":       req.Receiver.Phone,
			"email":       req.Receiver.Email,
			"address":     req.Receiver.Address,
			"district_id": req.Receiver.DistrictID,
			"subdistrict": req.Receiver.SubdistrictID,
			"zipcode":     req.Receiver.PostalCode,
		},
		"packages":         packages,
		"item_value":       req.DeclaredValue,
		"service":          req.Courier,
		"service_type":     req.Service,
		"insurance_amount": boolToInt(req.UseInsurance),
	}

	env, err := k.post(ctx, "/api/mitra/v2/make_order", body)
	if err != nil {
		log.Error("shipment submission failed", zap.Error(err))
		return "", err
	}

	var data kaMakeOrderData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		log.Error("failed decoding make_order data", zap.Error(err))
		return "", err
	}
	if data.OrderID == "" {
		return "", fmt.Errorf("courier response missing order_id: %s", env.Text)
	}

	log.Info("shipment submitted", zap.String("provider_order_no", data.OrderID))
	return data.OrderID, nil
}

func (k *kiriminAjaCourier) RequestPickup(ctx context.Context, req PickupRequest) ([]PickupLine, error) {
	log := logger.FromCtx(ctx).With(
		zap.Int("order_count", len(req.OrderNos)),
		zap.String("vehicle", req.Vehicle),
	)

	body := map[string]interface{}{
		"schedule": req.Schedule.Format("2006-01-02 15:04:05"),
		"vehicle":  req.Vehicle,
		"orders":   req.OrderNos,
	}

	env, err := k.post(ctx, "/api/mitra/v2/request_pickup", body)
	if err != nil {
		log.Error("pickup request failed", zap.Error(err))
		return nil, err
	}

	var raw []kaPickupLine
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		log.Error("failed decoding pickup data", zap.Error(err))
		return nil, err
	}

	lines := make([]PickupLine, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, PickupLine{
			OrderNo: l.OrderID,
			OK:      l.Status,
			AWB:     l.AWB,
			Message: l.Text,
		})
	}

	log.Info("pickup requested", zap.Int("lines", len(lines)))
	return lines, nil
}

func (k *kiriminAjaCourier) CancelShipment(ctx context.Context, providerOrderNo, reason string) error {
	log := logger.FromCtx(ctx).With(zap.String("provider_order_no", providerOrderNo))

	body := map[string]interface{}{
		"order_id": providerOrderNo,
		"reason":   reason,
	}

	if _, err := k.post(ctx, "/api/mitra/v2/cancel_order", body); err != nil {
		log.Error("cancel shipment failed", zap.Error(err))
		return err
	}

	log.Info("shipment cancelled at courier")
	return nil
}

func (k *kiriminAjaCourier) post(ctx context.Context, path string, body interface{}) (*kaEnvelope, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", k.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Authorization", "Bearer "+k.apiKey)

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read courier response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("courier error (%d): %s", resp.StatusCode, string(bodyBytes))
	}

	var env kaEnvelope
	if err := json.Unmarshal(bodyBytes, &env); err != nil {
		return nil, fmt.Errorf("failed decoding courier response: %w", err)
	}
	if !env.Status {
		return nil, fmt.Errorf("courier rejected request: %s", env.Text)
	}

	return &env, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
