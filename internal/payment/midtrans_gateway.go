package payment

import (
	"bytes"
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"lilinku-be/internal/logger"
	"lilinku-be/internal/utils"

	"go.uber.org/zap"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

type midtransGateway struct {
	serverKey  string
	baseURL    string
	snapURL    string
	httpClient *http.Client
}

func NewMidtransGateway(serverKey, baseURL, snapURL string) Gateway {
	if serverKey == "" {
		logger.L().Warn("Midtrans server key is empty")
	}

	return &midtransGateway{
		serverKey: serverKey,
		baseURL:   baseURL,
		snapURL:   snapURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ----------------- CreateTransaction -----------------

func (m *midtransGateway) CreateTransaction(
	ctx context.Context,
	orderNo string,
	grossAmount int64,
	customer CustomerInfo,
	items []ItemDetail,
) (*TokenResponse, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("order_no", orderNo),
		zap.Int64("gross_amount", grossAmount),
		zap.String("customer", customer.Name),
	)

	itemDetails := make([]map[string]interface{}, 0, len(items))
	for _, it := range items {
		itemDetails = append(itemDetails, map[string]interface{}{
			"id":       it.ID,
			"name":     it.Name,
			"price":    it.Price,
			"quantity": it.Quantity,
		})
	}

	body := map[string]interface{}{
		"transaction_details": map[string]interface{}{
			"order_id":     orderNo,
			"gross_amount": grossAmount,
		},
		"item_details": itemDetails,
		"customer_details": map[string]interface{}{
			"first_name": customer.Name,
			"email":      customer.Email,
			"phone":      utils.NormalizePhoneID(customer.Phone),
		},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		log.Error("failed to marshal snap request", zap.Error(err))
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", m.snapURL+"/snap/v1/transactions", bytes.NewBuffer(jsonBody))
	if err != nil {
		log.Error("failed creating request", zap.Error(err))
		return nil, err
	}

	req.SetBasicAuth(m.serverKey, "")
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")

	log.Info("requesting payment token")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		log.Error("snap request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("failed to read response body", zap.Error(err))
		return nil, fmt.Errorf("failed to read midtrans response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		log.Error("midtrans returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", bodyBytes),
		)
		return nil, fmt.Errorf("midtrans error: %s", string(bodyBytes))
	}

	var res TokenResponse
	if err := json.Unmarshal(bodyBytes, &res); err != nil {
		log.Error("failed decoding snap response", zap.Error(err))
		return nil, err
	}
	if res.Token == "" {
		return nil, errors.New("midtrans response missing token")
	}

	log.Info("payment token created")
	return &res, nil
}

// ----------------- GetTransactionStatus -----------------

func (m *midtransGateway) GetTransactionStatus(ctx context.Context, orderNo string) (*Notification, error) {
	log := logger.FromCtx(ctx).With(zap.String("order_no", orderNo))

	url := fmt.Sprintf("%s/v2/%s/status", m.baseURL, orderNo)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		log.Error("failed building request", zap.Error(err))
		return nil, err
	}

	req.SetBasicAuth(m.serverKey, "")
	req.Header.Add("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		log.Error("status request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("failed to read response body", zap.Error(err))
		return nil, fmt.Errorf("failed to read midtrans response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Error("midtrans returned error",
			zap.Int("http_status", resp.StatusCode),
			zap.ByteString("response", bodyBytes),
		)
		return nil, fmt.Errorf("midtrans error: %s", string(bodyBytes))
	}

	var n Notification
	if err := json.Unmarshal(bodyBytes, &n); err != nil {
		log.Error("failed decoding status response", zap.Error(err))
		return nil, err
	}
	n.Raw = json.RawMessage(bodyBytes)

	log.Info("transaction status fetched",
		zap.String("transaction_status", n.TransactionStatus),
		zap.String("status_code", n.StatusCode),
	)
	return &n, nil
}

// ----------------- Verify Signature -----------------

// ComputeSignature builds the provider's keyed hash:
// hex(sha512(order_id ‖ status_code ‖ gross_amount ‖ server_key)).
func ComputeSignature(orderID, statusCode, grossAmount, serverKey string) string {
	h := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(h[:])
}

func (m *midtransGateway) VerifySignature(n *Notification) error {
	expected := ComputeSignature(n.OrderID, n.StatusCode, n.GrossAmount, m.serverKey)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}

// ParseGrossAmount reads the provider's decimal-string amount ("170000.00")
// into the smallest currency unit.
func ParseGrossAmount(s string) (int64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid gross_amount %q: %w", s, err)
	}
	return int64(f + 0.5), nil
}
