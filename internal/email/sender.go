package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"lilinku-be/internal/logger"

	"go.uber.org/zap"
)

// Sender triggers the order-confirmation email collaborator. The collaborator
// owns content and delivery; the core only hands it an order id, best-effort.
type Sender interface {
	SendOrderConfirmation(ctx context.Context, orderID uint) error
}

type httpSender struct {
	endpoint   string
	httpClient *http.Client
}

func NewHTTPSender(endpoint string) Sender {
	return &httpSender{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *httpSender) SendOrderConfirmation(ctx context.Context, orderID uint) error {
	log := logger.FromCtx(ctx).With(zap.Uint("order_id", orderID))

	if s.endpoint == "" {
		log.Warn("email endpoint not configured, skipping confirmation")
		return nil
	}

	body, err := json.Marshal(map[string]interface{}{"order_id": orderID})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("email collaborator returned %d", resp.StatusCode)
	}

	log.Info("order confirmation triggered")
	return nil
}
