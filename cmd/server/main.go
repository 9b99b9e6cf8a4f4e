package main

import (
	"context"
	"net/http"
	"time"

	"lilinku-be/internal/api"
	"lilinku-be/internal/auth"
	"lilinku-be/internal/catalog"
	"lilinku-be/internal/config"
	"lilinku-be/internal/db"
	"lilinku-be/internal/email"
	"lilinku-be/internal/logger"
	"lilinku-be/internal/order"
	"lilinku-be/internal/payment"
	paymentwebhook "lilinku-be/internal/payment/webhook"
	"lilinku-be/internal/shipping"
	shippingwebhook "lilinku-be/internal/shipping/webhook"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := db.InitDB(cfg)
	defer database.Close()

	orderRepo := order.NewRepository(database)
	catalogRepo := catalog.NewRepository(database)
	eventRepo := payment.NewEventRepository(database)
	authRepo := auth.NewRepository(database)

	gateway := payment.NewMidtransGateway(cfg.MidtransServerKey, cfg.MidtransBaseURL, cfg.MidtransSnapURL)
	courier := shipping.NewKiriminAjaCourier(cfg.CourierAPIKey, cfg.CourierBaseURL)
	rates := shipping.NewRateClient(cfg.CourierAPIKey, cfg.CourierBaseURL)
	mailer := email.NewHTTPSender(cfg.EmailEndpoint)

	orderSvc := order.NewService(orderRepo, catalogRepo, eventRepo, gateway, courier, rates, cfg.Shipper)

	dispatcher := &order.Dispatcher{
		SubmitShipment:   orderSvc.SubmitShipment,
		SendConfirmation: mailer.SendOrderConfirmation,
	}
	orderSvc.SetDispatcher(dispatcher)

	handlers := api.NewHandlers(cfg, orderSvc, rates, authRepo, dispatcher)
	router := api.NewRouter(cfg, handlers,
		paymentwebhook.NewHandler(orderSvc, dispatcher),
		shippingwebhook.NewHandler(orderSvc),
	)

	go runSweep(cfg.SweepInterval, orderSvc)

	logger.L().Info("server listening", zap.String("port", cfg.AppPort))
	if err := http.ListenAndServe(":"+cfg.AppPort, router); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

// runSweep periodically re-polls orders stuck in pending_payment,
// compensating for missed webhooks.
func runSweep(interval time.Duration, svc order.Service) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), interval/2)
		resolved, err := svc.SweepPendingPayments(ctx)
		cancel()

		if err != nil {
			logger.L().Error("pending payment sweep failed", zap.Error(err))
			continue
		}
		if resolved > 0 {
			logger.L().Info("pending payment sweep resolved orders", zap.Int("resolved", resolved))
		}
	}
}
