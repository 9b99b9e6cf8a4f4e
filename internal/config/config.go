package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ShipperIdentity is the merchant-side identity sent to the shipping
// provider with every shipment submission.
type ShipperIdentity struct {
	Name          string
	Phone         string
	Email         string
	Address       string
	DistrictID    int
	SubdistrictID int
	PostalCode    string
}

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	AppPort string
	AppEnv  string

	MidtransServerKey string
	MidtransBaseURL   string
	MidtransSnapURL   string

	CourierAPIKey  string
	CourierBaseURL string

	EmailEndpoint string

	JWTSecret   string
	AdminEmails []string

	Shipper ShipperIdentity

	SweepInterval time.Duration
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),

		AppPort: os.Getenv("APP_PORT"),
		AppEnv:  os.Getenv("APP_ENV"),

		MidtransServerKey: os.Getenv("MIDTRANS_SERVER_KEY"),
		MidtransBaseURL:   getenvDefault("MIDTRANS_BASE_URL", "https://api.midtrans.com"),
		MidtransSnapURL:   getenvDefault("MIDTRANS_SNAP_URL", "https://app.midtrans.com"),

		CourierAPIKey:  os.Getenv("COURIER_API_KEY"),
		CourierBaseURL: getenvDefault("COURIER_BASE_URL", "https://client.kiriminaja.com"),

		EmailEndpoint: os.Getenv("EMAIL_ENDPOINT"),

		JWTSecret:   os.Getenv("SECRET_KEY"),
		AdminEmails: splitCSV(os.Getenv("ADMIN_EMAILS")),

		Shipper: ShipperIdentity{
			Name:          os.Getenv("SHIPPER_NAME"),
			Phone:         os.Getenv("SHIPPER_PHONE"),
			Email:         os.Getenv("SHIPPER_EMAIL"),
			Address:       os.Getenv("SHIPPER_ADDRESS"),
			DistrictID:    atoiDefault(os.Getenv("SHIPPER_DISTRICT_ID"), 0),
			SubdistrictID: atoiDefault(os.Getenv("SHIPPER_SUBDISTRICT_ID"), 0),
			PostalCode:    os.Getenv("SHIPPER_POSTAL_CODE"),
		},

		SweepInterval: durationDefault(os.Getenv("SWEEP_INTERVAL"), 15*time.Minute),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}

// IsAdminEmail reports whether email is on the configured allow-list.
func (c *Config) IsAdminEmail(email string) bool {
	for _, e := range c.AdminEmails {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func durationDefault(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
