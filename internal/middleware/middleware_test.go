package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lilinku-be/internal/auth"
	"lilinku-be/internal/config"
	"lilinku-be/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	var gotEmail, gotRole string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEmail = utils.GetUserEmailFromContext(r.Context())
		gotRole = utils.GetUserRoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := AuthMiddleware(testSecret)(inner)

	t.Run("valid bearer token populates context", func(t *testing.T) {
		token, err := auth.GenerateToken("admin@lilinku.id", utils.RoleAdmin, testSecret, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/orders/LLK-1", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "admin@lilinku.id", gotEmail)
		assert.Equal(t, utils.RoleAdmin, gotRole)
	})

	t.Run("anonymous request passes through", func(t *testing.T) {
		gotEmail, gotRole = "", ""
		req := httptest.NewRequest(http.MethodGet, "/orders/LLK-1", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, gotEmail)
	})

	t.Run("garbage token treated as anonymous", func(t *testing.T) {
		gotEmail = ""
		req := httptest.NewRequest(http.MethodGet, "/orders/LLK-1", nil)
		req.Header.Set("Authorization", "Bearer junk")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, gotEmail)
	})

	t.Run("cookie token accepted", func(t *testing.T) {
		token, err := auth.GenerateToken("admin@lilinku.id", utils.RoleAdmin, testSecret, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/orders/LLK-1", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "admin@lilinku.id", gotEmail)
	})
}

func TestRequireAdmin(t *testing.T) {
	cfg := &config.Config{AdminEmails: []string{"admin@lilinku.id"}}
	handler := RequireAdmin(cfg)(okHandler())

	t.Run("anonymous gets 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("customer role gets 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
		ctx := utils.SetUserContext(req.Context(), 1, "rani@example.com", utils.RoleCustomer)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req.WithContext(ctx))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("admin role off the allow-list gets 403", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
		ctx := utils.SetUserContext(req.Context(), 1, "intruder@example.com", utils.RoleAdmin)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req.WithContext(ctx))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("allow-listed admin passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
		ctx := utils.SetUserContext(req.Context(), 1, "admin@lilinku.id", utils.RoleAdmin)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req.WithContext(ctx))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestResolveRateTier(t *testing.T) {
	tests := []struct {
		path string
		tier string
	}{
		{"/webhooks/payment", "webhook"},
		{"/webhooks/shipping", "webhook"},
		{"/checkout", "strict"},
		{"/admin/orders", "strict"},
		{"/orders/LLK-1", "general"},
		{"/rates", "general"},
	}

	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		_, _, tier := resolveRateTier(req)
		assert.Equal(t, tc.tier, tier, tc.path)
	}
}

func TestRateLimitMiddleware_BlocksAfterBurst(t *testing.T) {
	handler := RateLimitMiddleware(okHandler())

	var lastCode int
	for i := 0; i < burstStrict+1; i++ {
		req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		lastCode = rec.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}
