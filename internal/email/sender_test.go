package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendOrderConfirmation(t *testing.T) {
	var got map[string]uint
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewHTTPSender(srv.URL)

	require.NoError(t, s.SendOrderConfirmation(context.Background(), 42))
	assert.Equal(t, uint(42), got["order_id"])
}

func TestSendOrderConfirmation_UnconfiguredSkips(t *testing.T) {
	s := NewHTTPSender("")
	assert.NoError(t, s.SendOrderConfirmation(context.Background(), 42))
}

func TestSendOrderConfirmation_CollaboratorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewHTTPSender(srv.URL)
	assert.ErrorContains(t, s.SendOrderConfirmation(context.Background(), 42), "500")
}
