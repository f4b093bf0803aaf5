package payhero

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"PesaVault/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitiatePush(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/payments", r.URL.Path)
		require.Equal(t, "Basic dGVzdA==", r.Header.Get("Authorization"))

		var req pushRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 2500.0, req.Amount)
		assert.Equal(t, "0712345678", req.PhoneNumber)
		assert.Equal(t, 724, req.ChannelID)
		assert.Equal(t, "m-pesa", req.Provider)
		assert.NotEmpty(t, req.ExternalReference)

		json.NewEncoder(w).Encode(pushResponse{Reference: "PH-REF-9"})
	}))
	defer srv.Close()

	log := zerolog.Nop()
	c := NewClient(srv.URL, "Basic dGVzdA==", 724, &log)

	ref, err := c.InitiatePush(context.Background(), 2500, "0712345678")
	require.NoError(t, err)
	assert.Equal(t, "PH-REF-9", ref)
}

func TestInitiatePush_RejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	log := zerolog.Nop()
	c := NewClient(srv.URL, "bad-auth", 724, &log)

	_, err := c.InitiatePush(context.Background(), 2500, "0712345678")
	assert.Error(t, err)
}

func TestPollStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transaction-status", r.URL.Path)
		require.Equal(t, "PH-REF-9", r.URL.Query().Get("reference"))
		json.NewEncoder(w).Encode(statusResponse{Status: "SUCCESS", ProviderReference: "MPESA-123"})
	}))
	defer srv.Close()

	log := zerolog.Nop()
	c := NewClient(srv.URL, "auth", 724, &log)

	res, err := c.PollStatus(context.Background(), "PH-REF-9")
	require.NoError(t, err)
	assert.Equal(t, ports.PushSuccess, res.Status)
	assert.Equal(t, "MPESA-123", res.ProviderReference)
}
