package siwb_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kashguard/go-odin-auth/internal/siwb"
)

func TestExchangeToken(t *testing.T) {
	sig := []byte{0x01, 0x02, 0x03}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			Timestamp  string `json:"timestamp"`
			Signature  string `json:"signature"`
			Delegation string `json:"delegation"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "1711111111000", req.Timestamp)
		assert.Equal(t, base64.StdEncoding.EncodeToString(sig), req.Signature)
		assert.Contains(t, req.Delegation, "delegations")

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"token": "platform-jwt"})
	}))
	defer srv.Close()

	client := siwb.NewAPIClient(srv.URL, zerolog.Nop())
	token, err := client.ExchangeToken(context.Background(),
		"1711111111000", sig, `{"delegations":[],"publicKey":"aa"}`)
	require.NoError(t, err)
	assert.Equal(t, "platform-jwt", token)
}

func TestExchangeTokenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad delegation", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := siwb.NewAPIClient(srv.URL, zerolog.Nop())
	_, err := client.ExchangeToken(context.Background(), "0", nil, "{}")
	require.Error(t, err)
	assert.ErrorIs(t, err, siwb.ErrTokenExchangeFailed)
}

func TestExchangeTokenEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"token": ""})
	}))
	defer srv.Close()

	client := siwb.NewAPIClient(srv.URL, zerolog.Nop())
	_, err := client.ExchangeToken(context.Background(), "0", nil, "{}")
	require.Error(t, err)
	assert.ErrorIs(t, err, siwb.ErrTokenExchangeFailed)
}

func TestVerifyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := siwb.NewAPIClient(srv.URL, zerolog.Nop())
	assert.NoError(t, client.VerifyToken(context.Background(), "good-token"))
	assert.Error(t, client.VerifyToken(context.Background(), "stale-token"))
}
