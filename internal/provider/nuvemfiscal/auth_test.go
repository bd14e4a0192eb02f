package nuvemfiscal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenIsCachedUntilExpiry(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		require.Equal(t, "/oauth/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "cliente", r.PostForm.Get("client_id"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	ts := NewTokenSource(Config{
		ClientID:     "cliente",
		ClientSecret: "segredo",
		Scope:        "nfse",
		AuthBaseURL:  server.URL,
	})

	token, err := ts.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	// Segunda chamada reaproveita o token em cache
	token, err = ts.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, 1, requests)
}

func TestAccessTokenShortExpiryForcesRefresh(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		// expires_in menor que a janela de segurança expira imediatamente
		w.Write([]byte(`{"access_token":"tok","expires_in":10}`))
	}))
	defer server.Close()

	ts := NewTokenSource(Config{
		ClientID:     "cliente",
		ClientSecret: "segredo",
		AuthBaseURL:  server.URL,
	})

	_, err := ts.AccessToken(context.Background())
	require.NoError(t, err)
	_, err = ts.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
}

func TestAccessTokenRequiresCredentials(t *testing.T) {
	ts := NewTokenSource(Config{})

	_, err := ts.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrMissingCredentials)
}
