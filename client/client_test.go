package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/portfolio"
	"github.com/totegamma/portfolio/internal/domain"
)

func TestVerifyCachesSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/verify", r.URL.Path)
		assert.Equal(t, "portfolio-api", r.Header.Get("User-Agent"))
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(portfolio.AdminIdentity{ID: "admin-1", Email: "me@example.com"})
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	ctx := context.Background()

	id, err := c.Verify(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", id.ID)

	_, err = c.Verify(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	_, err = c.Verify(ctx, "bad")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = c.Verify(ctx, "bad")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, int32(3), calls.Load())

	_, err = c.Verify(ctx, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req portfolio.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(portfolio.LoginResponse{Token: "tok"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	resp, err := c.Login(context.Background(), portfolio.LoginRequest{Email: "me@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.Token)

	_, err = c.Login(context.Background(), portfolio.LoginRequest{Email: "me@example.com", Password: "no"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
