package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPPaymentGateway_Approved(t *testing.T) {
	var got chargeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	gw := NewHTTPPaymentGateway(srv.URL, time.Second)
	err := gw.Charge(context.Background(), decimal.RequireFromString("30.00"), "tok-1")

	require.NoError(t, err)
	assert.Equal(t, "30.00", got.Amount)
	assert.Equal(t, "tok-1", got.Token)
}

func TestHTTPPaymentGateway_Declined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer srv.Close()

	gw := NewHTTPPaymentGateway(srv.URL, time.Second)
	err := gw.Charge(context.Background(), decimal.RequireFromString("30.00"), "tok-1")

	assert.ErrorIs(t, err, ErrPaymentDeclined)
}

func TestHTTPPaymentGateway_TimeoutIsDecline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	gw := NewHTTPPaymentGateway(srv.URL, 20*time.Millisecond)
	err := gw.Charge(context.Background(), decimal.RequireFromString("30.00"), "tok-1")

	assert.ErrorIs(t, err, ErrPaymentDeclined)
}
