package daraja_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/57nyambu/dima-backend-sub000/internal/modules/payments/daraja"
)

type fakeGateway struct {
	authHits int
	pushHits int
	lastPush map[string]any

	authStatus int
	pushBody   map[string]any
	pushDelay  time.Duration
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		authStatus: http.StatusOK,
		pushBody: map[string]any{
			"MerchantRequestID":   "mr-1",
			"CheckoutRequestID":   "ws_CO_123",
			"ResponseCode":        "0",
			"ResponseDescription": "Success. Request accepted for processing",
			"CustomerMessage":     "Success. Request accepted for processing",
		},
	}
}

func (g *fakeGateway) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		g.authHits++
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if g.authStatus != http.StatusOK {
			w.WriteHeader(g.authStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "tok-abc",
			"expires_in":   "3599",
		})
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		g.pushHits++
		if g.pushDelay > 0 {
			time.Sleep(g.pushDelay)
		}
		if r.Header.Get("Authorization") != "Bearer tok-abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&g.lastPush)
		_ = json.NewEncoder(w).Encode(g.pushBody)
	})
	return mux
}

func newClient(t *testing.T, g *fakeGateway, timeout time.Duration) *daraja.Client {
	t.Helper()
	srv := httptest.NewServer(g.handler())
	t.Cleanup(srv.Close)
	return daraja.NewClient(daraja.Config{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		Shortcode:      "174379",
		Passkey:        "passkey123",
		BaseURL:        srv.URL,
		CallbackURL:    "https://example.com/payments/callback",
		Timeout:        timeout,
	})
}

func TestSTKPushSendsDarajaRequest(t *testing.T) {
	g := newFakeGateway()
	c := newClient(t, g, 5*time.Second)

	resp, err := c.STKPush(context.Background(), daraja.STKPushRequest{
		Phone:            "254712345678",
		AmountCents:      250050,
		AccountReference: "ORD-20260830-7F3A",
		Description:      "Order payment",
	})
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_123", resp.CheckoutRequestID)
	assert.Equal(t, "mr-1", resp.MerchantRequestID)

	require.NotNil(t, g.lastPush)
	assert.Equal(t, "174379", g.lastPush["BusinessShortCode"])
	assert.Equal(t, "CustomerPayBillOnline", g.lastPush["TransactionType"])
	assert.Equal(t, float64(2500), g.lastPush["Amount"]) // whole shillings, truncated
	assert.Equal(t, "254712345678", g.lastPush["PartyA"])
	assert.Equal(t, "254712345678", g.lastPush["PhoneNumber"])
	assert.Equal(t, "https://example.com/payments/callback", g.lastPush["CallBackURL"])
	assert.Equal(t, "ORD-20260830-7F3A", g.lastPush["AccountReference"])

	// Password = base64(shortcode + passkey + timestamp)
	raw, err := base64.StdEncoding.DecodeString(g.lastPush["Password"].(string))
	require.NoError(t, err)
	decoded := string(raw)
	require.True(t, strings.HasPrefix(decoded, "174379passkey123"))
	ts := strings.TrimPrefix(decoded, "174379passkey123")
	assert.Equal(t, g.lastPush["Timestamp"], ts)
	_, err = time.Parse("20060102150405", ts)
	assert.NoError(t, err)
}

func TestSTKPushClampsSubShillingAmounts(t *testing.T) {
	g := newFakeGateway()
	c := newClient(t, g, 5*time.Second)

	_, err := c.STKPush(context.Background(), daraja.STKPushRequest{
		Phone: "254712345678", AmountCents: 40, AccountReference: "ORD-X",
	})
	require.NoError(t, err)
	assert.Equal(t, float64(1), g.lastPush["Amount"])
}

func TestSTKPushReusesCachedToken(t *testing.T) {
	g := newFakeGateway()
	c := newClient(t, g, 5*time.Second)

	for i := 0; i < 3; i++ {
		_, err := c.STKPush(context.Background(), daraja.STKPushRequest{
			Phone: "254712345678", AmountCents: 10000, AccountReference: "ORD-X",
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, g.authHits)
	assert.Equal(t, 3, g.pushHits)
}

func TestSTKPushAuthFailure(t *testing.T) {
	g := newFakeGateway()
	g.authStatus = http.StatusForbidden
	c := newClient(t, g, 5*time.Second)

	_, err := c.STKPush(context.Background(), daraja.STKPushRequest{
		Phone: "254712345678", AmountCents: 10000, AccountReference: "ORD-X",
	})
	assert.ErrorIs(t, err, daraja.ErrAuthFailed)
	assert.Zero(t, g.pushHits)
}

func TestSTKPushRejected(t *testing.T) {
	g := newFakeGateway()
	g.pushBody = map[string]any{
		"ResponseCode":        "1",
		"ResponseDescription": "Invalid PhoneNumber",
	}
	c := newClient(t, g, 5*time.Second)

	_, err := c.STKPush(context.Background(), daraja.STKPushRequest{
		Phone: "254712345678", AmountCents: 10000, AccountReference: "ORD-X",
	})
	var rej *daraja.RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "1", rej.Code)
	assert.Equal(t, "Invalid PhoneNumber", rej.Desc)
}

func TestSTKPushTimeout(t *testing.T) {
	g := newFakeGateway()
	g.pushDelay = 300 * time.Millisecond
	c := newClient(t, g, 100*time.Millisecond)

	_, err := c.STKPush(context.Background(), daraja.STKPushRequest{
		Phone: "254712345678", AmountCents: 10000, AccountReference: "ORD-X",
	})
	assert.ErrorIs(t, err, daraja.ErrTimeout)
}
