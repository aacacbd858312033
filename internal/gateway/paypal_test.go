package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paypalStub serves the token endpoint plus whatever order handler the
// test installs.
func paypalStub(t *testing.T, orders http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ := r.BasicAuth()
		require.Equal(t, "client_id", user)
		require.Equal(t, "client_secret", pass)
		_, _ = w.Write([]byte(`{"access_token":"tok_1"}`))
	})
	mux.HandleFunc("/v2/checkout/orders", orders)
	mux.HandleFunc("/v2/checkout/orders/", orders)
	return httptest.NewServer(mux)
}

func TestPayPalCreateOrder(t *testing.T) {
	var gotBody map[string]interface{}
	srv := paypalStub(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok_1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"id":"PP-ORDER-9","status":"CREATED"}`))
	})
	defer srv.Close()

	c := NewPayPalClientWithBaseURL("client_id", "client_secret", srv.URL)
	orderID, err := c.CreateOrder(context.Background(), PayPalOrderInput{
		Amount:      60,
		UnitAmount:  30,
		Currency:    "USD",
		Description: "Ticket for Track Day",
		ReferenceID: "ev1",
		ItemName:    "Track Day",
		Quantity:    2,
	})
	require.NoError(t, err)
	assert.Equal(t, "PP-ORDER-9", orderID)

	assert.Equal(t, "CAPTURE", gotBody["intent"])
	units := gotBody["purchase_units"].([]interface{})
	require.Len(t, units, 1)
	unit := units[0].(map[string]interface{})
	assert.Equal(t, "ev1", unit["reference_id"])
	amount := unit["amount"].(map[string]interface{})
	// Wire amounts are fixed two-decimal strings.
	assert.Equal(t, "60.00", amount["value"])
	items := unit["items"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, "2", item["quantity"])
	assert.Equal(t, "30.00", item["unit_amount"].(map[string]interface{})["value"])
}

func TestPayPalCaptureOrder(t *testing.T) {
	srv := paypalStub(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/checkout/orders/PP-ORDER-9/capture", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"status": "COMPLETED",
			"purchase_units": [{"payments": {"captures": [{"id": "CAP-42"}]}}]
		}`))
	})
	defer srv.Close()

	c := NewPayPalClientWithBaseURL("client_id", "client_secret", srv.URL)
	captureID, raw, err := c.CaptureOrder(context.Background(), "PP-ORDER-9")
	require.NoError(t, err)
	assert.Equal(t, "CAP-42", captureID)
	assert.Contains(t, string(raw), "COMPLETED")
}

func TestPayPalCaptureOrderMissingCaptureID(t *testing.T) {
	srv := paypalStub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"COMPLETED","purchase_units":[{"payments":{"captures":[]}}]}`))
	})
	defer srv.Close()

	c := NewPayPalClientWithBaseURL("client_id", "client_secret", srv.URL)
	_, _, err := c.CaptureOrder(context.Background(), "PP-ORDER-9")
	assert.ErrorIs(t, err, ErrGateway)
}

func TestPayPalRetriesOnceOnUnauthorized(t *testing.T) {
	var calls int32
	srv := paypalStub(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"PP-ORDER-9"}`))
	})
	defer srv.Close()

	c := NewPayPalClientWithBaseURL("client_id", "client_secret", srv.URL)
	orderID, err := c.CreateOrder(context.Background(), PayPalOrderInput{
		Amount: 10, UnitAmount: 10, Currency: "USD", ReferenceID: "ev1", ItemName: "x", Quantity: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "PP-ORDER-9", orderID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPayPalGivesUpAfterSecondUnauthorized(t *testing.T) {
	srv := paypalStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer srv.Close()

	c := NewPayPalClientWithBaseURL("client_id", "client_secret", srv.URL)
	_, err := c.CreateOrder(context.Background(), PayPalOrderInput{
		Amount: 10, UnitAmount: 10, Currency: "USD", ReferenceID: "ev1", ItemName: "x", Quantity: 1,
	})
	assert.ErrorIs(t, err, ErrGateway)
}

func TestPayPalTokenExchangeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewPayPalClientWithBaseURL("client_id", "client_secret", srv.URL)
	_, err := c.CreateOrder(context.Background(), PayPalOrderInput{
		Amount: 10, UnitAmount: 10, Currency: "USD", ReferenceID: "ev1", ItemName: "x", Quantity: 1,
	})
	assert.ErrorIs(t, err, ErrGateway)
}
