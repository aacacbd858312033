package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// PayPalClient talks to the PayPal Checkout Orders v2 API. A bearer token
// is obtained per call via the client-credentials grant; a 401 on the
// actual request triggers exactly one token refresh and retry. There is no
// signature verification step for PayPal: a successful capture response is
// itself the proof of payment, which is a deliberate asymmetry with
// Razorpay.
type PayPalClient struct {
	clientID string
	secret   string
	baseURL  string
	http     *http.Client
}

// NewPayPalClient builds a client for the given mode ("sandbox" or
// "live").
func NewPayPalClient(clientID, secret, mode string) *PayPalClient {
	base := "https://api-m.sandbox.paypal.com"
	if strings.EqualFold(mode, "live") {
		base = "https://api-m.paypal.com"
	}
	return &PayPalClient{clientID: clientID, secret: secret, baseURL: base, http: newHTTPClient()}
}

// NewPayPalClientWithBaseURL is NewPayPalClient pointed at a different
// endpoint, for tests.
func NewPayPalClientWithBaseURL(clientID, secret, baseURL string) *PayPalClient {
	return &PayPalClient{clientID: clientID, secret: secret, baseURL: baseURL, http: newHTTPClient()}
}

// PayPalOrderInput describes a CAPTURE-intent order for a batch of event
// tickets. Amounts are in major units; PayPal's wire format wants them as
// fixed two-decimal strings.
type PayPalOrderInput struct {
	Amount      float64
	UnitAmount  float64
	Currency    string
	Description string
	ReferenceID string
	ItemName    string
	Quantity    int
}

// CreateOrder creates a CAPTURE-intent order and returns its id.
func (c *PayPalClient) CreateOrder(ctx context.Context, in PayPalOrderInput) (string, error) {
	value := strconv.FormatFloat(in.Amount, 'f', 2, 64)
	unit := strconv.FormatFloat(in.UnitAmount, 'f', 2, 64)
	body, err := json.Marshal(map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{{
			"reference_id": in.ReferenceID,
			"description":  in.Description,
			"custom_id":    "event_" + in.ReferenceID,
			"amount": map[string]interface{}{
				"currency_code": in.Currency,
				"value":         value,
				"breakdown": map[string]interface{}{
					"item_total": map[string]string{
						"currency_code": in.Currency,
						"value":         value,
					},
				},
			},
			"items": []map[string]interface{}{{
				"name":     in.ItemName,
				"quantity": strconv.Itoa(in.Quantity),
				"unit_amount": map[string]string{
					"currency_code": in.Currency,
					"value":         unit,
				},
				"category": "DIGITAL_GOODS",
			}},
		}},
		"application_context": map[string]string{
			"brand_name":   "The Moto Saga",
			"landing_page": "NO_PREFERENCE",
			"user_action":  "PAY_NOW",
		},
	})
	if err != nil {
		return "", err
	}
	raw, err := c.doAuthed(ctx, http.MethodPost, "/v2/checkout/orders", body)
	if err != nil {
		return "", err
	}
	var order struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &order); err != nil {
		return "", fmt.Errorf("%w: paypal order decode: %v", ErrGateway, err)
	}
	if order.ID == "" {
		return "", fmt.Errorf("%w: paypal order response missing id", ErrGateway)
	}
	return order.ID, nil
}

// CaptureOrder captures a previously approved order. It returns the
// capture id extracted from purchase_units[0].payments.captures[0].id
// (the structural contract with the API) along with the raw capture
// payload for metadata enrichment. A response without a capture id is a
// gateway error.
func (c *PayPalClient) CaptureOrder(ctx context.Context, orderID string) (string, json.RawMessage, error) {
	raw, err := c.doAuthed(ctx, http.MethodPost, "/v2/checkout/orders/"+orderID+"/capture", []byte("{}"))
	if err != nil {
		return "", nil, err
	}
	var capture struct {
		Status        string `json:"status"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					ID string `json:"id"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	if err := json.Unmarshal(raw, &capture); err != nil {
		return "", nil, fmt.Errorf("%w: paypal capture decode: %v", ErrGateway, err)
	}
	if len(capture.PurchaseUnits) == 0 ||
		len(capture.PurchaseUnits[0].Payments.Captures) == 0 ||
		capture.PurchaseUnits[0].Payments.Captures[0].ID == "" {
		return "", nil, fmt.Errorf("%w: paypal capture response missing capture id", ErrGateway)
	}
	return capture.PurchaseUnits[0].Payments.Captures[0].ID, raw, nil
}

// doAuthed performs an authenticated API call, exchanging client
// credentials for a bearer token first. When the API answers 401 the
// token is refreshed and the request retried once.
func (c *PayPalClient) doAuthed(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	token, err := c.fetchToken(ctx)
	if err != nil {
		return nil, err
	}
	raw, status, err := c.do(ctx, method, path, body, token)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		token, err = c.fetchToken(ctx)
		if err != nil {
			return nil, err
		}
		raw, status, err = c.do(ctx, method, path, body, token)
		if err != nil {
			return nil, err
		}
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: paypal %s %s returned %d", ErrGateway, method, path, status)
	}
	return raw, nil
}

func (c *PayPalClient) do(ctx context.Context, method, path string, body []byte, token string) (json.RawMessage, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: paypal %s %s: %v", ErrGateway, method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: paypal response read: %v", ErrGateway, err)
	}
	return raw, resp.StatusCode, nil
}

func (c *PayPalClient) fetchToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: paypal token exchange: %v", ErrGateway, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: paypal token exchange returned %d", ErrGateway, resp.StatusCode)
	}
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("%w: paypal token decode: %v", ErrGateway, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: paypal token response missing access_token", ErrGateway)
	}
	return tok.AccessToken, nil
}
