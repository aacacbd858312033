package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const razorpayBaseURL = "https://api.razorpay.com"

// RazorpayClient talks to the Razorpay Orders API and verifies the two
// kinds of signatures Razorpay sends back: the redirect checkout signature
// (HMAC over "orderID|paymentID" with the key secret) and the webhook
// signature (HMAC over the raw request body with the webhook secret).
type RazorpayClient struct {
	KeyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	http          *http.Client
}

// NewRazorpayClient builds a client for the live API.
func NewRazorpayClient(keyID, keySecret, webhookSecret string) *RazorpayClient {
	return &RazorpayClient{
		KeyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		baseURL:       razorpayBaseURL,
		http:          newHTTPClient(),
	}
}

// NewRazorpayClientWithBaseURL is NewRazorpayClient pointed at a different
// endpoint, for tests.
func NewRazorpayClientWithBaseURL(keyID, keySecret, webhookSecret, baseURL string) *RazorpayClient {
	c := NewRazorpayClient(keyID, keySecret, webhookSecret)
	c.baseURL = baseURL
	return c
}

// CreateOrder creates a Razorpay order and returns its id. Amount must be
// in minor units (paise); converting from the ledger's major-unit amount
// is the caller's job.
func (c *RazorpayClient) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string, notes map[string]string) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"amount":   amountPaise,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.KeyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: razorpay order create: %v", ErrGateway, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: razorpay order create returned %d: %s", ErrGateway, resp.StatusCode, raw)
	}
	var order struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return "", fmt.Errorf("%w: razorpay order decode: %v", ErrGateway, err)
	}
	if order.ID == "" {
		return "", fmt.Errorf("%w: razorpay order response missing id", ErrGateway)
	}
	return order.ID, nil
}

// VerifyPaymentSignature checks the signature posted back by the checkout
// redirect. Razorpay signs "orderID|paymentID" with the key secret.
func (c *RazorpayClient) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return verifyHMAC([]byte(orderID+"|"+paymentID), signature, c.keySecret)
}

// VerifyWebhookSignature checks the x-razorpay-signature header against
// the raw webhook body. Must be called on the exact bytes received; any
// re-serialization breaks the digest.
func (c *RazorpayClient) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	return verifyHMAC(rawBody, signature, c.webhookSecret)
}

// WebhookEvent is the subset of the Razorpay webhook envelope the
// reconciliation flow consumes.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// ParseWebhook decodes a verified webhook body.
func ParseWebhook(rawBody []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// verifyHMAC recomputes the hex HMAC-SHA256 of message under secret and
// compares it to the supplied signature in constant time.
func verifyHMAC(message []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
