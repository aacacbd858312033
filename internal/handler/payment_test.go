package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rejectAllGateway fails every signature check; the webhook handler must
// answer 400 before touching the service.
type rejectAllGateway struct{}

func (rejectAllGateway) CreateOrder(context.Context, int64, string, string, map[string]string) (string, error) {
	panic("not used")
}

func (rejectAllGateway) VerifyPaymentSignature(string, string, string) bool { return false }
func (rejectAllGateway) VerifyWebhookSignature([]byte, string) bool         { return false }

func TestRazorpayWebhookRejectsBadSignature(t *testing.T) {
	e := echo.New()
	h := &PaymentHandler{Razorpay: &rejectAllGateway{}}

	body := `{"event":"payment.captured"}`

	// Missing header.
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/razorpay/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	require.NoError(t, h.RazorpayWebhook(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid webhook signature")

	// Header present but the HMAC does not verify.
	req = httptest.NewRequest(http.MethodPost, "/v1/payments/razorpay/webhook", strings.NewReader(body))
	req.Header.Set("x-razorpay-signature", "deadbeef")
	rec = httptest.NewRecorder()
	require.NoError(t, h.RazorpayWebhook(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRazorpayVerifyRequiresFields(t *testing.T) {
	e := echo.New()
	h := &PaymentHandler{}

	req := httptest.NewRequest(http.MethodPost, "/v1/payments/razorpay/verify-payment",
		strings.NewReader(`{"razorpay_order_id":"order_1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", "u1")

	require.NoError(t, h.RazorpayVerify(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing required fields")
}

func TestCheckoutRequiresEventID(t *testing.T) {
	e := echo.New()
	h := &PaymentHandler{}

	req := httptest.NewRequest(http.MethodPost, "/v1/payments/razorpay/create-order",
		strings.NewReader(`{"quantity":2}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", "u1")

	require.NoError(t, h.RazorpayCreateOrder(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "eventId is required")
}

func TestCheckoutRequiresAuth(t *testing.T) {
	e := echo.New()
	h := &PaymentHandler{}

	req := httptest.NewRequest(http.MethodPost, "/v1/payments/razorpay/create-order",
		strings.NewReader(`{"eventId":"ev1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	require.NoError(t, h.RazorpayCreateOrder(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
