package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/motosaga/moto-saga/internal/gateway"
	"github.com/motosaga/moto-saga/internal/model"
	"github.com/motosaga/moto-saga/internal/repository"
	"github.com/motosaga/moto-saga/internal/service"
)

// webhookBodyLimit caps how much of a webhook request we are willing to
// read before verifying it.
const webhookBodyLimit = 1 << 20

// PaymentHandler serves the checkout, verification and webhook routes. The
// Razorpay adapter is held directly for webhook signature checks, which
// operate on the raw request body before anything is parsed.
type PaymentHandler struct {
	Svc      *service.RSVPService
	Razorpay service.RazorpayGateway
	Payments *repository.PaymentRepo
	Events   *repository.EventRepo
	Users    *repository.UserRepo
}

func NewPaymentHandler(svc *service.RSVPService, rz service.RazorpayGateway, payments *repository.PaymentRepo, events *repository.EventRepo, users *repository.UserRepo) *PaymentHandler {
	return &PaymentHandler{Svc: svc, Razorpay: rz, Payments: payments, Events: events, Users: users}
}

type checkoutReq struct {
	EventID  string `json:"eventId"`
	Quantity int    `json:"quantity"`
}

type razorpayVerifyReq struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

type paypalCaptureReq struct {
	OrderID string `json:"orderId"`
}

// RazorpayCreateOrder handles POST /v1/payments/razorpay/create-order.
func (h *PaymentHandler) RazorpayCreateOrder(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req checkoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.EventID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "eventId is required"})
	}
	checkout, err := h.Svc.CreateRazorpayCheckout(c.Request().Context(), actor, req.EventID, req.Quantity)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, checkout)
}

// RazorpayVerify handles POST /v1/payments/razorpay/verify-payment: the browser
// redirect path. A good signature completes the ledger entry and grants
// the RSVP; a bad one leaves the payment pending and returns 400.
func (h *PaymentHandler) RazorpayVerify(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req razorpayVerifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required fields"})
	}
	payment, err := h.Svc.VerifyRazorpayPayment(c.Request().Context(), req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"verified":  true,
		"paymentId": payment.ID,
		"message":   "Payment verified successfully",
	})
}

// RazorpayWebhook handles POST /v1/payments/razorpay/webhook. The route is
// unauthenticated; the x-razorpay-signature HMAC over the raw body is the
// only credential. Processing is idempotent, so gateway retries are safe
// to acknowledge again.
func (h *PaymentHandler) RazorpayWebhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, webhookBodyLimit))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}
	signature := c.Request().Header.Get("x-razorpay-signature")
	if signature == "" || !h.Razorpay.VerifyWebhookSignature(body, signature) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid webhook signature"})
	}
	ev, err := gateway.ParseWebhook(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	if err := h.Svc.HandleRazorpayWebhook(c.Request().Context(), ev); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

// PayPalCreateOrder handles POST /v1/payments/paypal/create-order.
func (h *PaymentHandler) PayPalCreateOrder(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req checkoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.EventID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "eventId is required"})
	}
	checkout, err := h.Svc.CreatePayPalCheckout(c.Request().Context(), actor, req.EventID, req.Quantity)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, checkout)
}

// PayPalCapture handles POST /v1/payments/paypal/capture-order.
func (h *PaymentHandler) PayPalCapture(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req paypalCaptureReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.OrderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "orderId is required"})
	}
	payment, err := h.Svc.CapturePayPalOrder(c.Request().Context(), req.OrderID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":   true,
		"captureId": payment.GatewayPaymentID,
		"paymentId": payment.ID,
		"status":    payment.Status,
	})
}

// Get handles GET /v1/payments/:id: the owner or an administrator can read
// an entry, enriched with event and user summaries.
func (h *PaymentHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	payment, err := h.Payments.GetByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	if payment.UserID != userID && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	attachSummaries(ctx, h.Users, h.Events, []*model.Payment{payment})
	return c.JSON(http.StatusOK, payment)
}

// MyPayments handles GET /v1/payments/my-payments: the caller's own history, newest
// first.
func (h *PaymentHandler) MyPayments(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	payments, err := h.Payments.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	attachSummaries(c.Request().Context(), h.Users, h.Events, payments)
	return c.JSON(http.StatusOK, payments)
}

// attachSummaries fills the read-time user and event summaries on payment
// responses. Lookups are best-effort: a deleted event or user leaves the
// summary nil rather than failing the read. Users are fetched in one
// batched query; events are memoized per id.
func attachSummaries(ctx context.Context, userRepo *repository.UserRepo, eventRepo *repository.EventRepo, payments []*model.Payment) {
	userIDs := make([]string, 0, len(payments))
	seen := make(map[string]struct{}, len(payments))
	for _, p := range payments {
		if _, ok := seen[p.UserID]; !ok {
			seen[p.UserID] = struct{}{}
			userIDs = append(userIDs, p.UserID)
		}
	}
	users, err := userRepo.GetByIDs(ctx, userIDs)
	if err != nil {
		users = nil
	}
	events := make(map[string]*model.Event, len(payments))
	for _, p := range payments {
		if u, ok := users[p.UserID]; ok {
			s := u.Summary()
			p.User = &s
		}
		ev, ok := events[p.EventID]
		if !ok {
			ev, _ = eventRepo.GetByID(ctx, p.EventID)
			events[p.EventID] = ev
		}
		if ev != nil {
			p.Event = &model.EventSummary{
				ID:       ev.ID,
				Title:    ev.Title,
				Date:     ev.Date,
				Location: ev.Location,
				ImageURL: ev.ImageURL,
			}
		}
	}
}
