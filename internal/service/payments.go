package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/motosaga/moto-saga/internal/gateway"
	"github.com/motosaga/moto-saga/internal/model"
	"github.com/motosaga/moto-saga/internal/queue"
	"github.com/motosaga/moto-saga/internal/repository"
)

// RazorpayCheckout is the client payload for opening the Razorpay
// checkout widget. Amount is in paise, as the widget expects.
type RazorpayCheckout struct {
	OrderID   string `json:"orderId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	PaymentID string `json:"paymentId"`
	Key       string `json:"key"`
}

// CreateRazorpayCheckout opens a paid join: it creates a gateway order for
// ticketPrice*quantity and records a pending ledger entry keyed by the
// order id. Free events are rejected with ErrPaymentNotRequired.
func (s *RSVPService) CreateRazorpayCheckout(ctx context.Context, actor Actor, eventID string, quantity int) (*RazorpayCheckout, error) {
	event, amount, quantity, err := s.checkoutEvent(ctx, eventID, quantity)
	if err != nil {
		return nil, err
	}
	// Ledger amounts are in major units; Razorpay wants paise on the wire.
	amountPaise := int64(math.Round(amount * 100))
	receipt := fmt.Sprintf("receipt_%d", time.Now().UnixMilli())
	orderID, err := s.razorpay.CreateOrder(ctx, amountPaise, event.Currency, receipt, map[string]string{
		"eventId":    event.ID,
		"userId":     actor.UserID,
		"eventTitle": event.Title,
		"quantity":   strconv.Itoa(quantity),
	})
	if err != nil {
		return nil, err
	}
	p, err := s.payments.Create(ctx, &model.Payment{
		UserID:         actor.UserID,
		EventID:        event.ID,
		Amount:         amount,
		Currency:       event.Currency,
		Gateway:        model.GatewayRazorpay,
		GatewayOrderID: orderID,
		Quantity:       quantity,
		UserEmail:      actor.Email,
		UserName:       actor.Name,
	})
	if err != nil {
		return nil, err
	}
	return &RazorpayCheckout{
		OrderID:   orderID,
		Amount:    amountPaise,
		Currency:  event.Currency,
		PaymentID: p.ID,
		Key:       s.keyID,
	}, nil
}

// VerifyRazorpayPayment handles the redirect callback: it checks the
// checkout signature, completes the ledger entry and grants the RSVP. A
// bad signature leaves the payment pending and returns
// ErrInvalidSignature. The webhook may already have completed the order;
// the ledger's idempotent Complete makes that a no-op here and only the
// path that performed the transition publishes the completion message.
func (s *RSVPService) VerifyRazorpayPayment(ctx context.Context, orderID, gatewayPaymentID, signature string) (*model.Payment, error) {
	if !s.razorpay.VerifyPaymentSignature(orderID, gatewayPaymentID, signature) {
		return nil, ErrInvalidSignature
	}
	p, err := s.payments.GetByGatewayOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	completed, transitioned, err := s.payments.Complete(ctx, p.ID, gatewayPaymentID, map[string]string{
		"razorpaySignature": signature,
	})
	if err != nil {
		return nil, err
	}
	if transitioned {
		s.announcePayment(ctx, completed)
	}
	if err := s.grantRSVP(ctx, completed); err != nil {
		return completed, err
	}
	return completed, nil
}

// HandleRazorpayWebhook processes a webhook whose signature the handler
// already verified against the raw body. payment.captured completes the
// ledger entry and grants the RSVP; payment.failed marks the entry failed
// with the gateway's description. Unknown event types and orders that are
// not in the ledger are ignored; the gateway gets a 200 and moves on.
func (s *RSVPService) HandleRazorpayWebhook(ctx context.Context, ev *gateway.WebhookEvent) error {
	switch ev.Event {
	case "payment.captured":
		p, err := s.payments.GetByGatewayOrderID(ctx, ev.Payload.Payment.Entity.OrderID)
		if err != nil {
			if errors.Is(err, repository.ErrPaymentNotFound) {
				return nil
			}
			return err
		}
		completed, transitioned, err := s.payments.Complete(ctx, p.ID, ev.Payload.Payment.Entity.ID, map[string]string{
			"webhookProcessed": "true",
		})
		if err != nil {
			return err
		}
		if transitioned {
			s.announcePayment(ctx, completed)
		}
		return s.grantRSVP(ctx, completed)
	case "payment.failed":
		p, err := s.payments.GetByGatewayOrderID(ctx, ev.Payload.Payment.Entity.OrderID)
		if err != nil {
			if errors.Is(err, repository.ErrPaymentNotFound) {
				return nil
			}
			return err
		}
		return s.payments.Fail(ctx, p.ID, ev.Payload.Payment.Entity.ErrorDescription)
	default:
		// Unknown event types are acknowledged and ignored.
		return nil
	}
}

// PayPalCheckout is the client payload for the PayPal approval flow.
type PayPalCheckout struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
}

// CreatePayPalCheckout is the PayPal counterpart of
// CreateRazorpayCheckout. PayPal checkouts are always charged in USD,
// matching the storefront.
func (s *RSVPService) CreatePayPalCheckout(ctx context.Context, actor Actor, eventID string, quantity int) (*PayPalCheckout, error) {
	event, amount, quantity, err := s.checkoutEvent(ctx, eventID, quantity)
	if err != nil {
		return nil, err
	}
	orderID, err := s.paypal.CreateOrder(ctx, gateway.PayPalOrderInput{
		Amount:      amount,
		UnitAmount:  event.TicketPrice,
		Currency:    "USD",
		Description: "Ticket for " + event.Title,
		ReferenceID: event.ID,
		ItemName:    event.Title,
		Quantity:    quantity,
	})
	if err != nil {
		return nil, err
	}
	p, err := s.payments.Create(ctx, &model.Payment{
		UserID:         actor.UserID,
		EventID:        event.ID,
		Amount:         amount,
		Currency:       "USD",
		Gateway:        model.GatewayPayPal,
		GatewayOrderID: orderID,
		Quantity:       quantity,
		UserEmail:      actor.Email,
		UserName:       actor.Name,
	})
	if err != nil {
		return nil, err
	}
	return &PayPalCheckout{OrderID: orderID, PaymentID: p.ID}, nil
}

// CapturePayPalOrder finalizes an approved PayPal order. The capture
// response is the proof of payment (there is no separate signature step
// for PayPal), so a successful capture completes the ledger entry with
// the extracted capture id and grants the RSVP.
func (s *RSVPService) CapturePayPalOrder(ctx context.Context, orderID string) (*model.Payment, error) {
	captureID, raw, err := s.paypal.CaptureOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	p, err := s.payments.GetByGatewayOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	completed, transitioned, err := s.payments.Complete(ctx, p.ID, captureID, map[string]string{
		"captureData": string(raw),
	})
	if err != nil {
		return nil, err
	}
	if transitioned {
		s.announcePayment(ctx, completed)
	}
	if err := s.grantRSVP(ctx, completed); err != nil {
		return completed, err
	}
	return completed, nil
}

// checkoutEvent loads and validates the event for a paid join and returns
// it with the total amount in major units and the normalized quantity.
func (s *RSVPService) checkoutEvent(ctx context.Context, eventID string, quantity int) (*model.Event, float64, int, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, 0, 0, err
	}
	if !event.RequiresPayment || event.TicketPrice <= 0 {
		return nil, 0, 0, ErrPaymentNotRequired
	}
	if quantity <= 0 {
		quantity = 1
	}
	return event, event.TicketPrice * float64(quantity), quantity, nil
}

func (s *RSVPService) announcePayment(ctx context.Context, p *model.Payment) {
	if s.publisher == nil || p == nil || p.Status != model.PaymentCompleted {
		return
	}
	completedAt := time.Now().UTC()
	if p.CompletedAt != nil {
		completedAt = *p.CompletedAt
	}
	_ = s.publisher.PublishPaymentCompleted(ctx, queue.PaymentCompletedEvent{
		PaymentID:        p.ID,
		EventID:          p.EventID,
		UserID:           p.UserID,
		Gateway:          string(p.Gateway),
		GatewayPaymentID: p.GatewayPaymentID,
		Amount:           p.Amount,
		Currency:         p.Currency,
		CompletedAt:      completedAt.Format(time.RFC3339),
	})
}
