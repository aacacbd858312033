// Package service implements the RSVP reconciliation logic: deciding
// whether a user may join an event, driving paid joins through the payment
// ledger and the gateway adapters, and atomically linking payment
// completion back to RSVP membership. Handlers call into this package;
// storage and gateway details stay behind the interfaces below so the
// state machine can be exercised with fakes.
package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/motosaga/moto-saga/internal/gateway"
	"github.com/motosaga/moto-saga/internal/model"
	"github.com/motosaga/moto-saga/internal/queue"
)

var (
	// ErrPaymentNotRequired is returned when a checkout is attempted for a
	// free event (400 at the boundary).
	ErrPaymentNotRequired = errors.New("this event does not require payment")

	// ErrInvalidSignature is returned when a Razorpay redirect signature
	// does not verify (400 at the boundary; the payment stays pending).
	ErrInvalidSignature = errors.New("invalid payment signature")

	// ErrRSVPNotGranted is returned when a payment completed but the seat
	// could not be granted because the event filled up (or vanished) in the
	// meantime. The payment stays completed and is flagged for refund
	// follow-up; the caller sees 409.
	ErrRSVPNotGranted = errors.New("payment completed but event is full; a refund will be issued")
)

// EventStore is the slice of the event repository the reconciliation flow
// needs. AddRSVP must enforce uniqueness and capacity as one serializable
// step.
type EventStore interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
	AddRSVP(ctx context.Context, eventID, userID string) (*model.Event, error)
	RemoveRSVP(ctx context.Context, eventID, userID string) (*model.Event, error)
}

// PaymentLedger is the slice of the payment repository the flow needs.
// Complete must be idempotent per the ledger contract.
type PaymentLedger interface {
	Create(ctx context.Context, p *model.Payment) (*model.Payment, error)
	GetByID(ctx context.Context, id string) (*model.Payment, error)
	GetByGatewayOrderID(ctx context.Context, orderID string) (*model.Payment, error)
	Complete(ctx context.Context, paymentID, gatewayPaymentID string, metadata map[string]string) (*model.Payment, bool, error)
	Fail(ctx context.Context, paymentID, reason string) error
	MergeMetadata(ctx context.Context, paymentID string, metadata map[string]string) (*model.Payment, error)
}

// RazorpayGateway abstracts the Razorpay adapter.
type RazorpayGateway interface {
	CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string, notes map[string]string) (string, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(rawBody []byte, signature string) bool
}

// PayPalGateway abstracts the PayPal adapter.
type PayPalGateway interface {
	CreateOrder(ctx context.Context, in gateway.PayPalOrderInput) (string, error)
	CaptureOrder(ctx context.Context, orderID string) (string, json.RawMessage, error)
}

// Publisher abstracts the broker publisher. Publishing is best-effort;
// returned errors are ignored by this package.
type Publisher interface {
	PublishRSVPConfirmed(ctx context.Context, ev queue.RSVPConfirmedEvent) error
	PublishPaymentCompleted(ctx context.Context, ev queue.PaymentCompletedEvent) error
	PublishRSVPDenied(ctx context.Context, ev queue.RSVPDeniedEvent) error
}

// Actor identifies the authenticated user driving a checkout, as carried
// in the JWT claims.
type Actor struct {
	UserID string
	Email  string
	Name   string
}

// RSVPService coordinates the event store, the payment ledger and the two
// gateway adapters. Construct one at startup with NewRSVPService; the
// adapters are injected, never built lazily inside.
type RSVPService struct {
	events    EventStore
	payments  PaymentLedger
	razorpay  RazorpayGateway
	paypal    PayPalGateway
	publisher Publisher
	keyID     string // Razorpay public key id returned to checkout clients
}

func NewRSVPService(events EventStore, payments PaymentLedger, rz RazorpayGateway, pp PayPalGateway, pub Publisher, razorpayKeyID string) *RSVPService {
	return &RSVPService{
		events:    events,
		payments:  payments,
		razorpay:  rz,
		paypal:    pp,
		publisher: pub,
		keyID:     razorpayKeyID,
	}
}
