package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/motosaga/moto-saga/internal/gateway"
	"github.com/motosaga/moto-saga/internal/model"
	"github.com/motosaga/moto-saga/internal/queue"
	"github.com/motosaga/moto-saga/internal/repository"
)

// fakeEventStore is an in-memory EventStore with the same semantics the
// SQL repository enforces: at most one RSVP per (event, user) pair and a
// hard capacity ceiling, both applied atomically under one lock.
type fakeEventStore struct {
	mu     sync.Mutex
	events map[string]*model.Event
}

func newFakeEventStore(events ...*model.Event) *fakeEventStore {
	s := &fakeEventStore{events: make(map[string]*model.Event)}
	for _, e := range events {
		s.events[e.ID] = e
	}
	return s
}

func (s *fakeEventStore) GetByID(_ context.Context, id string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	return s.snapshot(e), nil
}

func (s *fakeEventStore) AddRSVP(_ context.Context, eventID, userID string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	for _, id := range e.RSVPs {
		if id == userID {
			return nil, repository.ErrAlreadyRSVPd
		}
	}
	if e.MaxAttendees > 0 && len(e.RSVPs) >= e.MaxAttendees {
		return nil, repository.ErrEventFull
	}
	e.RSVPs = append(e.RSVPs, userID)
	return s.snapshot(e), nil
}

func (s *fakeEventStore) RemoveRSVP(_ context.Context, eventID, userID string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	for i, id := range e.RSVPs {
		if id == userID {
			e.RSVPs = append(e.RSVPs[:i], e.RSVPs[i+1:]...)
			break
		}
	}
	return s.snapshot(e), nil
}

func (s *fakeEventStore) snapshot(e *model.Event) *model.Event {
	cp := *e
	cp.RSVPs = append([]string(nil), e.RSVPs...)
	cp.RSVPCount = len(cp.RSVPs)
	return &cp
}

// fakeLedger mirrors the payment repository's contract: Complete is
// idempotent for a matching gateway payment id and conflicts otherwise;
// Fail is a no-op on terminal entries.
type fakeLedger struct {
	mu       sync.Mutex
	seq      int
	payments map[string]*model.Payment
	byOrder  map[string]string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		payments: make(map[string]*model.Payment),
		byOrder:  make(map[string]string),
	}
}

func (l *fakeLedger) Create(_ context.Context, p *model.Payment) (*model.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	p.ID = fmt.Sprintf("pay-%d", l.seq)
	p.Status = model.PaymentPending
	if p.Quantity <= 0 {
		p.Quantity = 1
	}
	if p.Metadata == nil {
		p.Metadata = map[string]string{}
	}
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	l.payments[p.ID] = p
	l.byOrder[p.GatewayOrderID] = p.ID
	return l.clone(p), nil
}

func (l *fakeLedger) GetByID(_ context.Context, id string) (*model.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.payments[id]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	return l.clone(p), nil
}

func (l *fakeLedger) GetByGatewayOrderID(_ context.Context, orderID string) (*model.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.byOrder[orderID]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	return l.clone(l.payments[id]), nil
}

func (l *fakeLedger) Complete(_ context.Context, paymentID, gatewayPaymentID string, metadata map[string]string) (*model.Payment, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.payments[paymentID]
	if !ok {
		return nil, false, repository.ErrPaymentNotFound
	}
	if p.Status == model.PaymentCompleted {
		if p.GatewayPaymentID == gatewayPaymentID {
			for k, v := range metadata {
				p.Metadata[k] = v
			}
			return l.clone(p), false, nil
		}
		return nil, false, repository.ErrPaymentConflict
	}
	if p.Status != model.PaymentPending {
		return nil, false, repository.ErrPaymentConflict
	}
	p.Status = model.PaymentCompleted
	p.GatewayPaymentID = gatewayPaymentID
	now := time.Now().UTC()
	p.CompletedAt = &now
	p.UpdatedAt = now
	for k, v := range metadata {
		p.Metadata[k] = v
	}
	return l.clone(p), true, nil
}

func (l *fakeLedger) Fail(_ context.Context, paymentID, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.payments[paymentID]
	if !ok {
		return repository.ErrPaymentNotFound
	}
	if p.Status.Terminal() {
		return nil
	}
	p.Status = model.PaymentFailed
	p.Metadata["failureReason"] = reason
	return nil
}

func (l *fakeLedger) MergeMetadata(_ context.Context, paymentID string, metadata map[string]string) (*model.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.payments[paymentID]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	for k, v := range metadata {
		p.Metadata[k] = v
	}
	return l.clone(p), nil
}

func (l *fakeLedger) clone(p *model.Payment) *model.Payment {
	cp := *p
	cp.Metadata = make(map[string]string, len(p.Metadata))
	for k, v := range p.Metadata {
		cp.Metadata[k] = v
	}
	return &cp
}

// get returns the live entry for assertions on internal state.
func (l *fakeLedger) get(id string) *model.Payment {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.payments[id]
}

type fakeRazorpay struct {
	orders    []int64
	orderID   string
	orderErr  error
	validSigs map[string]bool // key: orderID|paymentID|signature
}

func newFakeRazorpay(orderID string) *fakeRazorpay {
	return &fakeRazorpay{orderID: orderID, validSigs: make(map[string]bool)}
}

func (g *fakeRazorpay) allow(orderID, paymentID, signature string) {
	g.validSigs[orderID+"|"+paymentID+"|"+signature] = true
}

func (g *fakeRazorpay) CreateOrder(_ context.Context, amountPaise int64, _, _ string, _ map[string]string) (string, error) {
	if g.orderErr != nil {
		return "", g.orderErr
	}
	g.orders = append(g.orders, amountPaise)
	return g.orderID, nil
}

func (g *fakeRazorpay) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return g.validSigs[orderID+"|"+paymentID+"|"+signature]
}

func (g *fakeRazorpay) VerifyWebhookSignature([]byte, string) bool { return true }

type fakePayPal struct {
	orderID    string
	captureID  string
	captureErr error
	inputs     []gateway.PayPalOrderInput
}

func (g *fakePayPal) CreateOrder(_ context.Context, in gateway.PayPalOrderInput) (string, error) {
	g.inputs = append(g.inputs, in)
	return g.orderID, nil
}

func (g *fakePayPal) CaptureOrder(_ context.Context, orderID string) (string, json.RawMessage, error) {
	if g.captureErr != nil {
		return "", nil, g.captureErr
	}
	return g.captureID, json.RawMessage(`{"status":"COMPLETED"}`), nil
}

// recordingPublisher captures every published message.
type recordingPublisher struct {
	mu        sync.Mutex
	confirmed []queue.RSVPConfirmedEvent
	completed []queue.PaymentCompletedEvent
	denied    []queue.RSVPDeniedEvent
}

func (p *recordingPublisher) PublishRSVPConfirmed(_ context.Context, ev queue.RSVPConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, ev)
	return nil
}

func (p *recordingPublisher) PublishPaymentCompleted(_ context.Context, ev queue.PaymentCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, ev)
	return nil
}

func (p *recordingPublisher) PublishRSVPDenied(_ context.Context, ev queue.RSVPDeniedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.denied = append(p.denied, ev)
	return nil
}

func paidEvent(id string, price float64, maxAttendees int, rsvps ...string) *model.Event {
	return &model.Event{
		ID:              id,
		Title:           "Track Day at Kari Speedway",
		Date:            time.Date(2026, 10, 4, 9, 0, 0, 0, time.UTC),
		EventType:       model.EventRace,
		MaxAttendees:    maxAttendees,
		TicketPrice:     price,
		Currency:        "INR",
		RequiresPayment: price > 0,
		RSVPs:           rsvps,
	}
}

func freeEvent(id string, maxAttendees int, rsvps ...string) *model.Event {
	e := paidEvent(id, 0, maxAttendees, rsvps...)
	e.Title = "Sunday Morning Breakfast Ride"
	e.EventType = model.EventRide
	return e
}
