// Package queue defines the message payloads published to the broker and
// the publisher that delivers them. Downstream consumers (notifications,
// analytics, operator tooling) get enough context to act without querying
// the primary database.
package queue

// RSVPConfirmedEvent is published when a user lands in an event's RSVP
// set, whether through the free toggle path or as the terminal action of a
// completed payment.
type RSVPConfirmedEvent struct {
	EventID     string `json:"event_id"`
	EventTitle  string `json:"event_title"`
	EventDate   string `json:"event_date"`
	UserID      string `json:"user_id"`
	RSVPCount   int    `json:"rsvp_count"`
	PaymentID   string `json:"payment_id,omitempty"`
	ConfirmedAt string `json:"confirmed_at"`
}

// PaymentCompletedEvent is published when a ledger entry reaches the
// completed state.
type PaymentCompletedEvent struct {
	PaymentID        string  `json:"payment_id"`
	EventID          string  `json:"event_id"`
	UserID           string  `json:"user_id"`
	Gateway          string  `json:"gateway"`
	GatewayPaymentID string  `json:"gateway_payment_id"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	CompletedAt      string  `json:"completed_at"`
}

// RSVPDeniedEvent is published when a completed payment could not be
// turned into an RSVP (the event filled up or disappeared while the
// payment was in flight). Operators follow up with a refund; the payment
// record itself stays completed and carries the compensation markers in
// its metadata.
type RSVPDeniedEvent struct {
	PaymentID string `json:"payment_id"`
	EventID   string `json:"event_id"`
	UserID    string `json:"user_id"`
	Reason    string `json:"reason"`
	DeniedAt  string `json:"denied_at"`
}
