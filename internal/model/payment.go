package model

import "time"

// Gateway identifies the external payment processor that owns an order.
type Gateway string

const (
	GatewayRazorpay Gateway = "razorpay"
	GatewayPayPal   Gateway = "paypal"
)

// Valid reports whether g is a supported gateway.
func (g Gateway) Valid() bool {
	return g == GatewayRazorpay || g == GatewayPayPal
}

// PaymentStatus is the lifecycle state of a ledger entry. The only legal
// transitions are pending -> completed and pending -> failed; refunded and
// cancelled exist for operator tooling and are never set by the checkout
// flow itself.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Terminal reports whether s is a final state.
func (s PaymentStatus) Terminal() bool {
	return s != PaymentPending
}

// Payment represents a row in the `payments` table: one checkout intent
// against one event by one user. GatewayOrderID is unique across the ledger
// and is the key both the redirect verification and the webhook use to find
// the record. GatewayPaymentID is populated exactly once, on completion.
// Amount is in major currency units.
type Payment struct {
	ID               string            `json:"id"`
	UserID           string            `json:"userId"`
	EventID          string            `json:"eventId"`
	Amount           float64           `json:"amount"`
	Currency         string            `json:"currency"`
	Gateway          Gateway           `json:"gateway"`
	GatewayOrderID   string            `json:"gatewayOrderId"`
	GatewayPaymentID string            `json:"gatewayPaymentId,omitempty"`
	Quantity         int               `json:"quantity"`
	Status           PaymentStatus     `json:"status"`
	UserEmail        string            `json:"userEmail,omitempty"`
	UserName         string            `json:"userName,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	CompletedAt      *time.Time        `json:"completedAt,omitempty"`

	// Read-time augmentation for detail/listing responses.
	Event *EventSummary `json:"event,omitempty"`
	User  *UserSummary  `json:"user,omitempty"`
}

// EventSummary is the denormalized event view embedded in payment
// responses.
type EventSummary struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
	Location string    `json:"location"`
	ImageURL string    `json:"imageUrl,omitempty"`
}

// PaymentStats aggregates the ledger for admin reporting.
type PaymentStats struct {
	TotalPayments     int     `json:"totalPayments"`
	CompletedPayments int     `json:"completedPayments"`
	TotalRevenue      float64 `json:"totalRevenue"`
}
