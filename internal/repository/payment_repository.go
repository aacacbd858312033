package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/motosaga/moto-saga/internal/model"
)

// PaymentRepo is the payment ledger over the `payments` table. Entries are
// keyed by the external gateway order id (unique index) and move through
// the pending -> completed | failed state machine exactly once. Both the
// redirect verification and the out-of-band webhook race to complete the
// same order; Complete is written so the second caller is a harmless
// no-op instead of a double-processing hazard.
type PaymentRepo struct{ DB *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{DB: db} }

const paymentColumns = `id, user_id, event_id, amount, currency, gateway, gateway_order_id, gateway_payment_id, quantity, status, user_email, user_name, metadata, created_at, updated_at, completed_at`

// Create inserts a new pending ledger entry with a generated UUID and
// returns it. Amount is in major currency units.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) (*model.Payment, error) {
	p.ID = uuid.NewString()
	p.Status = model.PaymentPending
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	if p.Quantity <= 0 {
		p.Quantity = 1
	}
	if p.Metadata == nil {
		p.Metadata = map[string]string{}
	}
	meta, err := json.Marshal(p.Metadata)
	if err != nil {
		return nil, err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO payments (id, user_id, event_id, amount, currency, gateway, gateway_order_id, gateway_payment_id, quantity, status, user_email, user_name, metadata, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.UserID, p.EventID, p.Amount, p.Currency, string(p.Gateway), p.GatewayOrderID,
		p.GatewayPaymentID, p.Quantity, string(p.Status), p.UserEmail, p.UserName,
		string(meta), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByID returns a ledger entry or ErrPaymentNotFound.
func (r *PaymentRepo) GetByID(ctx context.Context, id string) (*model.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ? LIMIT 1`, id)
}

// GetByGatewayOrderID returns the entry for an external order id. This is
// the lookup both verification and webhook paths go through; the column is
// uniquely indexed.
func (r *PaymentRepo) GetByGatewayOrderID(ctx context.Context, orderID string) (*model.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE gateway_order_id = ? LIMIT 1`, orderID)
}

// ListByUser returns a user's payments, newest first.
func (r *PaymentRepo) ListByUser(ctx context.Context, userID string) ([]*model.Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments WHERE user_id = ? ORDER BY created_at DESC`, userID)
}

// ListRecent returns the latest ledger entries for admin review.
func (r *PaymentRepo) ListRecent(ctx context.Context, limit int) ([]*model.Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY created_at DESC LIMIT ?`, limit)
}

// Complete transitions a payment from pending to completed and records the
// gateway payment (or capture) id. The transition is an atomic conditional
// update guarded by status='pending', so exactly one of the racing
// completion paths performs it. The returned bool reports whether this
// call made the transition, so callers can announce a completion exactly
// once. Idempotency contract:
//
//   - already completed with the same gatewayPaymentID: no-op (false),
//     metadata is merged, the record is returned without error;
//   - already completed with a different id, or already failed:
//     ErrPaymentConflict.
func (r *PaymentRepo) Complete(ctx context.Context, paymentID, gatewayPaymentID string, metadata map[string]string) (*model.Payment, bool, error) {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`UPDATE payments SET status = ?, gateway_payment_id = ?, completed_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(model.PaymentCompleted), gatewayPaymentID, now, now, paymentID, string(model.PaymentPending))
	if err != nil {
		return nil, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if n == 0 {
		// Lost the race or replayed: decide no-op vs conflict from the
		// terminal record.
		p, err := r.GetByID(ctx, paymentID)
		if err != nil {
			return nil, false, err
		}
		if p.Status == model.PaymentCompleted && p.GatewayPaymentID == gatewayPaymentID {
			p, err = r.mergeMetadata(ctx, p, metadata)
			return p, false, err
		}
		return nil, false, ErrPaymentConflict
	}
	p, err := r.GetByID(ctx, paymentID)
	if err != nil {
		return nil, false, err
	}
	p, err = r.mergeMetadata(ctx, p, metadata)
	return p, true, err
}

// Fail transitions a payment from pending to failed, recording the reason
// in metadata. Already-terminal payments are left untouched (no error): a
// late failure webhook for a payment the redirect path already completed
// must be inert.
func (r *PaymentRepo) Fail(ctx context.Context, paymentID, reason string) error {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`UPDATE payments SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(model.PaymentFailed), now, paymentID, string(model.PaymentPending))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		return err
	}
	p, err := r.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	_, err = r.mergeMetadata(ctx, p, map[string]string{"failureReason": reason})
	return err
}

// MergeMetadata enriches a payment's metadata without touching its status.
// Completed payments are immutable except for this.
func (r *PaymentRepo) MergeMetadata(ctx context.Context, paymentID string, metadata map[string]string) (*model.Payment, error) {
	p, err := r.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return r.mergeMetadata(ctx, p, metadata)
}

// GetStats aggregates the ledger: total entries, completed entries and the
// summed amount of completed payments. Reporting only.
func (r *PaymentRepo) GetStats(ctx context.Context) (*model.PaymentStats, error) {
	var s model.PaymentStats
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = ? THEN amount ELSE 0 END), 0)
		 FROM payments`,
		string(model.PaymentCompleted), string(model.PaymentCompleted)).
		Scan(&s.TotalPayments, &s.CompletedPayments, &s.TotalRevenue)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PaymentRepo) mergeMetadata(ctx context.Context, p *model.Payment, metadata map[string]string) (*model.Payment, error) {
	if len(metadata) == 0 {
		return p, nil
	}
	if p.Metadata == nil {
		p.Metadata = map[string]string{}
	}
	for k, v := range metadata {
		p.Metadata[k] = v
	}
	meta, err := json.Marshal(p.Metadata)
	if err != nil {
		return nil, err
	}
	_, err = r.DB.ExecContext(ctx,
		`UPDATE payments SET metadata = ?, updated_at = ? WHERE id = ?`,
		string(meta), time.Now().UTC(), p.ID)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, p.ID)
}

func (r *PaymentRepo) getOne(ctx context.Context, query string, arg interface{}) (*model.Payment, error) {
	p, err := scanPayment(r.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *PaymentRepo) list(ctx context.Context, query string, args ...interface{}) ([]*model.Payment, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	payments := make([]*model.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(row rowScanner) (*model.Payment, error) {
	var p model.Payment
	var gateway, status string
	var gatewayPaymentID, meta sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(&p.ID, &p.UserID, &p.EventID, &p.Amount, &p.Currency, &gateway,
		&p.GatewayOrderID, &gatewayPaymentID, &p.Quantity, &status, &p.UserEmail,
		&p.UserName, &meta, &p.CreatedAt, &p.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	p.Gateway = model.Gateway(gateway)
	p.Status = model.PaymentStatus(status)
	if gatewayPaymentID.Valid {
		p.GatewayPaymentID = gatewayPaymentID.String
	}
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &p.Metadata); err != nil {
			return nil, err
		}
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		p.CompletedAt = &t
	}
	return &p, nil
}
