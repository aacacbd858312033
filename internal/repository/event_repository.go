package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/motosaga/moto-saga/internal/model"
)

// EventRepo provides access to the `events` table and its RSVP set stored
// in `event_rsvps`. The RSVP mutations are the concurrency-sensitive part
// of the whole system: AddRSVP must enforce uniqueness and the capacity
// bound as one serializable step per event, so it runs inside a
// transaction that locks the event row first.
type EventRepo struct{ DB *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{DB: db} }

const eventColumns = `id, creator_id, title, description, date, location, event_type, max_attendees, image_url, ticket_price, currency, created_at, updated_at`

// CreateInput carries the validated fields for a new event. Validation of
// required fields and the creator's admin role happens in the handler; the
// repository only persists.
type CreateInput struct {
	CreatorID    string
	Title        string
	Description  string
	Date         time.Time
	Location     string
	EventType    model.EventType
	MaxAttendees int
	ImageURL     string
	TicketPrice  float64
	Currency     string
}

// Create inserts a new event with an empty RSVP set and returns it.
func (r *EventRepo) Create(ctx context.Context, in CreateInput) (*model.Event, error) {
	e := &model.Event{
		ID:           uuid.NewString(),
		CreatorID:    in.CreatorID,
		Title:        in.Title,
		Description:  in.Description,
		Date:         in.Date,
		Location:     in.Location,
		EventType:    in.EventType,
		MaxAttendees: in.MaxAttendees,
		ImageURL:     in.ImageURL,
		TicketPrice:  in.TicketPrice,
		Currency:     in.Currency,
		RSVPs:        []string{},
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	e.RequiresPayment = e.TicketPrice > 0
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO events (id, creator_id, title, description, date, location, event_type, max_attendees, image_url, ticket_price, currency, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.CreatorID, e.Title, e.Description, e.Date, e.Location, string(e.EventType),
		e.MaxAttendees, e.ImageURL, e.TicketPrice, e.Currency, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetByID returns an event with its RSVP set and count populated, or
// ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.DB.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ? LIMIT 1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	rsvps, err := r.loadRSVPs(ctx, []string{e.ID})
	if err != nil {
		return nil, err
	}
	e.RSVPs = rsvps[e.ID]
	e.RSVPCount = len(e.RSVPs)
	return e, nil
}

// ListAll returns all events ordered by date ascending, each with its RSVP
// set populated via one batched query (not one query per event).
func (r *EventRepo) ListAll(ctx context.Context) ([]*model.Event, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*model.Event, 0)
	ids := make([]string, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rsvps, err := r.loadRSVPs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		e.RSVPs = rsvps[e.ID]
		if e.RSVPs == nil {
			e.RSVPs = []string{}
		}
		e.RSVPCount = len(e.RSVPs)
	}
	return events, nil
}

// UpdateInput carries the allow-listed mutable fields for an event. Nil
// pointers leave the column untouched.
type UpdateInput struct {
	Title        *string
	Description  *string
	Date         *time.Time
	Location     *string
	EventType    *model.EventType
	MaxAttendees *int
	ImageURL     *string
	TicketPrice  *float64
	Currency     *string
}

// Update applies the provided fields and returns the refreshed event.
// RequiresPayment is re-derived from the (possibly new) ticket price on
// the next read; it is never a column.
func (r *EventRepo) Update(ctx context.Context, id string, in UpdateInput) (*model.Event, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC()}
	add := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if in.Title != nil {
		add("title", *in.Title)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.Date != nil {
		add("date", *in.Date)
	}
	if in.Location != nil {
		add("location", *in.Location)
	}
	if in.EventType != nil {
		add("event_type", string(*in.EventType))
	}
	if in.MaxAttendees != nil {
		add("max_attendees", *in.MaxAttendees)
	}
	if in.ImageURL != nil {
		add("image_url", *in.ImageURL)
	}
	if in.TicketPrice != nil {
		add("ticket_price", *in.TicketPrice)
	}
	if in.Currency != nil {
		add("currency", *in.Currency)
	}
	args = append(args, id)
	if _, err := r.DB.ExecContext(ctx, `UPDATE events SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes an event and its RSVP rows (cascaded by foreign key).
// Returns ErrEventNotFound when nothing was deleted.
func (r *EventRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// AddRSVP inserts userID into the event's RSVP set. The event row is
// locked FOR UPDATE for the duration of the transaction, which serializes
// concurrent joins on the same event: the membership check, the capacity
// check and the insert are one logical step, so two racing joins can never
// both pass a capacity check based on a stale count.
//
// Returns ErrEventNotFound, ErrAlreadyRSVPd or ErrEventFull; on success
// the refreshed event is returned.
func (r *EventRepo) AddRSVP(ctx context.Context, eventID, userID string) (*model.Event, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var maxAttendees int
	err = tx.QueryRowContext(ctx,
		`SELECT max_attendees FROM events WHERE id = ? FOR UPDATE`, eventID).Scan(&maxAttendees)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_rsvps WHERE event_id = ? AND user_id = ?`, eventID, userID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists > 0 {
		return nil, ErrAlreadyRSVPd
	}

	if maxAttendees > 0 {
		var count int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM event_rsvps WHERE event_id = ?`, eventID).Scan(&count)
		if err != nil {
			return nil, err
		}
		if count >= maxAttendees {
			return nil, ErrEventFull
		}
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO event_rsvps (event_id, user_id, created_at) VALUES (?,?,?)`,
		eventID, userID, now); err != nil {
		// The (event_id, user_id) primary key backs up the membership check.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return nil, ErrAlreadyRSVPd
		}
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE events SET updated_at = ? WHERE id = ?`, now, eventID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return r.GetByID(ctx, eventID)
}

// RemoveRSVP deletes userID from the event's RSVP set. Removal is
// idempotent: a missing membership is not an error, but a missing event
// is. Returns the refreshed event.
func (r *EventRepo) RemoveRSVP(ctx context.Context, eventID, userID string) (*model.Event, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM event_rsvps WHERE event_id = ? AND user_id = ?`, eventID, userID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		if _, err := r.DB.ExecContext(ctx,
			`UPDATE events SET updated_at = ? WHERE id = ?`, time.Now().UTC(), eventID); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, eventID)
}

// Count returns the total number of events.
func (r *EventRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

// CountSince returns the number of events created at or after the cutoff.
func (r *EventRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE created_at >= ?`, since).Scan(&n)
	return n, err
}

// loadRSVPs fetches the RSVP sets for many events in one query, ordered by
// join time so the display order is stable. Returned map is keyed by event
// id.
func (r *EventRepo) loadRSVPs(ctx context.Context, eventIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(eventIDs))
	args := make([]interface{}, len(eventIDs))
	for i, id := range eventIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT event_id, user_id FROM event_rsvps
		 WHERE event_id IN (`+strings.Join(placeholders, ",")+`)
		 ORDER BY event_id, created_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var eventID, userID string
		if err := rows.Scan(&eventID, &userID); err != nil {
			return nil, err
		}
		out[eventID] = append(out[eventID], userID)
	}
	return out, rows.Err()
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var e model.Event
	var eventType string
	err := row.Scan(&e.ID, &e.CreatorID, &e.Title, &e.Description, &e.Date, &e.Location,
		&eventType, &e.MaxAttendees, &e.ImageURL, &e.TicketPrice, &e.Currency,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.EventType = model.EventType(eventType)
	e.RequiresPayment = e.TicketPrice > 0
	return &e, nil
}
