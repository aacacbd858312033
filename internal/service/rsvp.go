package service

import (
	"context"
	"errors"
	"time"

	"github.com/motosaga/moto-saga/internal/model"
	"github.com/motosaga/moto-saga/internal/queue"
	"github.com/motosaga/moto-saga/internal/repository"
)

// ToggleRSVP flips the user's membership on an event: a joined user is
// removed, a non-joined user is added. The decision is taken from the
// current set, but the grant itself happens inside the store's
// serializable AddRSVP, so two concurrent toggles for the same (event,
// user) pair resolve to exactly one membership change. The loser of the
// race gets the already-RSVP'd conflict rather than a double booking.
//
// The returned bool reports whether the user is joined after the call.
func (s *RSVPService) ToggleRSVP(ctx context.Context, eventID, userID string) (*model.Event, bool, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, false, err
	}
	if event.HasRSVP(userID) {
		updated, err := s.events.RemoveRSVP(ctx, eventID, userID)
		if err != nil {
			return nil, false, err
		}
		return updated, false, nil
	}
	updated, err := s.events.AddRSVP(ctx, eventID, userID)
	if err != nil {
		return nil, false, err
	}
	s.announceRSVP(ctx, updated, userID, "")
	return updated, true, nil
}

// grantRSVP is the terminal action of a successful payment: it adds the
// payer to the event's RSVP set. Membership is only ever granted through
// AddRSVP, never inferred from payment status, so the capacity check
// still applies here. The call is re-entrant: when the redirect
// verification and the webhook both complete the same payment, the second
// grant hits the already-RSVP'd conflict and treats it as
// success-already-applied.
//
// When the event filled up (or was deleted) while the payment was in
// flight, the payment stays completed but the seat is not granted: the
// payment is flagged for refund follow-up, an operator message is
// published and ErrRSVPNotGranted is returned.
func (s *RSVPService) grantRSVP(ctx context.Context, p *model.Payment) error {
	event, err := s.events.AddRSVP(ctx, p.EventID, p.UserID)
	if err == nil {
		s.announceRSVP(ctx, event, p.UserID, p.ID)
		return nil
	}
	if errors.Is(err, repository.ErrAlreadyRSVPd) {
		return nil
	}
	if errors.Is(err, repository.ErrEventFull) || errors.Is(err, repository.ErrEventNotFound) {
		reason := "event full"
		if errors.Is(err, repository.ErrEventNotFound) {
			reason = "event deleted"
		}
		// Completed payments are immutable except for metadata, which is
		// where the compensation markers go.
		_, _ = s.payments.MergeMetadata(ctx, p.ID, map[string]string{
			"rsvpGranted":  "false",
			"compensation": "refund_required",
			"denyReason":   reason,
		})
		if s.publisher != nil {
			_ = s.publisher.PublishRSVPDenied(ctx, queue.RSVPDeniedEvent{
				PaymentID: p.ID,
				EventID:   p.EventID,
				UserID:    p.UserID,
				Reason:    reason,
				DeniedAt:  time.Now().UTC().Format(time.RFC3339),
			})
		}
		return ErrRSVPNotGranted
	}
	return err
}

func (s *RSVPService) announceRSVP(ctx context.Context, event *model.Event, userID, paymentID string) {
	if s.publisher == nil || event == nil {
		return
	}
	_ = s.publisher.PublishRSVPConfirmed(ctx, queue.RSVPConfirmedEvent{
		EventID:     event.ID,
		EventTitle:  event.Title,
		EventDate:   event.Date.UTC().Format(time.RFC3339),
		UserID:      userID,
		RSVPCount:   event.RSVPCount,
		PaymentID:   paymentID,
		ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
	})
}
