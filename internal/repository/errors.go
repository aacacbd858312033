// Package repository implements the persistent stores over MySQL. This
// file defines sentinel error values shared across repositories. Handlers
// translate them into HTTP status codes at the boundary; repository and
// service code never maps to HTTP itself.
package repository

import "errors"

var (
	// ErrUserNotFound is returned when a user lookup matches nothing (404).
	ErrUserNotFound = errors.New("user not found")
	// ErrEventNotFound is returned when an event lookup matches nothing (404).
	ErrEventNotFound = errors.New("event not found")
	// ErrPaymentNotFound is returned when a ledger lookup matches nothing (404).
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrEmailExists is returned on signup with an already-registered email (409).
	ErrEmailExists = errors.New("email already exists")

	// ErrAlreadyRSVPd is returned when a user is already in an event's RSVP
	// set (409). The payment completion path treats it as success-already-
	// applied; every other caller surfaces it.
	ErrAlreadyRSVPd = errors.New("already RSVP'd")
	// ErrEventFull is returned when an RSVP would exceed maxAttendees (409).
	ErrEventFull = errors.New("event is full")

	// ErrPaymentConflict is returned when a completion attempt carries a
	// different gateway payment id than the one already recorded, or targets
	// a payment that already failed (409). It protects against a redirect
	// callback and a webhook double-processing the same order.
	ErrPaymentConflict = errors.New("payment already processed")

	// ErrForbidden is returned when the caller lacks ownership or role for
	// an operation (403).
	ErrForbidden = errors.New("forbidden")
)
