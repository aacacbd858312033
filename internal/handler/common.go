// Package handler contains the echo HTTP handlers. Handlers are the only
// layer that maps the typed errors coming out of the repositories, the
// gateway adapters and the reconciliation service onto HTTP status codes;
// everything below them returns sentinel errors and nothing else.
package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/motosaga/moto-saga/internal/gateway"
	"github.com/motosaga/moto-saga/internal/repository"
	"github.com/motosaga/moto-saga/internal/service"
)

// getUserID extracts the authenticated user's id injected by the JWT
// middleware. Handlers behind JWTAuth can assume it is present; a missing
// or malformed value means the route was misregistered and is answered
// with 401.
func getUserID(c echo.Context) (string, error) {
	v, ok := c.Get("user_id").(string)
	if !ok || v == "" {
		return "", echo.ErrUnauthorized
	}
	return v, nil
}

// getActor builds the service Actor from the JWT claims.
func getActor(c echo.Context) (service.Actor, error) {
	userID, err := getUserID(c)
	if err != nil {
		return service.Actor{}, err
	}
	email, _ := c.Get("email").(string)
	name, _ := c.Get("name").(string)
	return service.Actor{UserID: userID, Email: email, Name: name}, nil
}

// isAdmin reports whether the authenticated caller carries the admin role
// claim.
func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == "admin"
}

// statusFor maps the error taxonomy to HTTP status codes: validation 400,
// not found 404, ownership/role 403, duplicate RSVP / full event /
// payment double-processing 409, gateway trouble 502. Anything
// unrecognized is a 500 and its detail stays in the logs, not the
// response.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrEventNotFound),
		errors.Is(err, repository.ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrAlreadyRSVPd),
		errors.Is(err, repository.ErrEventFull),
		errors.Is(err, repository.ErrPaymentConflict),
		errors.Is(err, repository.ErrEmailExists),
		errors.Is(err, service.ErrRSVPNotGranted):
		return http.StatusConflict
	case errors.Is(err, service.ErrPaymentNotRequired),
		errors.Is(err, service.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, gateway.ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the user-visible message for an error. Known
// sentinels speak for themselves; internal failures are flattened to a
// generic message.
func messageFor(err error) string {
	if statusFor(err) == http.StatusInternalServerError {
		return "internal error"
	}
	if errors.Is(err, gateway.ErrGateway) {
		return "payment gateway unavailable"
	}
	switch {
	case errors.Is(err, repository.ErrAlreadyRSVPd):
		return "Already RSVP'd"
	case errors.Is(err, repository.ErrEventFull):
		return "Event is full"
	}
	return err.Error()
}

// fail answers a request with the mapped status and message for err,
// logging the full detail for anything that is not a plain client error.
func fail(c echo.Context, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, echo.Map{"error": messageFor(err)})
}
