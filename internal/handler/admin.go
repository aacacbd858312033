package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/motosaga/moto-saga/internal/repository"
)

// recentWindow is the lookback for the "recent" counters on the stats
// endpoint.
const recentWindow = 7 * 24 * time.Hour

// adminListLimit caps the admin payment listing.
const adminListLimit = 200

// AdminHandler serves the reporting routes. Every route in the admin group
// sits behind RequireAdmin.
type AdminHandler struct {
	Users    *repository.UserRepo
	Events   *repository.EventRepo
	Payments *repository.PaymentRepo
}

func NewAdminHandler(users *repository.UserRepo, events *repository.EventRepo, payments *repository.PaymentRepo) *AdminHandler {
	return &AdminHandler{Users: users, Events: events, Payments: payments}
}

// Stats handles GET /v1/admin/stats: platform totals, per-role user
// counts, payment aggregates and seven-day growth counters.
func (h *AdminHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	since := time.Now().UTC().Add(-recentWindow)

	totalUsers, err := h.Users.Count(ctx)
	if err != nil {
		return fail(c, err)
	}
	usersByRole, err := h.Users.CountByRole(ctx)
	if err != nil {
		return fail(c, err)
	}
	totalEvents, err := h.Events.Count(ctx)
	if err != nil {
		return fail(c, err)
	}
	paymentStats, err := h.Payments.GetStats(ctx)
	if err != nil {
		return fail(c, err)
	}
	recentUsers, err := h.Users.CountSince(ctx, since)
	if err != nil {
		return fail(c, err)
	}
	recentEvents, err := h.Events.CountSince(ctx, since)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"totalUsers":  totalUsers,
		"totalEvents": totalEvents,
		"usersByRole": usersByRole,
		"payments":    paymentStats,
		"recent": echo.Map{
			"users":  recentUsers,
			"events": recentEvents,
		},
	})
}

// ListUsers handles GET /v1/admin/users: every account, newest first. The
// model never serializes password hashes.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, err := h.Users.ListAll(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

// ListPayments handles GET /v1/admin/payments: the most recent ledger
// entries with user and event summaries attached.
func (h *AdminHandler) ListPayments(c echo.Context) error {
	ctx := c.Request().Context()
	payments, err := h.Payments.ListRecent(ctx, adminListLimit)
	if err != nil {
		return fail(c, err)
	}
	attachSummaries(ctx, h.Users, h.Events, payments)
	return c.JSON(http.StatusOK, payments)
}
