package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/motosaga/moto-saga/internal/model"
	"github.com/motosaga/moto-saga/internal/repository"
	"github.com/motosaga/moto-saga/internal/service"
)

// EventHandler serves the event feed and the RSVP toggle. All writes are
// authenticated; creation is additionally restricted to administrators by
// route middleware.
type EventHandler struct {
	Events *repository.EventRepo
	Users  *repository.UserRepo
	Svc    *service.RSVPService
}

func NewEventHandler(events *repository.EventRepo, users *repository.UserRepo, svc *service.RSVPService) *EventHandler {
	return &EventHandler{Events: events, Users: users, Svc: svc}
}

type eventCreateReq struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Date         string  `json:"date"`
	Location     string  `json:"location"`
	EventType    string  `json:"eventType"`
	MaxAttendees int     `json:"maxAttendees"`
	ImageURL     string  `json:"imageUrl"`
	TicketPrice  float64 `json:"ticketPrice"`
	Currency     string  `json:"currency"`
}

type eventUpdateReq struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	Date         *string  `json:"date"`
	Location     *string  `json:"location"`
	EventType    *string  `json:"eventType"`
	MaxAttendees *int     `json:"maxAttendees"`
	ImageURL     *string  `json:"imageUrl"`
	TicketPrice  *float64 `json:"ticketPrice"`
	Currency     *string  `json:"currency"`
}

// Create handles POST /v1/events. The RequireAdmin middleware has already
// rejected non-administrators; this validates the payload and persists.
func (h *EventHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req eventCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title == "" || req.Description == "" || req.Date == "" || req.Location == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required fields"})
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
	}
	eventType := model.EventType(strings.ToLower(req.EventType))
	if req.EventType == "" {
		eventType = model.EventRide
	}
	if !eventType.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event type"})
	}
	if req.MaxAttendees < 0 || req.TicketPrice < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid capacity or price"})
	}
	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}

	event, err := h.Events.Create(c.Request().Context(), repository.CreateInput{
		CreatorID:    userID,
		Title:        req.Title,
		Description:  req.Description,
		Date:         date.UTC(),
		Location:     req.Location,
		EventType:    eventType,
		MaxAttendees: req.MaxAttendees,
		ImageURL:     req.ImageURL,
		TicketPrice:  req.TicketPrice,
		Currency:     currency,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, event)
}

// List handles GET /v1/events: all events ordered by date ascending, each
// carrying its RSVP count and a creator summary resolved through one
// batched user lookup rather than a query per row.
func (h *EventHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	events, err := h.Events.ListAll(ctx)
	if err != nil {
		return fail(c, err)
	}
	creatorIDs := make([]string, 0, len(events))
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		if _, ok := seen[e.CreatorID]; !ok {
			seen[e.CreatorID] = struct{}{}
			creatorIDs = append(creatorIDs, e.CreatorID)
		}
	}
	creators, err := h.Users.GetByIDs(ctx, creatorIDs)
	if err != nil {
		return fail(c, err)
	}
	for _, e := range events {
		if u, ok := creators[e.CreatorID]; ok {
			s := u.Summary()
			e.Creator = &s
		}
	}
	return c.JSON(http.StatusOK, events)
}

// Get handles GET /v1/events/:id with the same augmentation as List.
func (h *EventHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	event, err := h.Events.GetByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	if u, err := h.Users.GetByID(ctx, event.CreatorID); err == nil {
		s := u.Summary()
		event.Creator = &s
	}
	return c.JSON(http.StatusOK, event)
}

// ToggleRSVP handles POST /v1/events/:id/rsvp: joined users leave,
// non-joined users join (free events directly, the capacity check applies
// either way). Paid events still go through this endpoint for leaving;
// joining them normally runs through the payment flow instead.
func (h *EventHandler) ToggleRSVP(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	event, _, err := h.Svc.ToggleRSVP(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, event)
}

// Update handles PUT /v1/events/:id: allow-listed field updates by the
// creator or an administrator. requiresPayment is re-derived from the new
// ticket price.
func (h *EventHandler) Update(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	event, err := h.Events.GetByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	if event.CreatorID != userID && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	var req eventUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	in := repository.UpdateInput{
		Title:        req.Title,
		Description:  req.Description,
		Location:     req.Location,
		MaxAttendees: req.MaxAttendees,
		ImageURL:     req.ImageURL,
		TicketPrice:  req.TicketPrice,
		Currency:     req.Currency,
	}
	if req.Date != nil {
		date, err := time.Parse(time.RFC3339, *req.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
		}
		utc := date.UTC()
		in.Date = &utc
	}
	if req.EventType != nil {
		eventType := model.EventType(strings.ToLower(*req.EventType))
		if !eventType.Valid() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event type"})
		}
		in.EventType = &eventType
	}
	updated, err := h.Events.Update(ctx, event.ID, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /v1/events/:id: creator or administrator only.
func (h *EventHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	event, err := h.Events.GetByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	if event.CreatorID != userID && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err := h.Events.Delete(ctx, event.ID); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Event deleted successfully"})
}
