package model

import "time"

// EventType tags the kind of gathering an event is. Closed set; the
// create/update handlers reject anything else.
type EventType string

const (
	EventRide       EventType = "ride"
	EventMeetup     EventType = "meetup"
	EventRace       EventType = "race"
	EventExhibition EventType = "exhibition"
	EventWorkshop   EventType = "workshop"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventRide, EventMeetup, EventRace, EventExhibition, EventWorkshop:
		return true
	}
	return false
}

// Event represents a row in the `events` table together with its RSVP
// set from `event_rsvps`. MaxAttendees of zero means unlimited capacity.
// Invariant: len(RSVPs) never exceeds MaxAttendees when MaxAttendees > 0,
// and a user appears in RSVPs at most once; both are enforced at the
// storage layer inside a single transaction.
//
// RequiresPayment is derived from TicketPrice at read time, never stored.
// Amounts are in major currency units.
type Event struct {
	ID              string    `json:"id"`
	CreatorID       string    `json:"creatorId"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Date            time.Time `json:"date"`
	Location        string    `json:"location"`
	EventType       EventType `json:"eventType"`
	MaxAttendees    int       `json:"maxAttendees"`
	ImageURL        string    `json:"imageUrl"`
	TicketPrice     float64   `json:"ticketPrice"`
	Currency        string    `json:"currency"`
	RequiresPayment bool      `json:"requiresPayment"`
	RSVPs           []string  `json:"rsvps"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	// Read-time augmentation, populated by list/get queries only.
	RSVPCount int          `json:"rsvpCount"`
	Creator   *UserSummary `json:"creator,omitempty"`
}

// HasRSVP reports whether userID is in the event's RSVP set.
func (e *Event) HasRSVP(userID string) bool {
	for _, id := range e.RSVPs {
		if id == userID {
			return true
		}
	}
	return false
}
