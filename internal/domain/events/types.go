package events

import "time"

// Person is the user projection embedded in event payloads.
type Person struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Attendee is one registration row on an event detail view.
type Attendee struct {
	ID           string    `json:"id"`
	User         Person    `json:"user"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Event is the API shape of an event. RemainingSpots is derived on read and
// never stored.
type Event struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Date           time.Time  `json:"date"`
	Location       string     `json:"location"`
	MaxSpots       int        `json:"maxSpots"`
	CreatorID      string     `json:"creatorId"`
	CreatedAt      time.Time  `json:"createdAt"`
	RemainingSpots int        `json:"remainingSpots"`
	Creator        Person     `json:"creator"`
	Registrations  []Attendee `json:"registrations,omitempty"`
}

// Actor is the authenticated identity performing a mutation.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == "ADMIN"
}

type CreateParams struct {
	Title       string
	Description string
	Date        time.Time
	Location    string
	MaxSpots    int
	CreatorID   string
}

type UpdateParams struct {
	Title       string
	Description string
	Date        time.Time
	Location    string
	MaxSpots    int
}
