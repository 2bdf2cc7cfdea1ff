package registrations

import "time"

// Person is the user projection returned with a registration.
type Person struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Registration struct {
	ID           string    `json:"id"`
	EventID      string    `json:"eventId"`
	UserID       string    `json:"userId"`
	RegisteredAt time.Time `json:"registeredAt"`
	User         Person    `json:"user"`
}

// EventSummary is the event projection on the admin registrations listing.
type EventSummary struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
	Location string    `json:"location"`
}

// AdminRegistration is one row of the admin-wide registrations listing.
type AdminRegistration struct {
	ID           string       `json:"id"`
	RegisteredAt time.Time    `json:"registeredAt"`
	User         Person       `json:"user"`
	Event        EventSummary `json:"event"`
}

// EventInfo carries what the organizer notification needs.
type EventInfo struct {
	ID             string
	Title          string
	OrganizerName  string
	OrganizerEmail string
}
