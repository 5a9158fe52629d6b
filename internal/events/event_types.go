package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = "ticket_created"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  int64     `json:"ticket_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload describes a committed ticket.
type TicketCreatedPayload struct {
	RegionID   int64   `json:"region_id"`
	RegionName string  `json:"region_name"`
	Category   string  `json:"category"`
	Priority   string  `json:"priority"`
	Title      string  `json:"title"`
	ImageURL   *string `json:"image_url,omitempty"`
}
