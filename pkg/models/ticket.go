package models

import "time"

// Ticket is the unit of work a TestCase is derived from. Only
// READY_TO_TEST tickets are a generator of executions.
type Ticket struct {
	ID           string       `json:"id"`
	ProjectID    string       `json:"project_id"`
	Title        string       `json:"title"`
	Status       TicketStatus `json:"status"`
	PrimaryActor *string      `json:"primary_actor,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
