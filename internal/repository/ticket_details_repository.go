package repository

import (
	"context"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// TicketDetailsRepository persists the single details row of a ticket.
type TicketDetailsRepository interface {
	// Insert fails with ConstraintViolation when the ticket already has details.
	Insert(ctx context.Context, details *domain.TicketDetails) error
}

type ticketDetailsRepository struct {
	db DBTX
}

// NewTicketDetailsRepository builds repository.
func NewTicketDetailsRepository(db DBTX) TicketDetailsRepository {
	return &ticketDetailsRepository{db: db}
}

func (r *ticketDetailsRepository) Insert(ctx context.Context, details *domain.TicketDetails) error {
	const query = `
        INSERT INTO ticket_details (ticket_id, address, amount_of_reports, internal_notes)
        VALUES ($1,$2,$3,$4)
        RETURNING detail_id`
	err := r.db.QueryRow(ctx, query,
		details.TicketID,
		details.Address,
		details.AmountOfReports,
		details.InternalNotes,
	).Scan(&details.ID)
	return storeError("insert ticket details", err)
}
