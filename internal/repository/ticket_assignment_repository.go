package repository

import (
	"context"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// TicketAssignmentRepository persists the single assignment row of a ticket.
type TicketAssignmentRepository interface {
	// Insert fails with ConstraintViolation when the ticket already has an assignment.
	Insert(ctx context.Context, assignment *domain.TicketAssignment) error
}

type ticketAssignmentRepository struct {
	db DBTX
}

// NewTicketAssignmentRepository builds repository.
func NewTicketAssignmentRepository(db DBTX) TicketAssignmentRepository {
	return &ticketAssignmentRepository{db: db}
}

func (r *ticketAssignmentRepository) Insert(ctx context.Context, assignment *domain.TicketAssignment) error {
	const query = `
        INSERT INTO ticket_assignments (ticket_id, reported_by, assigned_to, assignment_notes)
        VALUES ($1,$2,$3,$4)
        RETURNING assignment_id`
	err := r.db.QueryRow(ctx, query,
		assignment.TicketID,
		assignment.ReportedBy,
		assignment.AssignedTo,
		assignment.AssignmentNotes,
	).Scan(&assignment.ID)
	return storeError("insert ticket assignment", err)
}
