package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	// Insert assigns ticket.ID. The row is visible outside the enclosing
	// transaction only after commit.
	Insert(ctx context.Context, ticket *domain.Ticket) error
	// ListDistinctCategories returns every category in use, sorted. An empty
	// table yields an empty slice.
	ListDistinctCategories(ctx context.Context) ([]string, error)
	// ListAll joins tickets with regions, assignments and details in ticket id order.
	ListAll(ctx context.Context) ([]domain.TicketRecord, error)
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Insert(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status, priority, reported_at, est_repair_time, category, image_url, region_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING ticket_id`
	err := r.db.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.ReportedAt,
		ticket.EstRepairTime,
		ticket.Category,
		ticket.ImageURL,
		ticket.RegionID,
	).Scan(&ticket.ID)
	return storeError("insert ticket", err)
}

func (r *ticketRepository) ListDistinctCategories(ctx context.Context) ([]string, error) {
	const query = `
        SELECT DISTINCT category FROM tickets
        WHERE category IS NOT NULL AND category <> ''
        ORDER BY category`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, storeError("list categories", err)
	}
	categories, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, storeError("list categories", err)
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

func (r *ticketRepository) ListAll(ctx context.Context) ([]domain.TicketRecord, error) {
	const query = `
        SELECT t.ticket_id, t.title, t.description, t.status, t.priority, t.reported_at,
               t.est_repair_time, t.category, t.image_url,
               r.region_id, r.region_name, r.region_manager,
               a.reported_by, a.assigned_to, a.assignment_notes,
               d.address, COALESCE(d.amount_of_reports, 1), d.internal_notes
        FROM tickets t
        JOIN regions r ON r.region_id = t.region_id
        LEFT JOIN ticket_assignments a ON a.ticket_id = t.ticket_id
        LEFT JOIN ticket_details d ON d.ticket_id = t.ticket_id
        ORDER BY t.ticket_id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, storeError("list tickets", err)
	}
	defer rows.Close()

	result := []domain.TicketRecord{}
	for rows.Next() {
		var rec domain.TicketRecord
		if err := rows.Scan(
			&rec.TicketID,
			&rec.Title,
			&rec.Description,
			&rec.Status,
			&rec.Priority,
			&rec.ReportedAt,
			&rec.EstRepairTime,
			&rec.Category,
			&rec.ImageURL,
			&rec.RegionID,
			&rec.RegionName,
			&rec.RegionManager,
			&rec.ReportedBy,
			&rec.AssignedTo,
			&rec.AssignmentNotes,
			&rec.Address,
			&rec.AmountOfReports,
			&rec.InternalNotes,
		); err != nil {
			return nil, storeError("list tickets", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list tickets", err)
	}
	return result, nil
}
