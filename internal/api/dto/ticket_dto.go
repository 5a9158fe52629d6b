package dto

import "github.com/spec-kit/ticket-triage/internal/domain"

// CreateTicketRequest is the JSON payload of POST /api/tickets, sent either as the
// whole body or as the multipart "data" field. Unknown fields are ignored.
type CreateTicketRequest struct {
	RegionName      string   `json:"region_name"`
	RegionManager   *string  `json:"region_manager"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Status          *string  `json:"status"`
	Priority        *string  `json:"priority"`
	EstRepairTime   *float64 `json:"est_repair_time"`
	ReportedBy      *string  `json:"reported_by"`
	AssignedTo      *string  `json:"assigned_to"`
	AssignmentNotes *string  `json:"assignment_notes"`
	Address         *string  `json:"address"`
	AmountOfReports *int     `json:"amount_of_reports"`
	InternalNotes   *string  `json:"internal_notes"`
}

// CreateTicketResponse acknowledges a created ticket.
type CreateTicketResponse struct {
	Message  string  `json:"message"`
	TicketID int64   `json:"ticket_id"`
	ImageURL *string `json:"image_url"`
}

// TicketResponse is one entry of the ticket listing. Absent optional values are null.
type TicketResponse struct {
	TicketID        int64    `json:"ticket_id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Status          string   `json:"status"`
	Priority        string   `json:"priority"`
	ReportedAt      string   `json:"reported_at"`
	EstRepairTime   *float64 `json:"est_repair_time"`
	Category        string   `json:"category"`
	ImageURL        *string  `json:"image_url"`
	RegionID        int64    `json:"region_id"`
	RegionName      string   `json:"region_name"`
	RegionManager   string   `json:"region_manager"`
	ReportedBy      *string  `json:"reported_by"`
	AssignedTo      *string  `json:"assigned_to"`
	AssignmentNotes *string  `json:"assignment_notes"`
	Address         *string  `json:"address"`
	AmountOfReports int      `json:"amount_of_reports"`
	InternalNotes   *string  `json:"internal_notes"`
}

// NewTicketResponse flattens a record for the wire.
func NewTicketResponse(rec domain.TicketRecord) TicketResponse {
	return TicketResponse{
		TicketID:        rec.TicketID,
		Title:           rec.Title,
		Description:     rec.Description,
		Status:          rec.Status,
		Priority:        rec.Priority,
		ReportedAt:      rec.ReportedAt,
		EstRepairTime:   rec.EstRepairTime,
		Category:        rec.Category,
		ImageURL:        rec.ImageURL,
		RegionID:        rec.RegionID,
		RegionName:      rec.RegionName,
		RegionManager:   rec.RegionManager,
		ReportedBy:      rec.ReportedBy,
		AssignedTo:      rec.AssignedTo,
		AssignmentNotes: rec.AssignmentNotes,
		Address:         rec.Address,
		AmountOfReports: rec.AmountOfReports,
		InternalNotes:   rec.InternalNotes,
	}
}
