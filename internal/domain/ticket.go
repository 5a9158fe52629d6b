package domain

import "time"

// Defaults applied to omitted ticket fields.
const (
	DefaultTicketStatus    = "New"
	DefaultTicketPriority  = "Medium"
	DefaultRegionManager   = "N/A"
	DefaultAmountOfReports = 1
)

// ReportedAtLayout is the fixed text format tickets store their report time in.
const ReportedAtLayout = "2006-01-02 15:04:05"

// Ticket is a single reported issue. Category is assigned by the classifier,
// never by the caller.
type Ticket struct {
	ID            int64
	Title         string
	Description   string
	Status        string
	Priority      string
	ReportedAt    string
	EstRepairTime *float64
	Category      string
	ImageURL      *string
	RegionID      int64
}

// FormatReportedAt renders t in the stored report time format.
func FormatReportedAt(t time.Time) string {
	return t.Format(ReportedAtLayout)
}

// TicketAssignment records who reported a ticket and who owns it. Exactly one per ticket.
type TicketAssignment struct {
	ID              int64
	TicketID        int64
	ReportedBy      *string
	AssignedTo      *string
	AssignmentNotes *string
}

// TicketDetails holds supplementary ticket data. Exactly one per ticket.
type TicketDetails struct {
	ID              int64
	TicketID        int64
	Address         *string
	AmountOfReports int
	InternalNotes   *string
}

// TicketRecord is the flattened read model joining a ticket with its region,
// assignment and details.
type TicketRecord struct {
	TicketID        int64
	Title           string
	Description     string
	Status          string
	Priority        string
	ReportedAt      string
	EstRepairTime   *float64
	Category        string
	ImageURL        *string
	RegionID        int64
	RegionName      string
	RegionManager   string
	ReportedBy      *string
	AssignedTo      *string
	AssignmentNotes *string
	Address         *string
	AmountOfReports int
	InternalNotes   *string
}
