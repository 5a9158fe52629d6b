package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/events"
	"github.com/spec-kit/ticket-triage/internal/observability"
	"github.com/spec-kit/ticket-triage/internal/repository"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util/errorutil"
)

// CategoryClassifier assigns a category to a ticket description given the
// categories already in use.
type CategoryClassifier interface {
	Classify(ctx context.Context, description string, known []string) (string, error)
}

// TicketService coordinates ticket creation and listing.
type TicketService struct {
	store      repository.Store
	classifier CategoryClassifier
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      repository.Store
	Classifier CategoryClassifier
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Now        func() time.Time
}

// TicketCreateInput describes the ticket creation payload. Pointer fields are optional.
type TicketCreateInput struct {
	RegionName      string   `json:"region_name" validate:"notblank,max=100,nonul"`
	RegionManager   *string  `json:"region_manager" validate:"omitempty,max=100,nonul"`
	Title           string   `json:"title" validate:"notblank,max=255,nonul"`
	Description     string   `json:"description" validate:"nonul"`
	Status          *string  `json:"status" validate:"omitempty,max=50,nonul"`
	Priority        *string  `json:"priority" validate:"omitempty,max=50,nonul"`
	EstRepairTime   *float64 `json:"est_repair_time"`
	ReportedBy      *string  `json:"reported_by" validate:"omitempty,max=100,nonul"`
	AssignedTo      *string  `json:"assigned_to" validate:"omitempty,max=100,nonul"`
	AssignmentNotes *string  `json:"assignment_notes" validate:"omitempty,nonul"`
	Address         *string  `json:"address" validate:"omitempty,nonul"`
	AmountOfReports *int     `json:"amount_of_reports" validate:"omitempty,min=0,max=2147483647"`
	InternalNotes   *string  `json:"internal_notes" validate:"omitempty,nonul"`
	ImageURL        *string  `json:"image_url" validate:"omitempty,max=500,nonul"`
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		store:      deps.Store,
		classifier: deps.Classifier,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
		now:        now,
	}
}

// CreateTicket stores a ticket together with its region (created on first use),
// assignment and details rows, and returns the new ticket id. The category comes
// from the classifier, which is consulted before any write transaction opens.
//
// Missing required fields fail with a ValidationError and touch nothing. Every
// later failure rolls back and surfaces as TicketCreationFailed wrapping the cause.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (int64, error) {
	input.RegionName = strings.TrimSpace(input.RegionName)
	input.Title = strings.TrimSpace(input.Title)
	if err := validateInput(input); err != nil {
		s.metrics.RecordTicketCreation(apperrors.CodeValidation)
		return 0, err
	}

	reportedAt := domain.FormatReportedAt(s.now())

	ticket, err := s.createTicket(ctx, input, reportedAt)
	if err != nil {
		cause := apperrors.ToDomainError(err)
		s.metrics.RecordTicketCreation(cause.Code)
		s.logger.Warn("ticket creation aborted",
			zap.String("region", input.RegionName),
			zap.String("cause", cause.Code),
			zap.Error(err))
		return 0, apperrors.NewTicketCreationFailed(err)
	}

	s.metrics.RecordTicketCreation("committed")
	s.logger.Info("ticket created",
		zap.Int64("ticket_id", ticket.ticket.ID),
		zap.Int64("region_id", ticket.region.ID),
		zap.String("category", ticket.ticket.Category))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ticket.ID,
		Payload: events.TicketCreatedPayload{
			RegionID:   ticket.region.ID,
			RegionName: ticket.region.Name,
			Category:   ticket.ticket.Category,
			Priority:   ticket.ticket.Priority,
			Title:      ticket.ticket.Title,
			ImageURL:   ticket.ticket.ImageURL,
		},
	})
	return ticket.ticket.ID, nil
}

// ListTickets returns every ticket flattened with its region, assignment and
// details, in ticket id order. No tickets yields an empty slice.
func (s *TicketService) ListTickets(ctx context.Context) ([]domain.TicketRecord, error) {
	records, err := s.store.Repositories().Tickets.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

type createdTicket struct {
	ticket *domain.Ticket
	region *domain.Region
}

func (s *TicketService) createTicket(ctx context.Context, input TicketCreateInput, reportedAt string) (*createdTicket, error) {
	reader := s.store.Repositories()

	existing, err := reader.Regions.FindByName(ctx, input.RegionName)
	if err != nil {
		return nil, err
	}

	known, err := reader.Tickets.ListDistinctCategories(ctx)
	if err != nil {
		return nil, err
	}

	category, err := s.classifier.Classify(ctx, input.Description, known)
	if err != nil {
		return nil, err
	}

	out := &createdTicket{}
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		region, err := s.resolveRegion(ctx, repos.Regions, existing, input)
		if err != nil {
			return err
		}

		ticket := &domain.Ticket{
			Title:         input.Title,
			Description:   input.Description,
			Status:        valueOr(input.Status, domain.DefaultTicketStatus),
			Priority:      valueOr(input.Priority, domain.DefaultTicketPriority),
			ReportedAt:    reportedAt,
			EstRepairTime: input.EstRepairTime,
			Category:      category,
			ImageURL:      input.ImageURL,
			RegionID:      region.ID,
		}
		if err := repos.Tickets.Insert(ctx, ticket); err != nil {
			return err
		}

		if err := repos.Assignments.Insert(ctx, &domain.TicketAssignment{
			TicketID:        ticket.ID,
			ReportedBy:      input.ReportedBy,
			AssignedTo:      input.AssignedTo,
			AssignmentNotes: input.AssignmentNotes,
		}); err != nil {
			return err
		}

		amount := domain.DefaultAmountOfReports
		if input.AmountOfReports != nil {
			amount = *input.AmountOfReports
		}
		if err := repos.Details.Insert(ctx, &domain.TicketDetails{
			TicketID:        ticket.ID,
			Address:         input.Address,
			AmountOfReports: amount,
			InternalNotes:   input.InternalNotes,
		}); err != nil {
			return err
		}

		out.ticket = ticket
		out.region = region
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// resolveRegion returns the region found before classification, or creates it. Regions
// are never removed, so a found region stays valid. When a concurrent request
// creates the same region first, the unique violation is absorbed and the
// winner's row is used.
func (s *TicketService) resolveRegion(ctx context.Context, regions repository.RegionRepository, found *domain.Region, input TicketCreateInput) (*domain.Region, error) {
	if found != nil {
		return found, nil
	}

	region := &domain.Region{
		Name:    input.RegionName,
		Manager: valueOr(input.RegionManager, domain.DefaultRegionManager),
	}
	err := regions.Create(ctx, region)
	if err == nil {
		return region, nil
	}
	if !errors.Is(err, apperrors.ErrConstraintViolation) {
		return nil, err
	}

	s.logger.Info("region created concurrently, re-resolving", zap.String("region", input.RegionName))
	winner, findErr := regions.FindByName(ctx, input.RegionName)
	if findErr != nil {
		return nil, findErr
	}
	if winner == nil {
		return nil, err
	}
	return winner, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("ticket event not delivered",
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

// valueOr returns the trimmed value, or fallback when it is nil or blank.
func valueOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	if trimmed := strings.TrimSpace(*v); trimmed != "" {
		return trimmed
	}
	return fallback
}
