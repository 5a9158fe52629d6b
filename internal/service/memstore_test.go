package service

import (
	"context"
	"sort"
	"sync"

	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/repository"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util/errorutil"
)

// memStore is an in-memory repository.Store. Transactions are serialized; their
// writes are staged and become visible to other readers only on commit. Like a
// unique index, region creation also checks rows committed after the transaction began.
type memStore struct {
	mu        sync.Mutex
	committed memState
	seq       int64
	begun     int
	finds     int
	failures  map[string]error

	// beforeRegionCreate runs once per region insert, before uniqueness is checked.
	beforeRegionCreate func(name string)

	txMu sync.Mutex
}

type memState struct {
	regions     []domain.Region
	tickets     []domain.Ticket
	assignments []domain.TicketAssignment
	details     []domain.TicketDetails
}

func newMemStore() *memStore {
	return &memStore{failures: map[string]error{}}
}

func (s *memStore) Repositories() repository.Repositories {
	return (&memView{store: s}).repos()
}

func (s *memStore) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	s.begun++
	s.mu.Unlock()
	if err := s.fail("begin"); err != nil {
		return err
	}

	view := &memView{store: s, staged: &memState{}}
	if err := fn(view.repos()); err != nil {
		return err
	}
	if err := s.fail("commit"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed.regions = append(s.committed.regions, view.staged.regions...)
	s.committed.tickets = append(s.committed.tickets, view.staged.tickets...)
	s.committed.assignments = append(s.committed.assignments, view.staged.assignments...)
	s.committed.details = append(s.committed.details, view.staged.details...)
	return nil
}

// commitRegion writes a region as if another request had committed it.
func (s *memStore) commitRegion(name, manager string) domain.Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	r := domain.Region{ID: s.seq, Name: name, Manager: manager}
	s.committed.regions = append(s.committed.regions, r)
	return r
}

// commitTicket seeds a committed ticket with the given category.
func (s *memStore) commitTicket(regionID int64, title, category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.committed.tickets = append(s.committed.tickets, domain.Ticket{
		ID: s.seq, Title: title, Category: category, RegionID: regionID,
		Status: domain.DefaultTicketStatus, Priority: domain.DefaultTicketPriority,
	})
}

func (s *memStore) snapshot() memState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memState{
		regions:     append([]domain.Region(nil), s.committed.regions...),
		tickets:     append([]domain.Ticket(nil), s.committed.tickets...),
		assignments: append([]domain.TicketAssignment(nil), s.committed.assignments...),
		details:     append([]domain.TicketDetails(nil), s.committed.details...),
	}
}

func (s *memStore) transactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begun
}

func (s *memStore) regionLookups() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finds
}

func (s *memStore) failOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *memStore) fail(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[op]
}

func (s *memStore) nextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// memView binds repositories either to committed state (staged == nil, writes
// auto-commit) or to one transaction's staged writes.
type memView struct {
	store  *memStore
	staged *memState
}

func (v *memView) repos() repository.Repositories {
	return repository.Repositories{
		Regions:     memRegions{v},
		Tickets:     memTickets{v},
		Assignments: memAssignments{v},
		Details:     memDetails{v},
	}
}

// visible returns committed rows plus this view's staged rows.
func (v *memView) visible() memState {
	out := v.store.snapshot()
	if v.staged != nil {
		out.regions = append(out.regions, v.staged.regions...)
		out.tickets = append(out.tickets, v.staged.tickets...)
		out.assignments = append(out.assignments, v.staged.assignments...)
		out.details = append(out.details, v.staged.details...)
	}
	return out
}

func (v *memView) target() *memState {
	if v.staged != nil {
		return v.staged
	}
	return &v.store.committed
}

type memRegions struct{ v *memView }

func (r memRegions) FindByName(_ context.Context, name string) (*domain.Region, error) {
	r.v.store.mu.Lock()
	r.v.store.finds++
	r.v.store.mu.Unlock()
	if err := r.v.store.fail("regions.find"); err != nil {
		return nil, err
	}
	for _, region := range r.v.visible().regions {
		if region.Name == name {
			found := region
			return &found, nil
		}
	}
	return nil, nil
}

func (r memRegions) Create(_ context.Context, region *domain.Region) error {
	if hook := r.v.store.beforeRegionCreate; hook != nil {
		hook(region.Name)
	}
	if err := r.v.store.fail("regions.create"); err != nil {
		return err
	}
	for _, existing := range r.v.visible().regions {
		if existing.Name == region.Name {
			return apperrors.NewConstraintViolation("create region", "regions_region_name_key", nil)
		}
	}
	region.ID = r.v.store.nextID()
	r.v.store.mu.Lock()
	defer r.v.store.mu.Unlock()
	t := r.v.target()
	t.regions = append(t.regions, *region)
	return nil
}

type memTickets struct{ v *memView }

func (r memTickets) Insert(_ context.Context, ticket *domain.Ticket) error {
	if err := r.v.store.fail("tickets.insert"); err != nil {
		return err
	}
	ticket.ID = r.v.store.nextID()
	r.v.store.mu.Lock()
	defer r.v.store.mu.Unlock()
	t := r.v.target()
	t.tickets = append(t.tickets, *ticket)
	return nil
}

func (r memTickets) ListDistinctCategories(_ context.Context) ([]string, error) {
	if err := r.v.store.fail("tickets.categories"); err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	out := []string{}
	for _, t := range r.v.visible().tickets {
		if _, ok := seen[t.Category]; ok || t.Category == "" {
			continue
		}
		seen[t.Category] = struct{}{}
		out = append(out, t.Category)
	}
	sort.Strings(out)
	return out, nil
}

func (r memTickets) ListAll(_ context.Context) ([]domain.TicketRecord, error) {
	if err := r.v.store.fail("tickets.list"); err != nil {
		return nil, err
	}
	state := r.v.visible()
	tickets := append([]domain.Ticket(nil), state.tickets...)
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].ID < tickets[j].ID })

	out := make([]domain.TicketRecord, 0, len(tickets))
	for _, t := range tickets {
		rec := domain.TicketRecord{
			TicketID:        t.ID,
			Title:           t.Title,
			Description:     t.Description,
			Status:          t.Status,
			Priority:        t.Priority,
			ReportedAt:      t.ReportedAt,
			EstRepairTime:   t.EstRepairTime,
			Category:        t.Category,
			ImageURL:        t.ImageURL,
			RegionID:        t.RegionID,
			AmountOfReports: domain.DefaultAmountOfReports,
		}
		for _, region := range state.regions {
			if region.ID == t.RegionID {
				rec.RegionName = region.Name
				rec.RegionManager = region.Manager
			}
		}
		for _, a := range state.assignments {
			if a.TicketID == t.ID {
				rec.ReportedBy, rec.AssignedTo, rec.AssignmentNotes = a.ReportedBy, a.AssignedTo, a.AssignmentNotes
			}
		}
		for _, d := range state.details {
			if d.TicketID == t.ID {
				rec.Address, rec.AmountOfReports, rec.InternalNotes = d.Address, d.AmountOfReports, d.InternalNotes
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

type memAssignments struct{ v *memView }

func (r memAssignments) Insert(_ context.Context, a *domain.TicketAssignment) error {
	if err := r.v.store.fail("assignments.insert"); err != nil {
		return err
	}
	for _, existing := range r.v.visible().assignments {
		if existing.TicketID == a.TicketID {
			return apperrors.NewConstraintViolation("insert ticket assignment", "ticket_assignments_ticket_id_key", nil)
		}
	}
	a.ID = r.v.store.nextID()
	r.v.store.mu.Lock()
	defer r.v.store.mu.Unlock()
	t := r.v.target()
	t.assignments = append(t.assignments, *a)
	return nil
}

type memDetails struct{ v *memView }

func (r memDetails) Insert(_ context.Context, d *domain.TicketDetails) error {
	if err := r.v.store.fail("details.insert"); err != nil {
		return err
	}
	for _, existing := range r.v.visible().details {
		if existing.TicketID == d.TicketID {
			return apperrors.NewConstraintViolation("insert ticket details", "ticket_details_ticket_id_key", nil)
		}
	}
	d.ID = r.v.store.nextID()
	r.v.store.mu.Lock()
	defer r.v.store.mu.Unlock()
	t := r.v.target()
	t.details = append(t.details, *d)
	return nil
}
