package service

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/healthtech/clinic-scheduler/internal/core/domain"
	"github.com/healthtech/clinic-scheduler/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub appointment repository
// ---------------------------------------------------------------------------

// stubAppointmentRepo mirrors the Postgres repository, including the partial
// unique index on active slots.
type stubAppointmentRepo struct {
	users      *stubUserRepo
	byID       map[int64]*domain.Appointment
	nextID     int64
	events     []*domain.AppointmentEvent
	blindCheck bool // FindActiveInSlot never sees anything; only the store guard remains
	lastFilter ports.ListAppointmentsFilter
}

func newStubAppointmentRepo(users *stubUserRepo) *stubAppointmentRepo {
	return &stubAppointmentRepo{users: users, byID: make(map[int64]*domain.Appointment)}
}

func (r *stubAppointmentRepo) activeIn(slot domain.SlotKey, excludeID int64) *domain.Appointment {
	for _, a := range r.byID {
		if a.ID == excludeID || !a.Status.IsActive() {
			continue
		}
		if a.ProviderID == slot.ProviderID && a.Date.Equal(slot.Date) && a.Time == slot.Time {
			clone := *a
			return &clone
		}
	}
	return nil
}

func (r *stubAppointmentRepo) FindActiveInSlot(_ context.Context, slot domain.SlotKey, excludeID int64) (*domain.Appointment, error) {
	if r.blindCheck {
		return nil, nil
	}
	return r.activeIn(slot, excludeID), nil
}

func (r *stubAppointmentRepo) ActiveTimes(_ context.Context, providerID int64, date time.Time) ([]string, error) {
	var out []string
	for _, a := range r.byID {
		if a.ProviderID == providerID && a.Date.Equal(date) && a.Status.IsActive() {
			out = append(out, a.Time)
		}
	}
	return out, nil
}

func (r *stubAppointmentRepo) detail(a *domain.Appointment) *domain.AppointmentDetail {
	d := &domain.AppointmentDetail{Appointment: *a}
	if u, ok := r.users.byID[a.PatientID]; ok {
		d.PatientName = u.Name
	}
	if u, ok := r.users.byID[a.ProviderID]; ok {
		d.ProviderName = u.Name
	}
	return d
}

func (r *stubAppointmentRepo) FindByID(_ context.Context, id int64) (*domain.AppointmentDetail, error) {
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAppointmentNotFound
	}
	return r.detail(a), nil
}

func (r *stubAppointmentRepo) List(_ context.Context, f ports.ListAppointmentsFilter) ([]*domain.AppointmentDetail, error) {
	r.lastFilter = f
	var out []*domain.AppointmentDetail
	for _, a := range r.byID {
		if f.PatientID != 0 && a.PatientID != f.PatientID {
			continue
		}
		if f.ProviderID != 0 && a.ProviderID != f.ProviderID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if !f.Date.IsZero() && !a.Date.Equal(f.Date) {
			continue
		}
		out = append(out, r.detail(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubAppointmentRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.byID)), nil
}

func (r *stubAppointmentRepo) Create(_ context.Context, a *domain.Appointment, evt *domain.AppointmentEvent) error {
	if a.Status.IsActive() && r.activeIn(a.Slot(), 0) != nil {
		return &domain.SlotConflictError{}
	}
	r.nextID++
	a.ID = r.nextID
	clone := *a
	r.byID[a.ID] = &clone
	evt.AppointmentID = a.ID
	r.events = append(r.events, evt)
	return nil
}

func (r *stubAppointmentRepo) Update(_ context.Context, a *domain.Appointment, evt *domain.AppointmentEvent) error {
	if _, ok := r.byID[a.ID]; !ok {
		return domain.ErrAppointmentNotFound
	}
	if a.Status.IsActive() && r.activeIn(a.Slot(), a.ID) != nil {
		return &domain.SlotConflictError{}
	}
	clone := *a
	r.byID[a.ID] = &clone
	r.events = append(r.events, evt)
	return nil
}

func (r *stubAppointmentRepo) Delete(_ context.Context, id int64, evt *domain.AppointmentEvent) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrAppointmentNotFound
	}
	delete(r.byID, id)
	r.events = append(r.events, evt)
	return nil
}

type stubLocker struct {
	busy  bool
	calls []domain.SlotKey
}

func (l *stubLocker) WithSlotLock(ctx context.Context, key domain.SlotKey, fn func(ctx context.Context) error) error {
	l.calls = append(l.calls, key)
	if l.busy {
		return domain.ErrSlotBusy
	}
	return fn(ctx)
}

type stubAuditPublisher struct {
	events []domain.AppointmentEvent
}

func (p *stubAuditPublisher) Enqueue(evt domain.AppointmentEvent) {
	p.events = append(p.events, evt)
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

var fixedNow = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	users    *stubUserRepo
	repo     *stubAppointmentRepo
	locker   *stubLocker
	audit    *stubAuditPublisher
	svc      *AppointmentService
	patient  domain.Actor
	patient2 domain.Actor
	provider domain.Actor
	other    domain.Actor // a second provider
	admin    domain.Actor
}

func newFixture() *fixture {
	users := newStubUserRepo()
	repo := newStubAppointmentRepo(users)
	f := &fixture{
		users:  users,
		repo:   repo,
		locker: &stubLocker{},
		audit:  &stubAuditPublisher{},
	}
	f.patient = domain.Actor{UserID: users.seed("john", domain.RolePatient), Role: domain.RolePatient}
	f.provider = domain.Actor{UserID: users.seed("sarah", domain.RoleProvider), Role: domain.RoleProvider}
	f.other = domain.Actor{UserID: users.seed("mike", domain.RoleProvider), Role: domain.RoleProvider}
	f.patient2 = domain.Actor{UserID: users.seed("jane", domain.RolePatient), Role: domain.RolePatient}
	f.admin = domain.Actor{UserID: users.seed("admin", domain.RoleAdmin), Role: domain.RoleAdmin}

	f.svc = NewAppointmentService(repo, users, zerolog.Nop(), AppointmentOptions{
		Locker: f.locker,
		Audit:  f.audit,
		Now:    func() time.Time { return fixedNow },
	})
	return f
}

func (f *fixture) book(t *testing.T, actor domain.Actor, patientID, providerID int64, date, slot string) *domain.AppointmentDetail {
	t.Helper()
	appt, err := f.svc.CreateAppointment(context.Background(), actor, ports.CreateAppointmentInput{
		PatientID: patientID, ProviderID: providerID, Date: date, Time: slot, Reason: "Checkup",
	})
	if err != nil {
		t.Fatalf("book %s %s: %v", date, slot, err)
	}
	return appt
}

func strPtr(s string) *string { return &s }

// ---------------------------------------------------------------------------
// CreateAppointment tests
// ---------------------------------------------------------------------------

func TestAppointmentService_Create_Success(t *testing.T) {
	f := newFixture()

	appt := f.book(t, f.patient, f.patient.UserID, f.provider.UserID, "2026-01-15", "10:00")

	if appt.ID == 0 || appt.Status != domain.StatusBooked {
		t.Fatalf("unexpected appointment: %+v", appt)
	}
	if appt.PatientName != "john" || appt.ProviderName != "sarah" {
		t.Fatalf("expected party names, got %q / %q", appt.PatientName, appt.ProviderName)
	}
	if len(f.locker.calls) != 1 || f.locker.calls[0] != appt.Slot() {
		t.Fatalf("expected the slot lock to be taken once, got %+v", f.locker.calls)
	}
	if len(f.audit.events) != 1 || f.audit.events[0].Type != domain.EventAppointmentCreated || f.audit.events[0].AppointmentID != appt.ID {
		t.Fatalf("expected created event for %d, got %+v", appt.ID, f.audit.events)
	}
}

func TestAppointmentService_Create_SameSlotConflicts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.book(t, f.patient, f.patient.UserID, f.provider.UserID, "2026-01-15", "10:00")

	// A different patient, a different reason: still the same provider slot.
	_, err := f.svc.CreateAppointment(ctx, f.patient2, ports.CreateAppointmentInput{
		PatientID: f.patient2.UserID, ProviderID: f.provider.UserID, Date: "2026-01-15", Time: "10:00", Reason: "Other",
	})
	if !errors.Is(err, domain.ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
	var ce *domain.SlotConflictError
	if !errors.As(err, &ce) || ce.Claim == nil || ce.Claim.Kind != domain.ClaimBooking {
		t.Fatalf("expected booking claim, got %v", err)
	}

	// The provider cannot block over it either.
	_, err = f.svc.CreateAppointment(ctx, f.provider, ports.CreateAppointmentInput{
		PatientID: f.provider.UserID, ProviderID: f.provider.UserID, Date: "2026-01-15", Time: "10:00", Reason: "Lunch", Status: "blocked",
	})
	if !errors.Is(err, domain.ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable for block, got %v", err)
	}

	// Another provider's identical slot is unaffected.
	f.book(t, f.patient, f.patient.UserID, f.other.UserID, "2026-01-15", "10:00")
}

func TestAppointmentService_Create_ProviderScenario(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.book(t, f.patient, f.patient.UserID, f.provider.UserID, "2026-01-15", "10:00")

	block := ports.CreateAppointmentInput{
		PatientID: f.provider.UserID, ProviderID: f.provider.UserID, Date: "2026-01-15", Time: "10:00", Reason: "Blocked", Status: "blocked",
	}
	if _, err := f.svc.CreateAppointment(ctx, f.provider, block); !errors.Is(err, domain.ErrSlotUnavailable) {
		t.Fatalf("expected conflict on 10:00, got %v", err)
	}

	block.Time = "11:00"
	hold, err := f.svc.CreateAppointment(ctx, f.provider, block)
	if err != nil {
		t.Fatalf("expected 11:00 block to succeed, got %v", err)
	}
	if hold.Status != domain.StatusBlocked || hold.PatientID != hold.ProviderID {
		t.Fatalf("unexpected hold: %+v", hold)
	}

	// Booking into the held slot reports the hold.
	_, err = f.svc.CreateAppointment(ctx, f.patient, ports.CreateAppointmentInput{
		PatientID: f.patient.UserID, ProviderID: f.provider.UserID, Date: "2026-01-15", Time: "11:00", Reason: "Checkup",
	})
	var ce *domain.SlotConflictError
	if !errors.As(err, &ce) || ce.Claim == nil || ce.Claim.Kind != domain.ClaimHold {
		t.Fatalf("expected hold claim, got %v", err)
	}
}

func TestAppointmentService_Create_PastDate(t *testing.T) {
	f := newFixture()

	for _, date := range []string{"2025-12-31", "2020-01-01"} {
		_, err := f.svc.CreateAppointment(context.Background(), f.patient, ports.CreateAppointmentInput{
			PatientID: f.patient.UserID, ProviderID: f.provider.UserID, Date: date, Time: "10:00", Reason: "Checkup",
		})
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", date, err)
		}
	}

	// Today is still bookable.
	f.book(t, f.patient, f.patient.UserID, f.provider.UserID, "2026-01-01", "16:00")
}

func TestAppointmentService_Create_MissingFields(t *testing.T) {
	f := newFixture()
	base := ports.CreateAppointmentInput{
		PatientID: f.patient.UserID, ProviderID: f.provider.UserID, Date: "2026-01-15", Time: "10:00", Reason: "Checkup",
	}

	mutations := map[string]func(*ports.CreateAppointmentInput){
		"patient":  func(in *ports.CreateAppointmentInput) { in.PatientID = 0 },
		"provider": func(in *ports.CreateAppointmentInput) { in.ProviderID = 0 },
		"date":     func(in *ports.CreateAppointmentInput) { in.Date = "" },
		"time":     func(in *ports.CreateAppointmentInput) { in.Time = "  " },
		"reason":   func(in *ports.CreateAppointmentInput) { in.Reason = "" },
		"status":   func(in *ports.CreateAppointmentInput) { in.Status = "completed" },
		"bad date": func(in *ports.CreateAppointmentInput) { in.Date = "next tuesday" },
	}
	for name, mutate := range mutations {
		in := base
		mutate(&in)
		if _, err := f.svc.CreateAppointment(context.Background(), f.patient, in); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
	if len(f.repo.byID) != 0 {
		t.Fatalf("nothing should have been stored")
	}
}

func TestAppointmentService_Create_References(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Provider id pointing at a patient.
	_, err := f.svc.CreateAppointment(ctx, f.admin, ports.CreateAppointmentInput{
		PatientID: f.patient.UserID, ProviderID: f.patient2.UserID, Date: "2026-01-15", Time: "10:00", Reason: "x",
	})
	if !errors.Is(err, domain.ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}

	// Unknown patient.
	_, err = f.svc.CreateAppointment(ctx, f.admin, ports.CreateAppointmentInput{
		PatientID: 999, ProviderID: f.provider.UserID, Date: "2026-01-15", Time: "10:00", Reason: "x",
	})
	if !errors.Is(err, domain.ErrPatientNotFound) || !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}

	// A hold must reference the provider on both sides.
	_, err = f.svc.CreateAppointment(ctx, f.provider, ports.CreateAppointmentInput{
		PatientID: f.patient.UserID, ProviderID: f.provider.UserID, Date: "2026-01-15", Time: "10:00", Reason: "x", Status: "blocked",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for mismatched hold, got %v", err)
	}
}

func TestAppointmentService_Create_Access(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cases := []struct {
		name  string
		actor domain.Actor
		in    ports.CreateAppointmentInput
	}{
		{"patient for another patient", f.patient, ports.CreateAppointmentInput{PatientID: f.patient2.UserID, ProviderID: f.provider.UserID}},
		{"patient blocking", f.patient, ports.CreateAppointmentInput{PatientID: f.patient.UserID, ProviderID: f.patient.UserID, Status: "blocked"}},
		{"provider on another schedule", f.provider, ports.CreateAppointmentInput{PatientID: f.patient.UserID, ProviderID: f.other.UserID}},
		{"unknown role", domain.Actor{UserID: f.patient.UserID, Role: "guest"}, ports.CreateAppointmentInput{PatientID: f.patient.UserID, ProviderID: f.provider.UserID}},
	}
	for _, tc := range cases {
		in := tc.in
		in.Date, in.Time, in.Reason = "2026-01-15", "10:00", "x"
		if _, err := f.svc.CreateAppointment(ctx, tc.actor, in); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("%s: expected ErrForbidden, got %v", tc.name, err)
		}
	}

	// Providers may book their own patients; admins may book anyone.
	f.book(t, f.provider, f.patient.UserID, f.provider.UserID, "2026-01-15", "09:00")
	f.book(t, f.admin, f.patient2.UserID, f.other.UserID, "2026-01-15", "09:00")
}

func TestAppointmentService_Create_StoreGuard(t *testing.T) {
	f := newFixture()
	f.book(t, f.patient, f.patient.UserID, f.provider.UserID, "2026-01-15", "10:00")

	// Simulate a racing writer that passed the advisory check.
	f.repo.blindCheck = true
	_, err := f.svc.CreateAppointment(context.Background(), f.patient2, ports.CreateAppointmentInput{
		PatientID: f.patient2.UserID, ProviderID: f.provider.UserID, Date: "2026-01-15", Time: "10:00", Reason: "x",
	})
	if !errors.Is(err, domain.ErrSlotUnavailable) {
		t.Fatalf("expected store-level conflict, got %v", err)
	}
	if len(f.repo.byID) != 1 {
		t.Fatalf("expected a single stored appointment, got %d", len(f.repo.byID))
	}
}

func TestAppointmentService_Create_LockBusy(t *testing.T) {
	f := newFixture()
	f.locker.busy = true

	_, err := f.svc.CreateAppointment(context.Background(), f.patient, ports.CreateAppointmentInput{
		PatientID: f.patient.UserID, ProviderID: f.provider.UserID, Date: "2026-01-15", Time: "10:00", Reason: "x",
	})
	if !errors.Is(err, domain.ErrSlotUnavailable) || !errors.Is(err, domain.ErrSlotBusy) {
		t.Fatalf("expected busy slot error, got %v", err)
	}
	if len(f.audit.events) != 0 {
		t.Fatalf("no event should be published on failure")
	}
}

func TestAppointmentService_Create_WithoutLocker(t *testing.T) {
	f := newFixture()
	svc := NewAppointmentService(f.repo, f.users, zerolog.Nop(), AppointmentOptions{Now: func() time.Time { return fixedNow }})

	if _, err := svc.CreateAppointment(context.Background(), f.patient, ports.CreateAppointmentInput{
		PatientID: f.patient.UserID, ProviderID: f.provider.UserID, Date: "2026-01-15", Time: "10:00", Reason: "x",
	}); err != nil {
		t.Fatalf("expected create without locker or audit to succeed, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// UpdateAppointment tests
// ---------------------------------------------------------------------------

func TestAppointmentService_Update_CancelFreesSlot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t, f.patient, f.patient.UserID, f.provider.UserID, "2026-01-15", "10:00")

	updated, err := f.svc.UpdateAppointment(ctx, f.patient, a.ID, ports.UpdateAppointmentInput{Status: strPtr("cancelled")})
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if updated.Status != domain.StatusCancelled || updated.PatientName != "john" {
		t.Fatalf("unexpected updated appointment: %+v", updated)
	}

	f.book(t, f.patient2, f.patient2.UserID, f.provider.UserID, "2026-01-15", "10:00")

	last := f.audit.events[len(f.audit.events)-2]
	if last.Type != domain.EventAppointmentStatusChanged || last.PreviousStatus != domain.StatusBooked {
		t.Fatalf("expected status_changed event from booked, got %+v", last)
	}
}

func TestAppointmentService_Update_RescheduleOntoTakenSlot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t, f.patient, f.patient.UserID, f.provider.UserID, "2026-01-15", "10:00")
	f.book(t, f.patient2, f.patient2.UserID, f.provider.UserID, "2026-01-16", "11:00")

	_, err := f.svc.UpdateAppointment(ctx, f.patient, a.ID, ports.UpdateAppointmentInput{
		Date: strPtr("2026-01-16"), Time: strPtr("11:00"),
	})
	if !errors.Is(err, domain.ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}

	stored := f.repo.byID[a.ID]
	if domain.FormatDate(stored.Date) != "2026-01-15" || stored.Time != "10:00" {
		t.Fatalf("failed reschedule must leave the appointment unchanged, got %s %s", domain.FormatDate(stored.Date), stored.Time)
	}
}

func TestAppointmentService_Update_RescheduleToOwnSlot(t *testing.T) {
	f := newFixture()
	a := f.book(t, f.patient, f.patient.UserID, f.provider.UserID, "2026-01-15", "10:00")

	updated, err := f.svc.UpdateAppointment(context.Background(), f.patient, a.ID, ports.UpdateAppointmentInput{
		Date: strPtr("2026-01-15"), Time: strPtr("10:00"), Reason: strPtr("Follow-up"),
	})
	if err != nil {
		t.Fatalf("expected self-reschedule to succeed, got %v", err)
	}
	if updated.Reason != "Follow-up" {
		t.Fatalf("expected reason update, got %q", updated.Reason)
	}
}

func TestAppointmentService_Update_PartialReschedule(t *testing.T) {
	f := newFixture()
	a := f.book(t, f.patient, f.patient.UserID, f.provider.UserID, "2026-01-15", "10:00")

	updated, err := f.svc.UpdateAppointment(context.Background(), f.provider, a.ID, ports.UpdateAppointmentInput{Time: strPtr("14:00")})
	if err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}
	if domain.FormatDate(updated.Date) != "2026-01-15" || updated.Time != "14:00" {
		t.Fatalf("expected date kept and time moved, got %s %s", domain.FormatDate(updated.Date), updated.Time)
	}
	evt := f.audit.events[len(f.audit.events)-1]
	if evt.Type != domain.EventAppointmentRescheduled || evt.PreviousTime != "10:00" {
		t.Fatalf("expected rescheduled event from 10:00, got %+v", evt)
	}

	// The old slot is free again.
	f.book(t, f.patient2, f.patient2.UserID, f.provider.UserID, "2026-01-15", "10:00")
}

func TestAppointmentService_Update_PastDate(t *testing.T) {
	f := newFixture()
	a := f.book(t, f.patient, f.patient.UserID, f.provider.UserID, "2026-01-15", "10:00")

	_, err := f.svc.UpdateAppointment(context.Background(), f.patient, a.ID, ports.UpdateAppointmentInput{Date: strPtr("2025-06-01")})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAppointmentService_Update_Transitions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t, f.patient, f.patient.UserID, f.provider.UserID, "2026-01-15", "10:00")

	if _, err := f.svc.UpdateAppointment(ctx, f.provider, a.ID, ports.UpdateAppointmentInput{Status: strPtr("completed")}); err != nil {
		t.Fatalf("booked -> completed should succeed, got %v", err)
	}

	// Terminal: the provider cannot revive it or move it.
	if _, err := f.svc.UpdateAppointment(ctx, f.provider, a.ID, ports.UpdateAppointmentInput{Status: strPtr("booked")}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := f.svc.UpdateAppointment(ctx, f.provider, a.ID, ports.UpdateAppointmentInput{Time: strPtr("11:00")}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for rescheduling a completed appointment, got %v", err)
	}

	// A patient cannot turn their booking into a hold.
	b := f.book(t, f.patient, f.patient.UserID, f.provider.UserID, "2026-01-15", "13:00")
	if _, err := f.svc.UpdateAppointment(ctx, f.patient, b.ID, ports.UpdateAppointmentInput{Status: strPtr("blocked")}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	if _, err := f.svc.UpdateAppointment(ctx, f.patient, b.ID, ports.UpdateAppointmentInput{Status: strPtr("bogus")}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAppointmentService_Update_AdminReactivationIsChecked(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t, f.patient, f.patient.UserID, f.provider.UserID, "2026-01-15", "10:00")
	if _, err := f.svc.UpdateAppointment(ctx, f.patient, a.ID, ports.UpdateAppointmentInput{Status: strPtr("cancelled")}); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	f.book(t, f.patient2, f.patient2.UserID, f.provider.UserID, "2026-01-15", "10:00")

	_, err := f.svc.UpdateAppointment(ctx, f.admin, a.ID, ports.UpdateAppointmentInput{Status: strPtr("booked")})
	if !errors.Is(err, domain.ErrSlotUnavailable) {
		t.Fatalf("expected reactivation onto a taken slot to conflict, got %v", err)
	}

	// Moving it elsewhere at the same time works for an admin.
	updated, err := f.svc.UpdateAppointment(ctx, f.admin, a.ID, ports.UpdateAppointmentInput{Status: strPtr("booked"), Time: strPtr("15:00")})
	if err != nil {
		t.Fatalf("admin override failed: %v", err)
	}
	if updated.Status != domain.StatusBooked || updated.Time != "15:00" {
		t.Fatalf("unexpected appointment after override: %+v", updated)
	}
}

func TestAppointmentService_Update_AdminCannotBlockPatientBooking(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t, f.patient, f.patient.UserID, f.provider.UserID, "2026-01-15", "10:00")

	_, err := f.svc.UpdateAppointment(ctx, f.admin, a.ID, ports.UpdateAppointmentInput{Status: strPtr("blocked")})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for a hold naming a patient, got %v", err)
	}
	got, err := f.svc.GetAppointment(ctx, f.admin, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusBooked {
		t.Fatalf("expected the booking to stay booked, got %s", got.Status)
	}

	// A provider's own hold can be cancelled and restored by an admin.
	hold, err := f.svc.CreateAppointment(ctx, f.provider, ports.CreateAppointmentInput{
		PatientID: f.provider.UserID, ProviderID: f.provider.UserID, Date: "2026-01-15", Time: "11:00", Status: "blocked",
	})
	if err != nil {
		t.Fatalf("create hold: %v", err)
	}
	if _, err := f.svc.UpdateAppointment(ctx, f.provider, hold.ID, ports.UpdateAppointmentInput{Status: strPtr("cancelled")}); err != nil {
		t.Fatalf("cancel hold: %v", err)
	}
	restored, err := f.svc.UpdateAppointment(ctx, f.admin, hold.ID, ports.UpdateAppointmentInput{Status: strPtr("blocked")})
	if err != nil {
		t.Fatalf("restore hold: %v", err)
	}
	if restored.Status != domain.StatusBlocked || restored.PatientID != restored.ProviderID {
		t.Fatalf("unexpected hold after restore: %+v", restored)
	}
}

func TestAppointmentService_Update_AccessAndNotFound(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t, f.patient, f.patient.UserID, f.provider.UserID, "2026-01-15", "10:00")

	if _, err := f.svc.UpdateAppointment(ctx, f.patient2, a.ID, ports.UpdateAppointmentInput{Reason: strPtr("x")}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for another patient, got %v", err)
	}
	if _, err := f.svc.UpdateAppointment(ctx, f.other, a.ID, ports.UpdateAppointmentInput{Reason: strPtr("x")}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for another provider, got %v", err)
	}
	if _, err := f.svc.UpdateAppointment(ctx, f.patient, 999, ports.UpdateAppointmentInput{}); !errors.Is(err, domain.ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestAppointmentService_Update_NoChanges(t *testing.T) {
	f := newFixture()
	a := f.book(t, f.patient, f.patient.UserID, f.provider.UserID, "2026-01-15", "10:00")
	before := len(f.repo.events)

	if _, err := f.svc.UpdateAppointment(context.Background(), f.patient, a.ID, ports.UpdateAppointmentInput{}); err != nil {
		t.Fatalf("empty update failed: %v", err)
	}
	if len(f.repo.events) != before {
		t.Fatalf("empty update must not write")
	}
}

// ---------------------------------------------------------------------------
// Delete / Get / List tests
// ---------------------------------------------------------------------------

func TestAppointmentService_Delete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t, f.patient, f.patient.UserID, f.provider.UserID, "2026-01-15", "10:00")

	if err := f.svc.DeleteAppointment(ctx, f.patient2, a.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	// Completed appointments can still be removed.
	if _, err := f.svc.UpdateAppointment(ctx, f.provider, a.ID, ports.UpdateAppointmentInput{Status: strPtr("completed")}); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if err := f.svc.DeleteAppointment(ctx, f.provider, a.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok := f.repo.byID[a.ID]; ok {
		t.Fatalf("appointment still stored")
	}
	if err := f.svc.DeleteAppointment(ctx, f.admin, a.ID); !errors.Is(err, domain.ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
	if evt := f.audit.events[len(f.audit.events)-1]; evt.Type != domain.EventAppointmentDeleted {
		t.Fatalf("expected deleted event, got %+v", evt)
	}
}

func TestAppointmentService_Get(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t, f.patient, f.patient.UserID, f.provider.UserID, "2026-01-15", "10:00")

	for _, actor := range []domain.Actor{f.patient, f.provider, f.admin} {
		if _, err := f.svc.GetAppointment(ctx, actor, a.ID); err != nil {
			t.Fatalf("%s should see the appointment, got %v", actor.Role, err)
		}
	}
	for _, actor := range []domain.Actor{f.patient2, f.other} {
		if _, err := f.svc.GetAppointment(ctx, actor, a.ID); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	}
}

func TestAppointmentService_List_Scoped(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.book(t, f.patient, f.patient.UserID, f.provider.UserID, "2026-01-15", "10:00")
	f.book(t, f.patient2, f.patient2.UserID, f.provider.UserID, "2026-01-15", "11:00")
	f.book(t, f.patient2, f.patient2.UserID, f.other.UserID, "2026-01-15", "11:00")

	items, err := f.svc.ListAppointments(ctx, f.patient, ports.ListAppointmentsInput{PatientID: f.patient2.UserID})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 1 || items[0].PatientID != f.patient.UserID {
		t.Fatalf("patient must only see their own appointments, got %+v", items)
	}

	items, _ = f.svc.ListAppointments(ctx, f.provider, ports.ListAppointmentsInput{})
	if len(items) != 2 {
		t.Fatalf("provider should see 2 appointments, got %d", len(items))
	}

	items, _ = f.svc.ListAppointments(ctx, f.admin, ports.ListAppointmentsInput{ProviderID: f.other.UserID})
	if len(items) != 1 || items[0].ProviderID != f.other.UserID {
		t.Fatalf("admin filter should pass through, got %+v", items)
	}

	items, _ = f.svc.ListAppointments(ctx, f.admin, ports.ListAppointmentsInput{Status: "cancelled"})
	if len(items) != 0 {
		t.Fatalf("expected no cancelled appointments, got %d", len(items))
	}

	if _, err := f.svc.ListAppointments(ctx, f.admin, ports.ListAppointmentsInput{Date: "someday"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for bad date, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Availability
// ---------------------------------------------------------------------------

func TestAppointmentService_ProviderAvailability(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.book(t, f.patient, f.patient.UserID, f.provider.UserID, "2026-01-15", "10:00")
	c := f.book(t, f.patient, f.patient.UserID, f.provider.UserID, "2026-01-15", "13:00")
	if _, err := f.svc.UpdateAppointment(ctx, f.patient, c.ID, ports.UpdateAppointmentInput{Status: strPtr("cancelled")}); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	slots, err := f.svc.ProviderAvailability(ctx, f.provider.UserID, "2026-01-15")
	if err != nil {
		t.Fatalf("availability failed: %v", err)
	}
	if len(slots) != len(DefaultSlotTimes) {
		t.Fatalf("expected %d slots, got %d", len(DefaultSlotTimes), len(slots))
	}
	for _, s := range slots {
		if want := s.Time != "10:00"; s.Available != want {
			t.Fatalf("slot %s: expected available=%v", s.Time, want)
		}
	}

	if _, err := f.svc.ProviderAvailability(ctx, f.patient.UserID, "2026-01-15"); !errors.Is(err, domain.ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
	if _, err := f.svc.ProviderAvailability(ctx, f.provider.UserID, "2025-01-15"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for past date, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Invariant: any sequence of operations leaves at most one active
// appointment per provider slot.
// ---------------------------------------------------------------------------

func TestAppointmentService_SlotInvariantHolds(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	actors := []domain.Actor{f.patient, f.patient2, f.provider, f.other, f.admin}
	patients := []int64{f.patient.UserID, f.patient2.UserID}
	providers := []int64{f.provider.UserID, f.other.UserID}
	dates := []string{"2026-01-15", "2026-01-16"}
	times := []string{"09:00", "10:00", "11:00"}
	statuses := []string{"booked", "blocked", "cancelled", "completed"}

	for i := 0; i < 500; i++ {
		actor := actors[rng.Intn(len(actors))]
		switch rng.Intn(3) {
		case 0:
			provider := providers[rng.Intn(len(providers))]
			in := ports.CreateAppointmentInput{
				PatientID:  patients[rng.Intn(len(patients))],
				ProviderID: provider,
				Date:       dates[rng.Intn(len(dates))],
				Time:       times[rng.Intn(len(times))],
				Reason:     "r",
			}
			if rng.Intn(4) == 0 {
				in.Status = "blocked"
				in.PatientID = provider
			}
			_, _ = f.svc.CreateAppointment(ctx, actor, in)
		case 1, 2:
			if f.repo.nextID == 0 {
				continue
			}
			id := rng.Int63n(f.repo.nextID) + 1
			in := ports.UpdateAppointmentInput{}
			if rng.Intn(2) == 0 {
				in.Time = strPtr(times[rng.Intn(len(times))])
			}
			if rng.Intn(2) == 0 {
				in.Date = strPtr(dates[rng.Intn(len(dates))])
			}
			if rng.Intn(2) == 0 {
				in.Status = strPtr(statuses[rng.Intn(len(statuses))])
			}
			_, _ = f.svc.UpdateAppointment(ctx, actor, id, in)
		}

		seen := make(map[domain.SlotKey]int64)
		for _, a := range f.repo.byID {
			if !a.Status.IsActive() {
				continue
			}
			if prev, dup := seen[a.Slot()]; dup {
				t.Fatalf("step %d: appointments %d and %d both hold slot %s", i, prev, a.ID, a.Slot())
			}
			seen[a.Slot()] = a.ID
		}
	}
}

// ---------------------------------------------------------------------------
// Access gate
// ---------------------------------------------------------------------------

func TestScopeListFilter(t *testing.T) {
	date := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	requested := ports.ListAppointmentsFilter{PatientID: 5, ProviderID: 6, Status: domain.StatusBooked, Date: date}

	cases := []struct {
		role                  domain.Role
		wantPatient, wantProv int64
	}{
		{domain.RolePatient, 1, 0},
		{domain.RoleProvider, 0, 1},
		{domain.RoleAdmin, 5, 6},
		{domain.Role("auditor"), 1, 1},
	}
	for _, tc := range cases {
		got := ScopeListFilter(domain.Actor{UserID: 1, Role: tc.role}, requested)
		if got.PatientID != tc.wantPatient || got.ProviderID != tc.wantProv {
			t.Fatalf("%s: expected patient=%d provider=%d, got %+v", tc.role, tc.wantPatient, tc.wantProv, got)
		}
		if got.Status != domain.StatusBooked || !got.Date.Equal(date) {
			t.Fatalf("%s: status and date filters must pass through, got %+v", tc.role, got)
		}
	}
}

func TestConflictChecker_HasConflict(t *testing.T) {
	f := newFixture()
	a := f.book(t, f.patient, f.patient.UserID, f.provider.UserID, "2026-01-15", "10:00")
	checker := NewConflictChecker(f.repo)
	ctx := context.Background()

	if ok, err := checker.HasConflict(ctx, f.provider.UserID, a.Date, "10:00", 0); err != nil || !ok {
		t.Fatalf("expected conflict, got %v (%v)", ok, err)
	}
	if ok, _ := checker.HasConflict(ctx, f.provider.UserID, a.Date, "10:00", a.ID); ok {
		t.Fatalf("appointment must not conflict with itself")
	}
	if ok, _ := checker.HasConflict(ctx, f.provider.UserID, a.Date, "11:00", 0); ok {
		t.Fatalf("expected free slot at 11:00")
	}
}
