package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthtech/clinic-scheduler/internal/api/metrics"
	"github.com/healthtech/clinic-scheduler/internal/core/domain"
	"github.com/healthtech/clinic-scheduler/internal/core/ports"
)

const maxTimeLabelLen = 16

// DefaultSlotTimes is the clinic's standard daily schedule.
var DefaultSlotTimes = []string{"09:00", "10:00", "11:00", "13:00", "14:00", "15:00", "16:00"}

// AppointmentOptions carries the optional collaborators of AppointmentService.
type AppointmentOptions struct {
	// Locker serialises slot writes across replicas. Nil disables locking;
	// the store constraint still holds.
	Locker ports.SlotLocker
	// Audit receives every successful change. Nil disables the audit trail.
	Audit     ports.AuditPublisher
	SlotTimes []string
	// Location decides what "today" means for the past-date rule. Defaults to UTC.
	Location *time.Location
	Now      func() time.Time
}

type AppointmentService struct {
	appointments ports.AppointmentRepository
	users        ports.UserRepository
	conflicts    *ConflictChecker
	locker       ports.SlotLocker
	audit        ports.AuditPublisher
	slotTimes    []string
	loc          *time.Location
	now          func() time.Time
	logger       zerolog.Logger
}

func NewAppointmentService(
	appointments ports.AppointmentRepository,
	users ports.UserRepository,
	logger zerolog.Logger,
	opts AppointmentOptions,
) *AppointmentService {
	if len(opts.SlotTimes) == 0 {
		opts.SlotTimes = DefaultSlotTimes
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &AppointmentService{
		appointments: appointments,
		users:        users,
		conflicts:    NewConflictChecker(appointments),
		locker:       opts.Locker,
		audit:        opts.Audit,
		slotTimes:    opts.SlotTimes,
		loc:          opts.Location,
		now:          opts.Now,
		logger:       logger,
	}
}

// CreateAppointment books a slot for a patient, or places a provider hold when
// status is "blocked". The slot must be free of other booked or blocked
// appointments for the same provider.
func (s *AppointmentService) CreateAppointment(ctx context.Context, actor domain.Actor, in ports.CreateAppointmentInput) (*domain.AppointmentDetail, error) {
	timeLabel := strings.TrimSpace(in.Time)
	reason := strings.TrimSpace(in.Reason)
	if in.PatientID == 0 || in.ProviderID == 0 || strings.TrimSpace(in.Date) == "" || timeLabel == "" || reason == "" {
		return nil, domain.Invalid("missing required fields")
	}
	if len(timeLabel) > maxTimeLabelLen {
		return nil, domain.Invalid("time must be a short slot label such as 10:00")
	}

	date, err := domain.ParseDate(in.Date)
	if err != nil {
		return nil, err
	}
	if date.Before(s.today()) {
		return nil, domain.Invalid("cannot book appointments in the past")
	}

	status := domain.StatusBooked
	if strings.TrimSpace(in.Status) != "" {
		if status, err = domain.ParseStatus(in.Status); err != nil {
			return nil, err
		}
		if status != domain.StatusBooked && status != domain.StatusBlocked {
			return nil, domain.Invalid("status must be booked or blocked")
		}
	}
	if status == domain.StatusBlocked && in.PatientID != in.ProviderID {
		return nil, domain.Invalid("a blocked slot must name the provider as patient")
	}

	if !canCreate(actor, in.PatientID, in.ProviderID, status) {
		return nil, domain.ErrForbidden
	}

	provider, err := s.lookup(ctx, in.ProviderID, domain.RoleProvider, domain.ErrProviderNotFound)
	if err != nil {
		return nil, err
	}
	patient := provider
	if status == domain.StatusBooked {
		if patient, err = s.lookup(ctx, in.PatientID, domain.RolePatient, domain.ErrPatientNotFound); err != nil {
			return nil, err
		}
	}

	appt := &domain.Appointment{
		PatientID:  patient.ID,
		ProviderID: provider.ID,
		Date:       date,
		Time:       timeLabel,
		Status:     status,
		Reason:     reason,
	}
	evt := s.newEvent(domain.EventAppointmentCreated, actor, appt)

	err = s.withSlotLock(ctx, appt.Slot(), func(ctx context.Context) error {
		if err := s.conflicts.Ensure(ctx, appt.Slot(), 0); err != nil {
			return err
		}
		return s.appointments.Create(ctx, appt, evt)
	})
	if err != nil {
		s.observeConflict(err)
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	metrics.AppointmentsCreatedTotal.WithLabelValues(string(status)).Inc()
	s.publish(*evt)

	s.logger.Info().
		Int64("appointment_id", appt.ID).
		Int64("provider_id", appt.ProviderID).
		Str("date", domain.FormatDate(appt.Date)).
		Str("time", appt.Time).
		Str("status", string(appt.Status)).
		Msg("appointment created")

	return &domain.AppointmentDetail{
		Appointment:   *appt,
		PatientName:   patient.Name,
		PatientEmail:  patient.Email,
		ProviderName:  provider.Name,
		ProviderEmail: provider.Email,
	}, nil
}

// UpdateAppointment reschedules and/or changes the status or reason of an
// appointment. Any change that leaves the appointment holding a slot it did
// not hold before is re-checked for conflicts, excluding the appointment itself.
func (s *AppointmentService) UpdateAppointment(ctx context.Context, actor domain.Actor, id int64, in ports.UpdateAppointmentInput) (*domain.AppointmentDetail, error) {
	current, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, &current.Appointment) {
		return nil, domain.ErrForbidden
	}

	next := current.Appointment
	slotChanged := false

	if in.Date != nil {
		date, err := domain.ParseDate(*in.Date)
		if err != nil {
			return nil, err
		}
		if !date.Equal(next.Date) {
			if date.Before(s.today()) {
				return nil, domain.Invalid("cannot move appointments into the past")
			}
			next.Date = date
			slotChanged = true
		}
	}
	if in.Time != nil {
		label := strings.TrimSpace(*in.Time)
		if label == "" || len(label) > maxTimeLabelLen {
			return nil, domain.Invalid("time must be a short slot label such as 10:00")
		}
		if label != next.Time {
			next.Time = label
			slotChanged = true
		}
	}
	if in.Status != nil {
		status, err := domain.ParseStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		if !actor.IsAdmin() && !current.Status.CanTransitionTo(status) {
			return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, current.Status, status)
		}
		if status == domain.StatusBlocked && next.PatientID != next.ProviderID {
			return nil, domain.Invalid("a blocked slot must name the provider as patient")
		}
		next.Status = status
	}
	if in.Reason != nil {
		next.Reason = strings.TrimSpace(*in.Reason)
	}

	if slotChanged && !actor.IsAdmin() && next.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: cannot reschedule a %s appointment", domain.ErrInvalidTransition, next.Status)
	}

	statusChanged := next.Status != current.Status
	if !slotChanged && !statusChanged && next.Reason == current.Reason {
		return current, nil
	}

	evtType := domain.EventAppointmentUpdated
	switch {
	case slotChanged:
		evtType = domain.EventAppointmentRescheduled
	case statusChanged:
		evtType = domain.EventAppointmentStatusChanged
	}
	evt := s.newEvent(evtType, actor, &next)
	evt.PreviousStatus = current.Status
	if slotChanged {
		evt.PreviousDate = domain.FormatDate(current.Date)
		evt.PreviousTime = current.Time
	}

	write := func(ctx context.Context) error {
		return s.appointments.Update(ctx, &next, evt)
	}
	if next.Status.IsActive() && (slotChanged || !current.Status.IsActive()) {
		err = s.withSlotLock(ctx, next.Slot(), func(ctx context.Context) error {
			if err := s.conflicts.Ensure(ctx, next.Slot(), next.ID); err != nil {
				return err
			}
			return write(ctx)
		})
	} else {
		err = write(ctx)
	}
	if err != nil {
		s.observeConflict(err)
		return nil, fmt.Errorf("update appointment: %w", err)
	}

	if statusChanged {
		metrics.StatusTransitionsTotal.WithLabelValues(string(current.Status), string(next.Status)).Inc()
	}
	s.publish(*evt)

	s.logger.Info().
		Int64("appointment_id", next.ID).
		Str("event", string(evtType)).
		Str("status", string(next.Status)).
		Int64("actor_id", actor.UserID).
		Msg("appointment updated")

	updated := *current
	updated.Appointment = next
	return &updated, nil
}

// DeleteAppointment removes an appointment regardless of its status.
func (s *AppointmentService) DeleteAppointment(ctx context.Context, actor domain.Actor, id int64) error {
	current, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !canAccess(actor, &current.Appointment) {
		return domain.ErrForbidden
	}

	evt := s.newEvent(domain.EventAppointmentDeleted, actor, &current.Appointment)
	if err := s.appointments.Delete(ctx, id, evt); err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	s.publish(*evt)

	s.logger.Info().Int64("appointment_id", id).Int64("actor_id", actor.UserID).Msg("appointment deleted")
	return nil
}

func (s *AppointmentService) GetAppointment(ctx context.Context, actor domain.Actor, id int64) (*domain.AppointmentDetail, error) {
	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, &appt.Appointment) {
		return nil, domain.ErrForbidden
	}
	return appt, nil
}

// ListAppointments returns the appointments visible to actor, newest date first.
func (s *AppointmentService) ListAppointments(ctx context.Context, actor domain.Actor, in ports.ListAppointmentsInput) ([]*domain.AppointmentDetail, error) {
	requested := ports.ListAppointmentsFilter{PatientID: in.PatientID, ProviderID: in.ProviderID}
	if in.Status != "" {
		status, err := domain.ParseStatus(in.Status)
		if err != nil {
			return nil, err
		}
		requested.Status = status
	}
	if in.Date != "" {
		date, err := domain.ParseDate(in.Date)
		if err != nil {
			return nil, err
		}
		requested.Date = date
	}

	items, err := s.appointments.List(ctx, ScopeListFilter(actor, requested))
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return items, nil
}

// lookup loads a user and checks its role, reporting notFound otherwise.
func (s *AppointmentService) lookup(ctx context.Context, id int64, role domain.Role, notFound error) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	if u.Role != role {
		return nil, notFound
	}
	return u, nil
}

func (s *AppointmentService) withSlotLock(ctx context.Context, key domain.SlotKey, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithSlotLock(ctx, key, fn)
}

func (s *AppointmentService) today() time.Time {
	return domain.Today(s.now(), s.loc)
}

func (s *AppointmentService) newEvent(t domain.EventType, actor domain.Actor, a *domain.Appointment) *domain.AppointmentEvent {
	return &domain.AppointmentEvent{
		ID:            uuid.NewString(),
		Type:          t,
		AppointmentID: a.ID,
		PatientID:     a.PatientID,
		ProviderID:    a.ProviderID,
		Date:          domain.FormatDate(a.Date),
		Time:          a.Time,
		Status:        a.Status,
		ActorID:       actor.UserID,
		ActorRole:     actor.Role,
		OccurredAt:    s.now().UTC(),
	}
}

func (s *AppointmentService) publish(evt domain.AppointmentEvent) {
	if s.audit != nil {
		s.audit.Enqueue(evt)
	}
}

func (s *AppointmentService) observeConflict(err error) {
	if !errors.Is(err, domain.ErrSlotUnavailable) {
		return
	}
	claim := "lock"
	var ce *domain.SlotConflictError
	if errors.As(err, &ce) {
		claim = "constraint"
		if ce.Claim != nil {
			claim = ce.Claim.Kind.String()
		}
	}
	metrics.BookingConflictsTotal.WithLabelValues(claim).Inc()
	s.logger.Debug().Err(err).Str("claim", claim).Msg("slot conflict")
}
