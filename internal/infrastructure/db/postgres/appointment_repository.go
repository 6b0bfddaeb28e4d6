package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthtech/clinic-scheduler/internal/core/domain"
	"github.com/healthtech/clinic-scheduler/internal/core/ports"
)

const (
	activeSlotIndex = "appointments_active_slot_uniq"

	listOrder = " ORDER BY a.appointment_date DESC, a.slot_time ASC, a.id ASC"

	appointmentColumns = `a.id, a.patient_id, a.provider_id, a.appointment_date, a.slot_time, a.status, a.reason, a.created_at, a.updated_at`

	detailSelect = `
		SELECT ` + appointmentColumns + `,
		       p.name, p.email, pr.name, pr.email
		FROM appointments a
		JOIN users p  ON p.id = a.patient_id
		JOIN users pr ON pr.id = a.provider_id`
)

// AppointmentRepository is the Postgres implementation of
// ports.AppointmentRepository. The partial unique index on active slots is
// the final arbiter of conflicts.
type AppointmentRepository struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

// Helpers

func scanAppointment(row pgx.Row) (*domain.Appointment, error) {
	var a domain.Appointment
	var status string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.ProviderID,
		&a.Date,
		&a.Time,
		&status,
		&a.Reason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Status = domain.AppointmentStatus(status)
	a.Date = domain.CivilDate(a.Date)
	return &a, nil
}

func scanDetail(row pgx.Row) (*domain.AppointmentDetail, error) {
	var d domain.AppointmentDetail
	var status string

	err := row.Scan(
		&d.ID,
		&d.PatientID,
		&d.ProviderID,
		&d.Date,
		&d.Time,
		&status,
		&d.Reason,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.PatientName,
		&d.PatientEmail,
		&d.ProviderName,
		&d.ProviderEmail,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAppointmentNotFound
		}
		return nil, err
	}

	d.Status = domain.AppointmentStatus(status)
	d.Date = domain.CivilDate(d.Date)
	return &d, nil
}

// writeError maps constraint violations to domain errors.
func writeError(op string, err error) error {
	switch code, constraint := pgCode(err); {
	case code == uniqueViolation && constraint == activeSlotIndex:
		return &domain.SlotConflictError{}
	case code == foreignKeyViolation:
		return fmt.Errorf("%s: %w", op, domain.ErrUserNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// inTx runs fn in a transaction, committing only when fn succeeds.
func (r *AppointmentRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Interface methods

func (r *AppointmentRepository) FindActiveInSlot(ctx context.Context, slot domain.SlotKey, excludeID int64) (*domain.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.provider_id = $1
		  AND a.appointment_date = $2
		  AND a.slot_time = $3
		  AND a.status IN ('booked', 'blocked')
		  AND a.id <> $4
		LIMIT 1
	`, slot.ProviderID, slot.Date, slot.Time, excludeID)

	a, err := scanAppointment(row)
	if errors.Is(err, domain.ErrAppointmentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active in slot: %w", err)
	}
	return a, nil
}

func (r *AppointmentRepository) ActiveTimes(ctx context.Context, providerID int64, date time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT slot_time
		FROM appointments
		WHERE provider_id = $1
		  AND appointment_date = $2
		  AND status IN ('booked', 'blocked')
	`, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("active times: %w", err)
	}
	times, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("active times: %w", err)
	}
	return times, nil
}

func (r *AppointmentRepository) FindByID(ctx context.Context, id int64) (*domain.AppointmentDetail, error) {
	row := r.pool.QueryRow(ctx, detailSelect+` WHERE a.id = $1`, id)
	return scanDetail(row)
}

// List returns matching appointments, most recent date first and earliest
// slot first within a day.
func (r *AppointmentRepository) List(ctx context.Context, f ports.ListAppointmentsFilter) ([]*domain.AppointmentDetail, error) {
	q, args := listQuery(f)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var out []*domain.AppointmentDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}
	return out, nil
}

func listQuery(f ports.ListAppointmentsFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.PatientID != 0 {
		add("a.patient_id = $%d", f.PatientID)
	}
	if f.ProviderID != 0 {
		add("a.provider_id = $%d", f.ProviderID)
	}
	if f.Status != "" {
		add("a.status = $%d", string(f.Status))
	}
	if !f.Date.IsZero() {
		add("a.appointment_date = $%d", f.Date)
	}

	q := detailSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	return q + listOrder, args
}

func (r *AppointmentRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM appointments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count appointments: %w", err)
	}
	return n, nil
}

func (r *AppointmentRepository) Create(ctx context.Context, a *domain.Appointment, evt *domain.AppointmentEvent) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO appointments (patient_id, provider_id, appointment_date, slot_time, status, reason)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at
		`, a.PatientID, a.ProviderID, a.Date, a.Time, string(a.Status), a.Reason).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return writeError("insert appointment", err)
		}

		evt.AppointmentID = a.ID
		return insertOutbox(ctx, tx, evt)
	})
}

func (r *AppointmentRepository) Update(ctx context.Context, a *domain.Appointment, evt *domain.AppointmentEvent) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE appointments
			SET appointment_date = $2,
			    slot_time = $3,
			    status = $4,
			    reason = $5,
			    updated_at = now()
			WHERE id = $1
			RETURNING updated_at
		`, a.ID, a.Date, a.Time, string(a.Status), a.Reason).Scan(&a.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAppointmentNotFound
		}
		if err != nil {
			return writeError("update appointment", err)
		}

		return insertOutbox(ctx, tx, evt)
	})
}

func (r *AppointmentRepository) Delete(ctx context.Context, id int64, evt *domain.AppointmentEvent) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete appointment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrAppointmentNotFound
		}

		return insertOutbox(ctx, tx, evt)
	})
}
