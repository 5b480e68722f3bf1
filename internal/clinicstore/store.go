// Package clinicstore implements the clinic persistence layer on Postgres.
package clinicstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morelandlabs/dentalagent/internal/agent"
	"github.com/morelandlabs/dentalagent/pkg/logging"
)

// DB is the subset of pgxpool.Pool the store depends on, narrow enough to
// swap in a mock.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// defaultVisitMinutes is the booked slot length when the treatment carries no
// duration of its own.
const defaultVisitMinutes = 30

// Store is the Postgres implementation of agent.ClinicStore.
type Store struct {
	db     DB
	logger *logging.Logger
}

var _ agent.ClinicStore = (*Store)(nil)

// New creates a store backed by a pgx pool.
func New(pool *pgxpool.Pool, logger *logging.Logger) *Store {
	if pool == nil {
		panic("clinicstore: pgx pool required")
	}
	return NewWithDB(pool, logger)
}

// NewWithDB creates a store over any DB, mocks included.
func NewWithDB(db DB, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{db: db, logger: logger}
}

func (s *Store) ListPatients(ctx context.Context, doctorID int64) ([]agent.NamedEntity, error) {
	query := `
		SELECT id, name
		FROM patients
		WHERE doctor_id = $1
		ORDER BY name
	`
	return s.listNamed(ctx, query, "patients", doctorID)
}

func (s *Store) ListDoctors(ctx context.Context) ([]agent.NamedEntity, error) {
	query := `
		SELECT id, name
		FROM doctors
		ORDER BY name
	`
	return s.listNamed(ctx, query, "doctors")
}

func (s *Store) ListTreatments(ctx context.Context, doctorID int64) ([]agent.NamedEntity, error) {
	query := `
		SELECT id, name
		FROM treatments
		WHERE doctor_id = $1
		ORDER BY name
	`
	return s.listNamed(ctx, query, "treatments", doctorID)
}

func (s *Store) listNamed(ctx context.Context, query, what string, args ...any) ([]agent.NamedEntity, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("clinicstore: list %s: %w", what, err)
	}
	defer rows.Close()

	var out []agent.NamedEntity
	for rows.Next() {
		var e agent.NamedEntity
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, fmt.Errorf("clinicstore: scan %s: %w", what, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ListInventory(ctx context.Context, doctorID int64) ([]agent.InventoryLevel, error) {
	query := `
		SELECT id, name, quantity, threshold, unit_price
		FROM inventory_items
		WHERE doctor_id = $1
		ORDER BY name
	`
	rows, err := s.db.Query(ctx, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("clinicstore: list inventory: %w", err)
	}
	defer rows.Close()

	var out []agent.InventoryLevel
	for rows.Next() {
		var item agent.InventoryLevel
		if err := rows.Scan(&item.ID, &item.Name, &item.Quantity, &item.Threshold, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("clinicstore: scan inventory: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Store) GetSchedule(ctx context.Context, doctorID int64, window agent.DateWindow) ([]agent.AppointmentRecord, error) {
	query := `
		SELECT a.id, a.start_at, a.end_at, a.status,
		       COALESCE(a.patient_id, 0), COALESCE(p.name, ''), COALESCE(t.name, '')
		FROM appointments a
		LEFT JOIN patients p ON p.id = a.patient_id
		LEFT JOIN treatments t ON t.id = a.treatment_id
		WHERE a.doctor_id = $1
		  AND a.start_at >= $2
		  AND a.start_at < $3
		ORDER BY a.start_at
	`
	rows, err := s.db.Query(ctx, query, doctorID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("clinicstore: query schedule: %w", err)
	}
	defer rows.Close()

	var out []agent.AppointmentRecord
	for rows.Next() {
		var a agent.AppointmentRecord
		if err := rows.Scan(&a.ID, &a.Start, &a.End, &a.Status, &a.PatientID, &a.PatientName, &a.TreatmentName); err != nil {
			return nil, fmt.Errorf("clinicstore: scan schedule: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) WorkingHours(ctx context.Context, doctorID int64) (int, int, error) {
	query := `
		SELECT start_hour, end_hour
		FROM doctors
		WHERE id = $1
	`
	var start, end int
	if err := s.db.QueryRow(ctx, query, doctorID).Scan(&start, &end); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, agent.ErrProfileNotFound
		}
		return 0, 0, fmt.Errorf("clinicstore: working hours: %w", err)
	}
	return start, end, nil
}

// ActiveAppointment returns the next booked or in-progress appointment for
// the actor, optionally narrowed to a patient when a doctor is asking.
func (s *Store) ActiveAppointment(ctx context.Context, actor agent.Actor, patientID int64) (*agent.AppointmentRecord, error) {
	query := `
		SELECT a.id, a.start_at, a.end_at, a.status,
		       COALESCE(a.patient_id, 0), COALESCE(p.name, ''), COALESCE(t.name, '')
		FROM appointments a
		LEFT JOIN patients p ON p.id = a.patient_id
		LEFT JOIN treatments t ON t.id = a.treatment_id
		WHERE a.status IN ('booked', 'in_progress')
		  AND a.patient_id = $1
		ORDER BY a.start_at
		LIMIT 1
	`
	target := patientID
	if actor.Role == agent.RolePatient {
		target = actor.ID
	}
	var a agent.AppointmentRecord
	err := s.db.QueryRow(ctx, query, target).Scan(
		&a.ID, &a.Start, &a.End, &a.Status, &a.PatientID, &a.PatientName, &a.TreatmentName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("clinicstore: active appointment: %w", err)
	}
	return &a, nil
}

func (s *Store) Book(ctx context.Context, spec agent.BookingSpec) (int64, error) {
	query := `
		INSERT INTO appointments (doctor_id, patient_id, treatment_id, start_at, end_at, status)
		VALUES ($1, $2, $3, $4, $5, 'booked')
		RETURNING id
	`
	end := spec.Start.Add(defaultVisitMinutes * time.Minute)
	var id int64
	if err := s.db.QueryRow(ctx, query,
		spec.DoctorID, spec.PatientID, spec.TreatmentID, spec.Start, end,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("clinicstore: book: %w", err)
	}
	return id, nil
}

func (s *Store) Block(ctx context.Context, doctorID int64, at time.Time) (int64, error) {
	query := `
		INSERT INTO appointments (doctor_id, start_at, end_at, status)
		VALUES ($1, $2, $3, 'blocked')
		RETURNING id
	`
	var id int64
	if err := s.db.QueryRow(ctx, query,
		doctorID, at, at.Add(defaultVisitMinutes*time.Minute),
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("clinicstore: block: %w", err)
	}
	return id, nil
}

func (s *Store) Cancel(ctx context.Context, appointmentID int64, actor agent.Actor) error {
	query := `
		UPDATE appointments
		SET status = 'cancelled'
		WHERE id = $1 AND doctor_id = $2 AND status IN ('booked', 'in_progress')
	`
	owner := actor.ID
	if actor.Role == agent.RolePatient {
		query = `
			UPDATE appointments
			SET status = 'cancelled'
			WHERE id = $1 AND patient_id = $2 AND status IN ('booked', 'in_progress')
		`
	}
	tag, err := s.db.Exec(ctx, query, appointmentID, owner)
	if err != nil {
		return fmt.Errorf("clinicstore: cancel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return agent.Rejected("No active appointment found to cancel.")
	}
	return nil
}

func (s *Store) Reschedule(ctx context.Context, appointmentID int64, at time.Time) error {
	query := `
		UPDATE appointments
		SET start_at = $2, end_at = $3
		WHERE id = $1 AND status = 'booked'
	`
	tag, err := s.db.Exec(ctx, query, appointmentID, at, at.Add(defaultVisitMinutes*time.Minute))
	if err != nil {
		return fmt.Errorf("clinicstore: reschedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return agent.Rejected("No active appointment found to reschedule.")
	}
	return nil
}

// StartVisit promotes the patient's booked appointment to in_progress. When
// nothing was booked the visit is recorded as a walk-in starting now.
func (s *Store) StartVisit(ctx context.Context, doctorID, patientID int64) (int64, error) {
	promote := `
		UPDATE appointments
		SET status = 'in_progress'
		WHERE id = (
			SELECT id FROM appointments
			WHERE doctor_id = $1 AND patient_id = $2 AND status = 'booked'
			ORDER BY start_at
			LIMIT 1
		)
		RETURNING id
	`
	var id int64
	err := s.db.QueryRow(ctx, promote, doctorID, patientID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("clinicstore: start visit: %w", err)
	}

	walkIn := `
		INSERT INTO appointments (doctor_id, patient_id, start_at, end_at, status)
		VALUES ($1, $2, now(), now() + make_interval(mins => $3), 'in_progress')
		RETURNING id
	`
	if err := s.db.QueryRow(ctx, walkIn, doctorID, patientID, defaultVisitMinutes).Scan(&id); err != nil {
		return 0, fmt.Errorf("clinicstore: walk-in visit: %w", err)
	}
	s.logger.Info("walk-in visit recorded", "doctor_id", doctorID, "patient_id", patientID)
	return id, nil
}

// CompleteVisit closes the in-progress appointment and raises a pending
// invoice for the treatment's price, atomically.
func (s *Store) CompleteVisit(ctx context.Context, doctorID, patientID int64) (float64, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("clinicstore: begin complete visit: %w", err)
	}
	defer tx.Rollback(ctx)

	complete := `
		UPDATE appointments
		SET status = 'completed'
		WHERE id = (
			SELECT id FROM appointments
			WHERE doctor_id = $1 AND patient_id = $2 AND status = 'in_progress'
			ORDER BY start_at
			LIMIT 1
		)
		RETURNING id, (SELECT COALESCE(t.price, 0) FROM treatments t WHERE t.id = treatment_id)
	`
	var appointmentID int64
	var amount float64
	err = tx.QueryRow(ctx, complete, doctorID, patientID).Scan(&appointmentID, &amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, agent.Rejected("No in-progress visit found for that patient.")
	}
	if err != nil {
		return 0, fmt.Errorf("clinicstore: complete visit: %w", err)
	}

	invoice := `
		INSERT INTO invoices (appointment_id, doctor_id, amount, status)
		VALUES ($1, $2, $3, 'pending')
	`
	if _, err := tx.Exec(ctx, invoice, appointmentID, doctorID, amount); err != nil {
		return 0, fmt.Errorf("clinicstore: raise invoice: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("clinicstore: commit complete visit: %w", err)
	}
	return amount, nil
}

func (s *Store) AdjustInventory(ctx context.Context, itemID int64, delta int) (int, error) {
	query := `
		UPDATE inventory_items
		SET quantity = quantity + $2
		WHERE id = $1
		RETURNING quantity
	`
	var quantity int
	if err := s.db.QueryRow(ctx, query, itemID, delta).Scan(&quantity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, agent.Rejected("That inventory item no longer exists.")
		}
		return 0, fmt.Errorf("clinicstore: adjust inventory: %w", err)
	}
	return quantity, nil
}

func (s *Store) SetInventoryThreshold(ctx context.Context, itemID int64, threshold int) error {
	return s.updateItem(ctx, `
		UPDATE inventory_items
		SET threshold = $2
		WHERE id = $1
	`, "set threshold", itemID, threshold)
}

func (s *Store) SetInventoryPrice(ctx context.Context, itemID int64, price float64) error {
	return s.updateItem(ctx, `
		UPDATE inventory_items
		SET unit_price = $2
		WHERE id = $1
	`, "set unit price", itemID, price)
}

func (s *Store) updateItem(ctx context.Context, query, what string, itemID int64, value any) error {
	tag, err := s.db.Exec(ctx, query, itemID, value)
	if err != nil {
		return fmt.Errorf("clinicstore: %s: %w", what, err)
	}
	if tag.RowsAffected() == 0 {
		return agent.Rejected("That inventory item no longer exists.")
	}
	return nil
}

func (s *Store) CreateTreatment(ctx context.Context, doctorID int64, name string, price float64) (int64, error) {
	query := `
		INSERT INTO treatments (doctor_id, name, price)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var id int64
	if err := s.db.QueryRow(ctx, query, doctorID, name, price).Scan(&id); err != nil {
		return 0, fmt.Errorf("clinicstore: create treatment: %w", err)
	}
	return id, nil
}

func (s *Store) DeleteTreatment(ctx context.Context, treatmentID int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM treatments WHERE id = $1`, treatmentID)
	if err != nil {
		return fmt.Errorf("clinicstore: delete treatment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return agent.Rejected("That treatment no longer exists.")
	}
	return nil
}

func (s *Store) SetTreatmentPrice(ctx context.Context, treatmentID int64, price float64) error {
	tag, err := s.db.Exec(ctx, `UPDATE treatments SET price = $2 WHERE id = $1`, treatmentID, price)
	if err != nil {
		return fmt.Errorf("clinicstore: set treatment price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return agent.Rejected("That treatment no longer exists.")
	}
	return nil
}

func (s *Store) GetFinancialRecords(ctx context.Context, doctorID int64, window agent.DateWindow) ([]agent.FinancialRecord, error) {
	query := `
		SELECT amount, status, created_at
		FROM invoices
		WHERE doctor_id = $1
		  AND created_at >= $2
		  AND created_at < $3
		ORDER BY created_at
	`
	rows, err := s.db.Query(ctx, query, doctorID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("clinicstore: query invoices: %w", err)
	}
	defer rows.Close()

	var out []agent.FinancialRecord
	for rows.Next() {
		var r agent.FinancialRecord
		if err := rows.Scan(&r.Amount, &r.Status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("clinicstore: scan invoice: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CountPatients(ctx context.Context, doctorID int64, window agent.DateWindow) (int, error) {
	query := `
		SELECT COUNT(DISTINCT patient_id)
		FROM appointments
		WHERE doctor_id = $1
		  AND status = 'completed'
		  AND start_at >= $2
		  AND start_at < $3
	`
	var count int
	if err := s.db.QueryRow(ctx, query, doctorID, window.Start, window.End).Scan(&count); err != nil {
		return 0, fmt.Errorf("clinicstore: count patients: %w", err)
	}
	return count, nil
}
