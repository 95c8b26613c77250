package record

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/excelthedev/Plural-health/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

// recordFrom joins an appointment to its patient and facility. Inner joins
// drop appointments with a dangling reference.
const recordFrom = ` FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN facilities f ON f.id = a.facility_id`

const recordColumns = `a.id, a.appointment_time, a.clinic, a.status, a.appointment_type,
	a.is_urgent, a.cost::float8, a.payment_status, COALESCE(a.notes, ''), a.created_at,
	p.id, p.first_name || ' ' || p.last_name AS patient_name, p.patient_code, p.primary_phone,
	p.wallet_balance::float8, p.currency, f.id, f.name`

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID, &rec.AppointmentTime, &rec.Clinic, &rec.Status, &rec.AppointmentType,
		&rec.IsUrgent, &rec.Cost, &rec.PaymentStatus, &rec.Notes, &rec.CreatedAt,
		&rec.PatientID, &rec.PatientName, &rec.PatientCode, &rec.PatientPhone,
		&rec.WalletBalance, &rec.Currency, &rec.FacilityID, &rec.FacilityName,
	)
	return rec, err
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.applyDefaults()
	if err := a.validate(); err != nil {
		return err
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (
			id, patient_id, doctor_id, facility_id, appointment_time, clinic, status,
			appointment_type, notes, diagnosis, prescription, follow_up_date, is_urgent,
			estimated_duration, actual_duration, cost, payment_status, created_by
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18
		)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.DoctorID, a.FacilityID, a.AppointmentTime, a.Clinic, a.Status,
		a.AppointmentType, nullIfEmpty(a.Notes), nullIfEmpty(a.Diagnosis), nullIfEmpty(a.Prescription), a.FollowUpDate, a.IsUrgent,
		a.EstimatedDuration, a.ActualDuration, a.Cost, a.PaymentStatus, nullIfEmpty(a.CreatedBy),
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("insert appointment: unknown reference: %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

// recordWhere builds the WHERE clause shared by the list, count and stats
// queries.
func recordWhere(f Filter) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	idx := 1

	add := func(clause string, arg interface{}) {
		clauses = append(clauses, fmt.Sprintf(clause, idx))
		args = append(args, arg)
		idx++
	}
	if f.From != nil {
		add("a.appointment_time >= $%d", *f.From)
	}
	if f.Until != nil {
		add("a.appointment_time < $%d", *f.Until)
	}
	if f.FacilityID != nil {
		add("a.facility_id = $%d", *f.FacilityID)
	}
	if f.Clinic != "" {
		add("a.clinic = $%d", f.Clinic)
	}
	if f.Status != "" {
		add("a.status = $%d", f.Status)
	}
	if f.Search != "" {
		add("(p.first_name || ' ' || p.last_name ILIKE $%[1]d OR p.patient_code ILIKE $%[1]d OR p.primary_phone ILIKE $%[1]d)",
			"%"+escapeLike(f.Search)+"%")
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// escapeLike makes a search term literal inside ILIKE.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func recordOrder(f Filter) string {
	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = sortColumns[SortAppointmentTime]
	}
	dir := " ASC"
	if f.SortDesc {
		dir = " DESC"
	}
	// a.id keeps tied rows in one order across LIMIT/OFFSET pages.
	return " ORDER BY " + col + dir + ", a.id" + dir
}

func (r *repoPG) List(ctx context.Context, f Filter) ([]Record, int, error) {
	where, args := recordWhere(f)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+recordFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	n := len(args)
	query := `SELECT ` + recordColumns + recordFrom + where + recordOrder(f) +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, n+1, n+2)
	args = append(args, f.Page.Limit, f.Page.Offset())

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

// distributionQuery groups the filtered appointments by col.
func distributionQuery(col, where string) string {
	return `SELECT ` + col + `, COUNT(*)` + recordFrom + where +
		` GROUP BY ` + col + ` ORDER BY COUNT(*) DESC, ` + col + ` ASC`
}

func (r *repoPG) Stats(ctx context.Context, f Filter) (*Stats, error) {
	where, args := recordWhere(f.StatsFilter())

	st := &Stats{}
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE a.is_urgent)`+recordFrom+where, args...,
	).Scan(&st.TotalAppointments, &st.UrgentAppointments)
	if err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}

	if st.StatusDistribution, err = r.distribution(ctx, distributionQuery("a.status", where), args); err != nil {
		return nil, err
	}
	if st.ClinicDistribution, err = r.distribution(ctx, distributionQuery("a.clinic", where), args); err != nil {
		return nil, err
	}
	return st, nil
}

func (r *repoPG) distribution(ctx context.Context, query string, args []interface{}) ([]Bucket, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("distribution: %w", err)
	}
	defer rows.Close()

	out := []Bucket{}
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.ID, &b.Count); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repoPG) FilterOptions(ctx context.Context, facilityID *uuid.UUID) (*FilterOptions, error) {
	clinics, err := r.distinct(ctx, "clinic", facilityID)
	if err != nil {
		return nil, err
	}
	statuses, err := r.distinct(ctx, "status", facilityID)
	if err != nil {
		return nil, err
	}
	return &FilterOptions{Clinics: clinics, Statuses: statuses}, nil
}

// distinct lists the sorted distinct values of col; col is a fixed column
// name, never user input.
func (r *repoPG) distinct(ctx context.Context, col string, facilityID *uuid.UUID) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT DISTINCT `+col+` FROM appointments WHERE ($1::uuid IS NULL OR facility_id = $1) ORDER BY `+col,
		facilityID)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", col, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

const detailQuery = `SELECT
	a.id, a.patient_id, a.doctor_id, a.facility_id, a.appointment_time, a.clinic, a.status,
	a.appointment_type, COALESCE(a.notes, ''), COALESCE(a.diagnosis, ''), COALESCE(a.prescription, ''),
	a.follow_up_date, a.is_urgent, a.estimated_duration, a.actual_duration, a.cost::float8,
	a.payment_status, COALESCE(a.created_by, ''), COALESCE(a.updated_by, ''), a.created_at, a.updated_at,
	p.first_name || ' ' || p.last_name, p.patient_code, p.primary_phone, COALESCE(p.email, ''),
	p.gender, p.date_of_birth, p.wallet_balance::float8, p.currency,
	s.first_name || ' ' || s.last_name, COALESCE(s.specialization, ''),
	f.name, f.type, COALESCE(f.phone, '')
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN facilities f ON f.id = a.facility_id
	LEFT JOIN staff s ON s.id = a.doctor_id
	WHERE a.id = $1`

func (r *repoPG) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	var d Detail
	var doctorName *string
	var doctorSpec string
	a := &d.Appointment
	err := r.conn(ctx).QueryRow(ctx, detailQuery, id).Scan(
		&a.ID, &a.PatientID, &a.DoctorID, &a.FacilityID, &a.AppointmentTime, &a.Clinic, &a.Status,
		&a.AppointmentType, &a.Notes, &a.Diagnosis, &a.Prescription,
		&a.FollowUpDate, &a.IsUrgent, &a.EstimatedDuration, &a.ActualDuration, &a.Cost,
		&a.PaymentStatus, &a.CreatedBy, &a.UpdatedBy, &a.CreatedAt, &a.UpdatedAt,
		&d.Patient.Name, &d.Patient.PatientCode, &d.Patient.Phone, &d.Patient.Email,
		&d.Patient.Gender, &d.Patient.DateOfBirth, &d.Patient.WalletBalance, &d.Patient.Currency,
		&doctorName, &doctorSpec,
		&d.Facility.Name, &d.Facility.Type, &d.Facility.Phone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	d.Patient.ID = a.PatientID
	d.Facility.ID = a.FacilityID
	if a.DoctorID != nil && doctorName != nil {
		d.Doctor = &DoctorSummary{ID: *a.DoctorID, Name: *doctorName, Specialization: doctorSpec}
	}
	return &d, nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status, updatedBy string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointments SET status = $2, updated_by = $3, updated_at = NOW() WHERE id = $1`,
		id, status, nullIfEmpty(updatedBy))
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
