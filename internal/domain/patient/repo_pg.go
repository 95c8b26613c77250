package patient

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

// codeConstraint is the per-facility uniqueness constraint on patient_code.
const codeConstraint = "patients_facility_code_key"

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const patientColumns = `id, facility_id, patient_code, first_name, COALESCE(middle_name, ''), last_name,
	gender, date_of_birth, primary_phone, COALESCE(secondary_phone, ''), COALESCE(email, ''),
	address, identities, insurance, photo, wallet_balance::float8, currency,
	is_active, is_new_patient, COALESCE(created_by, ''), created_from, COALESCE(updated_by, ''),
	created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.FacilityID, &p.PatientCode, &p.FirstName, &p.MiddleName, &p.LastName,
		&p.Gender, &p.DateOfBirth, &p.PrimaryPhone, &p.SecondaryPhone, &p.Email,
		&p.Address, &p.Identities, &p.Insurance, &p.Photo, &p.WalletBalance, &p.Currency,
		&p.IsActive, &p.IsNewPatient, &p.CreatedBy, &p.CreatedFrom, &p.UpdatedBy,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Create numbers the patient from the facility's running count inside one
// transaction. A concurrent registration that takes the same code trips the
// unique constraint; the insert is then retried once with a fresh count.
func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	err := r.create(ctx, p)
	if db.IsUniqueViolation(err, codeConstraint) {
		err = r.create(ctx, p)
	}
	return err
}

func (r *repoPG) create(ctx context.Context, p *Patient) error {
	return db.InTx(ctx, r.pool, func(ctx context.Context) error {
		var count int
		if err := r.conn(ctx).QueryRow(ctx,
			`SELECT COUNT(*) FROM patients WHERE facility_id = $1`, p.FacilityID).Scan(&count); err != nil {
			return fmt.Errorf("count facility patients: %w", err)
		}

		p.ID = uuid.New()
		p.PatientCode = CodeFor(count + 1)
		if p.Identities == nil {
			p.Identities = []Identity{}
		}

		err := r.conn(ctx).QueryRow(ctx, `
			INSERT INTO patients (
				id, facility_id, patient_code, first_name, middle_name, last_name,
				gender, date_of_birth, primary_phone, secondary_phone, email,
				address, identities, insurance, photo, wallet_balance, currency,
				is_active, is_new_patient, created_by, created_from
			) VALUES (
				$1, $2, $3, $4, $5, $6,
				$7, $8, $9, $10, $11,
				$12, $13, $14, $15, $16, $17,
				$18, $19, $20, $21
			)
			RETURNING created_at, updated_at`,
			p.ID, p.FacilityID, p.PatientCode, p.FirstName, nullIfEmpty(p.MiddleName), p.LastName,
			p.Gender, p.DateOfBirth, p.PrimaryPhone, nullIfEmpty(p.SecondaryPhone), nullIfEmpty(p.Email),
			p.Address, p.Identities, p.Insurance, p.Photo, p.WalletBalance, p.Currency,
			p.IsActive, p.IsNewPatient, nullIfEmpty(p.CreatedBy), p.CreatedFrom,
		).Scan(&p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert patient: %w", err)
		}
		return nil
	})
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	if p.Identities == nil {
		p.Identities = []Identity{}
	}
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patients SET
			facility_id = $2, first_name = $3, middle_name = $4, last_name = $5,
			gender = $6, date_of_birth = $7, primary_phone = $8, secondary_phone = $9, email = $10,
			address = $11, identities = $12, insurance = $13, photo = $14,
			wallet_balance = $15, currency = $16, is_active = $17, is_new_patient = $18,
			updated_by = $19, updated_at = NOW()
		WHERE id = $1
		RETURNING patient_code, created_at, updated_at`,
		p.ID, p.FacilityID, p.FirstName, nullIfEmpty(p.MiddleName), p.LastName,
		p.Gender, p.DateOfBirth, p.PrimaryPhone, nullIfEmpty(p.SecondaryPhone), nullIfEmpty(p.Email),
		p.Address, p.Identities, p.Insurance, p.Photo,
		p.WalletBalance, p.Currency, p.IsActive, p.IsNewPatient,
		nullIfEmpty(p.UpdatedBy),
	).Scan(&p.PatientCode, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update patient: %w", err)
	}
	return nil
}

func (r *repoPG) SoftDelete(ctx context.Context, id uuid.UUID, updatedBy string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET is_active = FALSE, updated_by = $2, updated_at = NOW() WHERE id = $1`,
		id, nullIfEmpty(updatedBy))
	if err != nil {
		return fmt.Errorf("deactivate patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// duplicateQuery is the SQL form of Criteria.Matches scoped to a facility.
// An empty phone or a zero birth date is bound as NULL so its branch cannot
// match.
func duplicateQuery(facilityID uuid.UUID, c Criteria, excludeID *uuid.UUID) (string, []interface{}) {
	var dob interface{}
	if !c.DateOfBirth.IsZero() {
		dob = dateOnly(c.DateOfBirth)
	}
	query := `SELECT ` + patientColumns + ` FROM patients
		WHERE facility_id = $1
		AND (primary_phone = $2 OR (first_name = $3 AND last_name = $4 AND date_of_birth = $5 AND gender = $6))`
	args := []interface{}{facilityID, nullIfEmpty(c.PrimaryPhone), nullIfEmpty(c.FirstName), nullIfEmpty(c.LastName), dob, c.Gender}
	if excludeID != nil {
		query += ` AND id <> $7`
		args = append(args, *excludeID)
	}
	query += ` ORDER BY created_at`
	return query, args
}

func (r *repoPG) FindDuplicates(ctx context.Context, facilityID uuid.UUID, c Criteria, excludeID *uuid.UUID) ([]*Patient, error) {
	query, args := duplicateQuery(facilityID, c, excludeID)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// listWhere builds the WHERE clause shared by the page and count queries.
func listWhere(f ListFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	idx := 1

	if !f.IncludeInactive {
		clauses = append(clauses, "is_active")
	}
	if f.FacilityID != nil {
		clauses = append(clauses, fmt.Sprintf("facility_id = $%d", idx))
		args = append(args, *f.FacilityID)
		idx++
	}
	if f.Gender != "" {
		clauses = append(clauses, fmt.Sprintf("gender = $%d", idx))
		args = append(args, f.Gender)
		idx++
	}
	if f.HasInsurance != nil {
		clauses = append(clauses, fmt.Sprintf("COALESCE((insurance->>'hasInsurance')::boolean, FALSE) = $%d", idx))
		args = append(args, *f.HasInsurance)
		idx++
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		clauses = append(clauses, fmt.Sprintf(
			"(first_name ILIKE $%[1]d OR last_name ILIKE $%[1]d OR patient_code ILIKE $%[1]d OR primary_phone ILIKE $%[1]d OR COALESCE(email, '') ILIKE $%[1]d)", idx))
		args = append(args, "%"+escapeLike(s)+"%")
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

func listOrder(f ListFilter) string {
	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = sortColumns[SortCreatedAt]
	}
	dir := " ASC"
	if f.SortDesc {
		dir = " DESC"
	}
	return " ORDER BY " + col + dir + ", id" + dir
}

func (r *repoPG) List(ctx context.Context, f ListFilter) ([]*Patient, int, error) {
	where, args := listWhere(f)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	n := len(args)
	query := `SELECT ` + patientColumns + ` FROM patients` + where + listOrder(f) +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, n+1, n+2)
	args = append(args, f.Page.Limit, f.Page.Offset())

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}
