package facility

import (
	"context"
	"errors"
	"fmt"

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

const facilityColumns = `id, name, type,
	COALESCE(street, ''), COALESCE(city, ''), COALESCE(state, ''), COALESCE(zip_code, ''), COALESCE(country, ''),
	COALESCE(phone, ''), COALESCE(email, ''), COALESCE(website, ''),
	is_active, COALESCE(created_by, ''), created_at, updated_at`

func scanFacility(row pgx.Row) (*Facility, error) {
	var f Facility
	err := row.Scan(
		&f.ID, &f.Name, &f.Type,
		&f.Address.Street, &f.Address.City, &f.Address.State, &f.Address.ZipCode, &f.Address.Country,
		&f.ContactInfo.Phone, &f.ContactInfo.Email, &f.ContactInfo.Website,
		&f.IsActive, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *repoPG) Create(ctx context.Context, f *Facility) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO facilities (
			id, name, type, street, city, state, zip_code, country,
			phone, email, website, is_active, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`,
		f.ID, f.Name, f.Type,
		f.Address.Street, f.Address.City, f.Address.State, f.Address.ZipCode, f.Address.Country,
		f.ContactInfo.Phone, f.ContactInfo.Email, f.ContactInfo.Website,
		f.IsActive, f.CreatedBy,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert facility: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Facility, error) {
	return scanFacility(r.conn(ctx).QueryRow(ctx, `SELECT `+facilityColumns+` FROM facilities WHERE id = $1`, id))
}

func (r *repoPG) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM facilities WHERE id = $1)`, id).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check facility: %w", err)
	}
	return ok, nil
}

func (r *repoPG) List(ctx context.Context, activeOnly bool) ([]*Facility, error) {
	query := `SELECT ` + facilityColumns + ` FROM facilities`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`

	rows, err := r.conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Facility
	for rows.Next() {
		f, err := scanFacility(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

const staffColumns = `id, facility_id, first_name, last_name, email, role,
	COALESCE(specialization, ''), created_at`

func scanStaff(row pgx.Row) (*Staff, error) {
	var s Staff
	err := row.Scan(&s.ID, &s.FacilityID, &s.FirstName, &s.LastName, &s.Email, &s.Role, &s.Specialization, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) CreateStaff(ctx context.Context, s *Staff) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO staff (id, facility_id, first_name, last_name, email, role, specialization)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, created_at`,
		s.ID, s.FacilityID, s.FirstName, s.LastName, s.Email, s.Role, s.Specialization,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert staff: %w", err)
	}
	return nil
}

func (r *repoPG) GetStaff(ctx context.Context, id uuid.UUID) (*Staff, error) {
	return scanStaff(r.conn(ctx).QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = $1`, id))
}

func (r *repoPG) ListStaff(ctx context.Context, facilityID *uuid.UUID, role string) ([]*Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE 1=1`
	var args []interface{}
	idx := 1

	if facilityID != nil {
		query += fmt.Sprintf(` AND facility_id = $%d`, idx)
		args = append(args, *facilityID)
		idx++
	}
	if role != "" {
		query += fmt.Sprintf(` AND role = $%d`, idx)
		args = append(args, role)
	}
	query += ` ORDER BY last_name, first_name`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
