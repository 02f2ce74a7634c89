package responder

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ems/casebook/internal/platform/db"
)

// =========== User Repository ===========

type userRepoPG struct{ pool db.Querier }

func NewUserRepoPG(pool db.Querier) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) db.Querier { return db.QuerierFrom(ctx, r.pool) }

func (r *userRepoPG) GetBySubject(ctx context.Context, subject string) (*User, error) {
	var u User
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, external_subject, last_login, created_at FROM users WHERE external_subject = $1`, subject,
	).Scan(&u.ID, &u.ExternalSubject, &u.LastLogin, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx,
		`INSERT INTO users (id, external_subject) VALUES ($1, $2) RETURNING created_at`,
		u.ID, u.ExternalSubject).Scan(&u.CreatedAt)
}

func (r *userRepoPG) TouchLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE users SET last_login = NOW() WHERE id = $1`, id)
	return err
}

// =========== Profile Repository ===========

type profileRepoPG struct{ pool db.Querier }

func NewProfileRepoPG(pool db.Querier) ProfileRepository { return &profileRepoPG{pool: pool} }

func (r *profileRepoPG) conn(ctx context.Context) db.Querier { return db.QuerierFrom(ctx, r.pool) }

const profileCols = `id, user_id, first_name, middle_name, last_name, suffix, avatar_url, email, phone,
	birth_date::text, address, sex, responder_number, organization_id, responder_role_id,
	created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.UserID, &p.FirstName, &p.MiddleName, &p.LastName, &p.Suffix,
		&p.AvatarURL, &p.Email, &p.Phone, &p.BirthDate, &p.Address, &p.Sex, &p.ResponderNumber,
		&p.OrganizationID, &p.RoleID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	return &p, nil
}

func (r *profileRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return scanProfile(r.conn(ctx).QueryRow(ctx, `SELECT `+profileCols+` FROM profiles WHERE id = $1`, id))
}

func (r *profileRepoPG) GetByUser(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return scanProfile(r.conn(ctx).QueryRow(ctx, `SELECT `+profileCols+` FROM profiles WHERE user_id = $1`, userID))
}

func (r *profileRepoPG) Create(ctx context.Context, p *Profile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO profiles (id, user_id, first_name, last_name, avatar_url, email)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		p.ID, p.UserID, p.FirstName, p.LastName, p.AvatarURL, p.Email).Scan(&p.CreatedAt)
}

func (r *profileRepoPG) UpdateInfo(ctx context.Context, id uuid.UUID, info ProfileInfo) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE profiles SET first_name=$2, middle_name=$3, last_name=$4, suffix=$5,
			birth_date=$6::text::date, address=$7, email=$8, phone=$9, sex=$10, updated_at=NOW()
		WHERE id = $1`,
		id, info.FirstName, info.MiddleName, info.LastName, info.Suffix,
		info.BirthDate, info.Address, info.Email, info.Phone, info.Sex)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (r *profileRepoPG) UpdateCredentials(ctx context.Context, id uuid.UUID, responderNumber string, organizationID, roleID int) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE profiles SET responder_number=$2, organization_id=$3, responder_role_id=$4, updated_at=NOW()
		WHERE id = $1`,
		id, responderNumber, organizationID, roleID)
	if err != nil {
		return fmt.Errorf("update credentials: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (r *profileRepoPG) ReplaceCertifications(ctx context.Context, id uuid.UUID, certificationIDs []int) error {
	q := r.conn(ctx)
	if _, err := q.Exec(ctx, `DELETE FROM certifications_users WHERE profile_id = $1`, id); err != nil {
		return fmt.Errorf("clear certifications: %w", err)
	}
	for _, cid := range certificationIDs {
		if _, err := q.Exec(ctx,
			`INSERT INTO certifications_users (profile_id, certification_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			id, cid); err != nil {
			return fmt.Errorf("link certification %d: %w", cid, err)
		}
	}
	return nil
}

func (r *profileRepoPG) CertificationsOf(ctx context.Context, id uuid.UUID) ([]Certification, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT c.id, c.name, c.description, c.organization, c.expiry_duration, c.created_at
		FROM certifications c
		JOIN certifications_users cu ON cu.certification_id = c.id
		WHERE cu.profile_id = $1
		ORDER BY c.created_at DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("list profile certifications: %w", err)
	}
	return collectCertifications(rows)
}

// =========== Catalog Repository ===========

type catalogRepoPG struct{ pool db.Querier }

func NewCatalogRepoPG(pool db.Querier) CatalogRepository { return &catalogRepoPG{pool: pool} }

func (r *catalogRepoPG) conn(ctx context.Context) db.Querier { return db.QuerierFrom(ctx, r.pool) }

func (r *catalogRepoPG) GetOrganization(ctx context.Context, id int) (*Organization, error) {
	var o Organization
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, name, description, created_at FROM organizations WHERE id = $1`, id,
	).Scan(&o.ID, &o.Name, &o.Description, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCatalogNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get organization %d: %w", id, err)
	}
	return &o, nil
}

func (r *catalogRepoPG) GetRole(ctx context.Context, id int) (*Role, error) {
	var ro Role
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, title, description, level, shift_type, created_at FROM responder_roles WHERE id = $1`, id,
	).Scan(&ro.ID, &ro.Title, &ro.Description, &ro.Level, &ro.ShiftType, &ro.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCatalogNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get responder role %d: %w", id, err)
	}
	return &ro, nil
}

func (r *catalogRepoPG) ListOrganizations(ctx context.Context) ([]Organization, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, name, description, created_at FROM organizations ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()
	out := []Organization{}
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Description, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *catalogRepoPG) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, title, description, level, shift_type, created_at FROM responder_roles ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list responder roles: %w", err)
	}
	defer rows.Close()
	out := []Role{}
	for rows.Next() {
		var ro Role
		if err := rows.Scan(&ro.ID, &ro.Title, &ro.Description, &ro.Level, &ro.ShiftType, &ro.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ro)
	}
	return out, rows.Err()
}

func (r *catalogRepoPG) ListCertifications(ctx context.Context) ([]Certification, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, name, description, organization, expiry_duration, created_at FROM certifications ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list certifications: %w", err)
	}
	return collectCertifications(rows)
}

func collectCertifications(rows pgx.Rows) ([]Certification, error) {
	defer rows.Close()
	out := []Certification{}
	for rows.Next() {
		var c Certification
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Organization, &c.ExpiryDuration, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
