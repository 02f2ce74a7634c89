package cases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ems/casebook/internal/platform/db"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// =========== Case Repository ===========

type caseRepoPG struct{ pool db.Querier }

func NewCaseRepoPG(pool db.Querier) CaseRepository { return &caseRepoPG{pool: pool} }

func (r *caseRepoPG) conn(ctx context.Context) db.Querier { return db.QuerierFrom(ctx, r.pool) }

const caseCols = `id, case_number, patient_number, cause, description, location, latitude, longitude,
	date_recorded::text, time_recorded::text, interventions, status, status_description,
	responder_id, created_at`

func scanCase(row pgx.Row) (*Case, error) {
	var c Case
	err := row.Scan(&c.ID, &c.CaseNumber, &c.PatientNumber, &c.Cause, &c.Description, &c.Location,
		&c.Latitude, &c.Longitude, &c.DateRecorded, &c.TimeRecorded, &c.Interventions, &c.Status,
		&c.StatusDescription, &c.ResponderID, &c.CreatedAt)
	return &c, err
}

func (r *caseRepoPG) Create(ctx context.Context, c *Case) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO cases (id, case_number, patient_number, cause, description, location, latitude, longitude,
			date_recorded, time_recorded, interventions, status, status_description, responder_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::text::date,$10::text::time,$11,$12,$13,$14)
		RETURNING created_at`,
		c.ID, c.CaseNumber, c.PatientNumber, c.Cause, c.Description, c.Location, c.Latitude, c.Longitude,
		c.DateRecorded, c.TimeRecorded, c.Interventions, c.Status, c.StatusDescription, c.ResponderID,
	).Scan(&c.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateNumber
	}
	if err != nil {
		return fmt.Errorf("insert case %s: %w", c.CaseNumber, err)
	}
	return nil
}

func (r *caseRepoPG) GetByNumber(ctx context.Context, caseNumber string) (*Case, error) {
	c, err := scanCase(r.conn(ctx).QueryRow(ctx, `SELECT `+caseCols+` FROM cases WHERE case_number = $1`, caseNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get case %s: %w", caseNumber, err)
	}
	return c, nil
}

func (r *caseRepoPG) list(ctx context.Context, sql string, args ...interface{}) ([]Case, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()
	out := []Case{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *caseRepoPG) ListAll(ctx context.Context) ([]Case, error) {
	return r.list(ctx, `SELECT `+caseCols+` FROM cases ORDER BY created_at DESC`)
}

func (r *caseRepoPG) Recent(ctx context.Context, limit int) ([]Case, error) {
	return r.list(ctx, `SELECT `+caseCols+` FROM cases ORDER BY date_recorded DESC, time_recorded DESC LIMIT $1`, limit)
}

func (r *caseRepoPG) UpdateStatus(ctx context.Context, caseNumber string, status Status, description *string) (*Case, error) {
	c, err := scanCase(r.conn(ctx).QueryRow(ctx, `
		UPDATE cases SET status = $2, status_description = $3
		WHERE case_number = $1
		RETURNING `+caseCols, caseNumber, status, description))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update case %s status: %w", caseNumber, err)
	}
	return c, nil
}

func (r *caseRepoPG) CountRecorded(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM cases WHERE date_recorded >= $1::text::date AND date_recorded < $2::text::date`,
		from.Format(time.DateOnly), to.Format(time.DateOnly)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count cases: %w", err)
	}
	return n, nil
}

// =========== Injury Repository ===========

type injuryRepoPG struct{ pool db.Querier }

func NewInjuryRepoPG(pool db.Querier) InjuryRepository { return &injuryRepoPG{pool: pool} }

func (r *injuryRepoPG) conn(ctx context.Context) db.Querier { return db.QuerierFrom(ctx, r.pool) }

func (r *injuryRepoPG) Create(ctx context.Context, in *Injury) error {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO injuries (id, case_number, patient_number, location, type, severity, side, description, x, y)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at`,
		in.ID, in.CaseNumber, in.PatientNumber, in.Location, in.Type, in.Severity, in.Side,
		in.Description, in.X, in.Y).Scan(&in.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert injury for %s: %w", in.CaseNumber, err)
	}
	return nil
}

func (r *injuryRepoPG) ListByCase(ctx context.Context, caseNumber, patientNumber string) ([]Injury, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, case_number, patient_number, location, type, severity, side, description, x, y, created_at
		FROM injuries WHERE case_number = $1 AND patient_number = $2
		ORDER BY created_at`, caseNumber, patientNumber)
	if err != nil {
		return nil, fmt.Errorf("list injuries for %s: %w", caseNumber, err)
	}
	defer rows.Close()
	out := []Injury{}
	for rows.Next() {
		var in Injury
		if err := rows.Scan(&in.ID, &in.CaseNumber, &in.PatientNumber, &in.Location, &in.Type, &in.Severity,
			&in.Side, &in.Description, &in.X, &in.Y, &in.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// =========== Catalog Repository ===========

type catalogRepoPG struct{ pool db.Querier }

func NewCatalogRepoPG(pool db.Querier) CatalogRepository { return &catalogRepoPG{pool: pool} }

func (r *catalogRepoPG) conn(ctx context.Context) db.Querier { return db.QuerierFrom(ctx, r.pool) }

func (r *catalogRepoPG) interventions(ctx context.Context, sql string, args ...interface{}) ([]Intervention, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list interventions: %w", err)
	}
	defer rows.Close()
	out := []Intervention{}
	for rows.Next() {
		var i Intervention
		if err := rows.Scan(&i.ID, &i.Value, &i.Title, &i.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (r *catalogRepoPG) ListInterventions(ctx context.Context) ([]Intervention, error) {
	return r.interventions(ctx, `SELECT id, value, title, created_at FROM interventions ORDER BY created_at DESC, id DESC`)
}

func (r *catalogRepoPG) InterventionsByValue(ctx context.Context, values []string) (map[string]Intervention, error) {
	items, err := r.interventions(ctx,
		`SELECT id, value, title, created_at FROM interventions WHERE value = ANY($1)`, values)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Intervention, len(items))
	for _, i := range items {
		out[i.Value] = i
	}
	return out, nil
}

func (r *catalogRepoPG) ListInjuryTypes(ctx context.Context) ([]InjuryTypeItem, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, name, description, created_at FROM injury_type ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list injury types: %w", err)
	}
	defer rows.Close()
	out := []InjuryTypeItem{}
	for rows.Next() {
		var t InjuryTypeItem
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
