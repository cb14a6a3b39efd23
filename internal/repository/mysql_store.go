package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/party-booking/internal/model"
)

// MySQLStore is the authoritative relational backend.  Rows are keyed by
// id; updates and deletes fall back to the natural key when the id is not
// known to this table (e.g. a record first seen in the spreadsheet).
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore returns a MySQLStore bound to the given database.
func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

func (s *MySQLStore) Name() string { return SourceDatabase }

const reservationColumns = `id, event_date, event_time, customer_name, customer_phone, child_name,
	package_tier, total_amount, deposit_amount, remaining_amount, is_paid, notes, created_at`

// naturalKeyWhere matches the normalized natural key.
const naturalKeyWhere = `event_date = ? AND LOWER(TRIM(customer_name)) = ? AND LOWER(TRIM(customer_phone)) = ?`

// List returns every reservation ordered by date then id.
func (s *MySQLStore) List(ctx context.Context) ([]model.Reservation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+reservationColumns+` FROM reservations ORDER BY event_date, id`)
	if err != nil {
		return nil, s.classify("list", err)
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		var (
			r       model.Reservation
			date    time.Time
			tier    string
			notes   sql.NullString
			created time.Time
		)
		if err := rows.Scan(
			&r.ID, &date, &r.Time, &r.CustomerName, &r.CustomerPhone, &r.ChildName,
			&tier, &r.TotalAmount, &r.DepositAmount, &r.RemainingAmount, &r.IsPaid, &notes, &created,
		); err != nil {
			return nil, newError(s.Name(), "list", ErrSchemaMismatch, err)
		}
		r.Date = date.UTC().Format(model.DateLayout)
		if r.Package, err = model.ParsePackageTier(tier); err != nil {
			return nil, newError(s.Name(), "list", ErrSchemaMismatch, fmt.Errorf("reservation %s: package %q: %w", r.ID, tier, err))
		}
		if notes.Valid {
			r.Notes = notes.String
		}
		r.CreatedAt = created.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify("list", err)
	}
	return out, nil
}

// Create inserts a new reservation row.
func (s *MySQLStore) Create(ctx context.Context, r model.Reservation) error {
	const q = `INSERT INTO reservations (` + reservationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		r.ID, r.Date, r.Time, r.CustomerName, r.CustomerPhone, r.ChildName,
		string(r.Package), r.TotalAmount, r.DepositAmount, r.RemainingAmount, r.IsPaid, nullString(r.Notes), r.CreatedAt.UTC(),
	)
	if err != nil {
		return s.classify("create", err)
	}
	return nil
}

// Update replaces every mutable column of the matching row.  id and
// created_at are never rewritten.
func (s *MySQLStore) Update(ctx context.Context, r model.Reservation) error {
	const set = `UPDATE reservations SET event_date = ?, event_time = ?, customer_name = ?, customer_phone = ?,
	child_name = ?, package_tier = ?, total_amount = ?, deposit_amount = ?, remaining_amount = ?, is_paid = ?, notes = ? WHERE `
	args := []any{
		r.Date, r.Time, r.CustomerName, r.CustomerPhone, r.ChildName,
		string(r.Package), r.TotalAmount, r.DepositAmount, r.RemainingAmount, r.IsPaid, nullString(r.Notes),
	}
	return s.execByKey(ctx, "update", set, args, KeyOf(r))
}

// Delete removes the matching row.
func (s *MySQLStore) Delete(ctx context.Context, key Key) error {
	return s.execByKey(ctx, "delete", `DELETE FROM reservations WHERE `, nil, key)
}

// execByKey runs the statement against the id first and the natural key
// second, reporting ErrNotFound when neither matched a row.
func (s *MySQLStore) execByKey(ctx context.Context, op, stmt string, args []any, key Key) error {
	if key.ID != "" {
		n, err := s.exec(ctx, stmt+`id = ?`, append(append([]any{}, args...), key.ID)...)
		if err != nil {
			return s.classify(op, err)
		}
		if n > 0 {
			return nil
		}
	}
	if !key.Natural.IsZero() {
		nk := key.Natural
		n, err := s.exec(ctx, stmt+naturalKeyWhere, append(append([]any{}, args...), nk.Date, nk.CustomerName, nk.CustomerPhone)...)
		if err != nil {
			return s.classify(op, err)
		}
		if n > 0 {
			return nil
		}
	}
	return newError(s.Name(), op, ErrNotFound, nil)
}

func (s *MySQLStore) exec(ctx context.Context, q string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// classify maps driver errors onto repository kinds.
func (s *MySQLStore) classify(op string, err error) error {
	if cerr := wrapContext(s.Name(), op, err); cerr != nil {
		return cerr
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case 1062: // duplicate entry
			return newError(s.Name(), op, ErrConflict, err)
		case 1054, 1146, 1364, 1406: // unknown column, missing table, no default, data too long
			return newError(s.Name(), op, ErrSchemaMismatch, err)
		case 1044, 1045, 1142, 1143: // access denied variants
			return newError(s.Name(), op, ErrPermissionDenied, err)
		}
	}
	// driver.ErrBadConn, refused connections and the rest are transport trouble
	return newError(s.Name(), op, ErrUnavailable, err)
}

func nullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
