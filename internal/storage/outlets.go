package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflict")
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const outletColumns = "outlet_id, outlet_name, address, city, state, postcode, latitude, longitude, phone, operating_hours, has_drive_thru, has_wifi, seating_capacity, opening_date, created_at, updated_at"

// OutletRepository handles outlet persistence and query execution.
type OutletRepository struct {
	db     DB
	driver string // "sqlite" or "postgres"
}

// NewOutletRepository creates a new outlet repository.
func NewOutletRepository(db DB, driver string) *OutletRepository {
	return &OutletRepository{db: db, driver: driver}
}

// Upsert inserts an outlet or updates the existing row with the same name.
func (r *OutletRepository) Upsert(ctx context.Context, outlet *Outlet) error {
	now := time.Now()
	if outlet.CreatedAt.IsZero() {
		outlet.CreatedAt = now
	}
	outlet.UpdatedAt = now

	query := r.rebind(`
		INSERT INTO outlets (outlet_name, address, city, state, postcode, latitude, longitude,
			phone, operating_hours, has_drive_thru, has_wifi, seating_capacity, opening_date,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (outlet_name) DO UPDATE SET
			address = excluded.address,
			city = excluded.city,
			state = excluded.state,
			postcode = excluded.postcode,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			phone = excluded.phone,
			operating_hours = excluded.operating_hours,
			has_drive_thru = excluded.has_drive_thru,
			has_wifi = excluded.has_wifi,
			seating_capacity = excluded.seating_capacity,
			opening_date = excluded.opening_date,
			updated_at = excluded.updated_at
	`)

	_, err := r.db.ExecContext(ctx, query,
		outlet.Name, outlet.Address, outlet.City, outlet.State, outlet.Postcode,
		outlet.Latitude, outlet.Longitude, outlet.Phone, outlet.OperatingHours,
		outlet.HasDriveThru, outlet.HasWifi, outlet.SeatingCapacity, outlet.OpeningDate,
		outlet.CreatedAt, outlet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert outlet %q: %w", outlet.Name, err)
	}
	return nil
}

// GetByID retrieves an outlet by ID.
func (r *OutletRepository) GetByID(ctx context.Context, id int64) (*Outlet, error) {
	query := r.rebind("SELECT " + outletColumns + " FROM outlets WHERE outlet_id = ?")

	outlet := &Outlet{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&outlet.ID, &outlet.Name, &outlet.Address, &outlet.City, &outlet.State,
		&outlet.Postcode, &outlet.Latitude, &outlet.Longitude, &outlet.Phone,
		&outlet.OperatingHours, &outlet.HasDriveThru, &outlet.HasWifi,
		&outlet.SeatingCapacity, &outlet.OpeningDate, &outlet.CreatedAt, &outlet.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return outlet, err
}

// OutletFilter narrows List results.
type OutletFilter struct {
	City  string
	State string
}

// List returns outlets ordered by state, city and name, optionally filtered.
func (r *OutletRepository) List(ctx context.Context, filter OutletFilter) ([]Outlet, error) {
	query := "SELECT " + outletColumns + " FROM outlets"

	var conditions []string
	var args []interface{}

	if filter.City != "" {
		conditions = append(conditions, "LOWER(city) = LOWER(?)")
		args = append(args, filter.City)
	}
	if filter.State != "" {
		conditions = append(conditions, "LOWER(state) = LOWER(?)")
		args = append(args, filter.State)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY state, city, outlet_name"

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list outlets: %w", err)
	}
	defer rows.Close()

	return collectOutlets(rows)
}

// Count returns the number of stored outlets.
func (r *OutletRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM outlets").Scan(&count)
	return count, err
}

// ExecuteSearch runs a generated row query with its ordered bind values.
func (r *OutletRepository) ExecuteSearch(ctx context.Context, query string, binds []interface{}) ([]Outlet, error) {
	// Generated templates select *; pin the column order for scanning.
	query = strings.Replace(query, "SELECT *", "SELECT "+outletColumns, 1)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), binds...)
	if err != nil {
		return nil, fmt.Errorf("execute outlet search: %w", err)
	}
	defer rows.Close()

	return collectOutlets(rows)
}

// ExecuteCount runs a generated count query and returns the single count value.
func (r *OutletRepository) ExecuteCount(ctx context.Context, query string, binds []interface{}) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, r.rebind(query), binds...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("execute outlet count: %w", err)
	}
	return count, nil
}

// collectOutlets scans all rows into outlet values.
func collectOutlets(rows *sql.Rows) ([]Outlet, error) {
	outlets := []Outlet{}
	for rows.Next() {
		var o Outlet
		if err := rows.Scan(
			&o.ID, &o.Name, &o.Address, &o.City, &o.State, &o.Postcode,
			&o.Latitude, &o.Longitude, &o.Phone, &o.OperatingHours,
			&o.HasDriveThru, &o.HasWifi, &o.SeatingCapacity, &o.OpeningDate,
			&o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outlet: %w", err)
		}
		outlets = append(outlets, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outlets: %w", err)
	}
	return outlets, nil
}

// rebind rewrites ? placeholders to $N for postgres.
func (r *OutletRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
