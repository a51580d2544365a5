package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"markers-api/internal/db"
	"markers-api/internal/marker/domain"
	userdomain "markers-api/internal/user/domain"
)

const markerSelect = `SELECT m.id, m.title, m.description, m.latitude, m.longitude, m.address, m.image_url,
	m.user_id, m.created_at, m.updated_at, u.id, u.name, u.email, u.avatar
	FROM markers m JOIN users u ON u.id = m.user_id`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a marker repository that uses the given pool for persistence.
func NewPostgresRepository(pool db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: pool}
}

// GetByID returns the marker for id with its owner, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Marker, error) {
	m, err := scanMarker(r.db.QueryRow(ctx, markerSelect+` WHERE m.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("MARKER_GET_FAILED").With("id", id).Wrap(err)
	}
	return m, nil
}

// List returns a page of markers matching f, newest first.
func (r *PostgresRepository) List(ctx context.Context, f Filter, limit, offset int) ([]*domain.Marker, error) {
	where, args := whereClause(f)
	args = append(args, limit, offset)
	q := markerSelect + where + ` ORDER BY m.created_at DESC, m.id DESC LIMIT $` +
		strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, oops.Code("MARKER_LIST_FAILED").With("limit", limit).With("offset", offset).Wrap(err)
	}
	defer rows.Close()

	out := make([]*domain.Marker, 0, limit)
	for rows.Next() {
		m, err := scanMarker(rows)
		if err != nil {
			return nil, oops.Code("MARKER_SCAN_FAILED").Wrap(err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("MARKER_ROWS_ERROR").Wrap(err)
	}
	return out, nil
}

// Count returns how many markers match f.
func (r *PostgresRepository) Count(ctx context.Context, f Filter) (int64, error) {
	where, args := whereClause(f)
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM markers m`+where, args...).Scan(&n); err != nil {
		return 0, oops.Code("MARKER_COUNT_FAILED").Wrap(err)
	}
	return n, nil
}

// Create persists the marker. The marker must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, m *domain.Marker) error {
	if err := m.Validate(); err != nil {
		return oops.Code("MARKER_INVALID").Wrap(err)
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO markers (id, title, description, latitude, longitude, address, image_url, user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.Title, m.Description, m.Latitude, m.Longitude, m.Address, m.ImageURL, m.UserID, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return oops.Code("MARKER_CREATE_FAILED").With("id", m.ID).Wrap(err)
	}
	return nil
}

// Update writes the mutable fields of m. Ownership is never changed.
func (r *PostgresRepository) Update(ctx context.Context, m *domain.Marker) error {
	_, err := r.db.Exec(ctx,
		`UPDATE markers SET title = $2, description = $3, latitude = $4, longitude = $5,
		 address = $6, image_url = $7, updated_at = $8 WHERE id = $1`,
		m.ID, m.Title, m.Description, m.Latitude, m.Longitude, m.Address, m.ImageURL, m.UpdatedAt)
	if err != nil {
		return oops.Code("MARKER_UPDATE_FAILED").With("id", m.ID).Wrap(err)
	}
	return nil
}

// Delete removes the marker. Deleting a missing marker is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM markers WHERE id = $1`, id); err != nil {
		return oops.Code("MARKER_DELETE_FAILED").With("id", id).Wrap(err)
	}
	return nil
}

func whereClause(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.UserID != "" {
		conds = append(conds, "m.user_id = "+next(f.UserID))
	}
	if f.Box != nil {
		conds = append(conds,
			"m.latitude BETWEEN "+next(f.Box.MinLat)+" AND "+next(f.Box.MaxLat),
			"m.longitude BETWEEN "+next(f.Box.MinLng)+" AND "+next(f.Box.MaxLng),
		)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanMarker(row pgx.Row) (*domain.Marker, error) {
	var (
		m     domain.Marker
		owner userdomain.Summary
	)
	if err := row.Scan(&m.ID, &m.Title, &m.Description, &m.Latitude, &m.Longitude, &m.Address, &m.ImageURL,
		&m.UserID, &m.CreatedAt, &m.UpdatedAt, &owner.ID, &owner.Name, &owner.Email, &owner.Avatar); err != nil {
		return nil, err
	}
	m.Owner = &owner
	return &m, nil
}
