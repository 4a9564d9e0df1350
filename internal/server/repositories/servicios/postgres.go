// Package servicios provides the PostgreSQL-backed repository for the
// service table.
package servicios

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/servicios/internal/common"
	"github.com/dmitrijs2005/servicios/internal/dbx"
	"github.com/dmitrijs2005/servicios/internal/server/models"
)

// PostgresRepository implements servicio storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Save inserts the servicio when it has no ID and returns it with the
// generated ID. A servicio that carries an ID is upserted: an existing row is
// overwritten, a missing one is inserted under that ID and the sequence is
// moved past it. The argument is never modified.
func (r *PostgresRepository) Save(ctx context.Context, servicio *models.Servicio) (*models.Servicio, error) {
	saved := *servicio

	if !servicio.HasID() {
		query := `
			INSERT INTO service (name, description, price, icon_key, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING service_id
		`
		var id int64
		err := r.db.QueryRowContext(ctx, query,
			servicio.Name, servicio.Description, servicio.Price, servicio.IconKey, servicio.Status).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("insert servicio: %w", err)
		}
		saved.ID = &id
		return &saved, nil
	}

	query := `
		INSERT INTO service (service_id, name, description, price, icon_key, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (service_id)
		DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			icon_key = EXCLUDED.icon_key,
			status = EXCLUDED.status
	`
	_, err := r.db.ExecContext(ctx, query,
		*servicio.ID, servicio.Name, servicio.Description, servicio.Price, servicio.IconKey, servicio.Status)
	if err != nil {
		return nil, fmt.Errorf("upsert servicio: %w", err)
	}

	// keeps generated IDs from colliding with explicitly inserted ones
	_, err = r.db.ExecContext(ctx,
		`SELECT setval(pg_get_serial_sequence('service', 'service_id'), (SELECT MAX(service_id) FROM service))`)
	if err != nil {
		return nil, fmt.Errorf("advance servicio sequence: %w", err)
	}

	id := *servicio.ID
	saved.ID = &id
	return &saved, nil
}

// FindAll returns every servicio ordered by ID. The result is empty, not
// nil, when the table is empty.
func (r *PostgresRepository) FindAll(ctx context.Context) ([]models.Servicio, error) {
	query := `
		SELECT service_id, name, description, price, icon_key, status
		FROM service
		ORDER BY service_id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select servicios: %w", err)
	}
	defer rows.Close()

	result := make([]models.Servicio, 0)
	for rows.Next() {
		s, err := scanServicio(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning servicio: %w", err)
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// FindByID returns common.ErrorNotFound when no row has the given ID.
func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.Servicio, error) {
	query := `
		SELECT service_id, name, description, price, icon_key, status
		FROM service
		WHERE service_id = $1
	`
	s, err := scanServicio(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select servicio: %w", err)
	}
	return s, nil
}

// DeleteByID removes the row if present; deleting a missing ID is not an error.
func (r *PostgresRepository) DeleteByID(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM service WHERE service_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete servicio: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanServicio(row scanner) (*models.Servicio, error) {
	var (
		s  models.Servicio
		id int64
	)
	if err := row.Scan(&id, &s.Name, &s.Description, &s.Price, &s.IconKey, &s.Status); err != nil {
		return nil, err
	}
	s.ID = &id
	return &s, nil
}
