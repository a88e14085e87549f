package vehicle

import (
	"context"
	"database/sql"
	"fmt"

	"smartgate/internal/platform/database"
	"smartgate/internal/resident/models"
	id "smartgate/pkg/domain"
	txcontext "smartgate/pkg/platform/tx"
)

// PostgresStore persists vehicles in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, v *models.Vehicle) error {
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO vehicles (profile_id, placa, marca, modelo, color, imagen, estado, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		int64(v.ProfileID), v.Plate, v.Make, v.Model, v.Color, v.Image, string(v.Location), v.RegisteredAt,
	).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("create vehicle: %w", database.MapError(err))
	}
	return nil
}

func (s *PostgresStore) ListByProfile(ctx context.Context, profileID id.ProfileID) ([]*models.Vehicle, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT id, profile_id, placa, marca, modelo, color, imagen, estado, registered_at
		FROM vehicles WHERE profile_id = $1 ORDER BY id`, int64(profileID))
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()
	var out []*models.Vehicle
	for rows.Next() {
		var (
			v        models.Vehicle
			location string
		)
		if err := rows.Scan(&v.ID, &v.ProfileID, &v.Plate, &v.Make, &v.Model, &v.Color, &v.Image, &location, &v.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		v.Location = models.LocationStatus(location)
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vehicles: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM vehicles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count vehicles: %w", err)
	}
	return n, nil
}
