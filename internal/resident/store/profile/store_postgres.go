package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"smartgate/internal/platform/database"
	"smartgate/internal/resident/models"
	id "smartgate/pkg/domain"
	"smartgate/pkg/platform/sentinel"
	txcontext "smartgate/pkg/platform/tx"
)

// PostgresStore persists resident profiles. A blank national ID is stored as
// NULL so incomplete profiles never collide on the unique index.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const profileColumns = `id, user_id, dni, direccion, telefono, is_active, created_at, updated_at`

func nullableNationalID(nationalID string) sql.NullString {
	v := strings.TrimSpace(nationalID)
	return sql.NullString{String: v, Valid: v != ""}
}

func (s *PostgresStore) Create(ctx context.Context, p *models.Profile) error {
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO resident_profiles (user_id, dni, direccion, telefono, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		int64(p.UserID), nullableNationalID(p.NationalID), p.Address, p.Phone, p.IsActive, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("create resident profile: %w", database.MapError(err))
	}
	return nil
}

func (s *PostgresStore) FindByUserID(ctx context.Context, userID id.UserID) (*models.Profile, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM resident_profiles WHERE user_id = $1`, int64(userID))
	return scanProfile(row)
}

func (s *PostgresStore) Update(ctx context.Context, p *models.Profile) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE resident_profiles SET dni = $2, direccion = $3, telefono = $4, is_active = $5, updated_at = $6
		WHERE id = $1`,
		int64(p.ID), nullableNationalID(p.NationalID), p.Address, p.Phone, p.IsActive, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update resident profile: %w", database.MapError(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Profile, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx,
		`SELECT `+profileColumns+` FROM resident_profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list resident profiles: %w", err)
	}
	defer rows.Close()
	var out []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resident profiles: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*models.Profile, error) {
	var (
		p          models.Profile
		nationalID sql.NullString
	)
	err := row.Scan(&p.ID, &p.UserID, &nationalID, &p.Address, &p.Phone, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan resident profile: %w", err)
	}
	p.NationalID = nationalID.String
	return &p, nil
}
