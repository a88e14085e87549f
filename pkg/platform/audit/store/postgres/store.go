package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	id "smartgate/pkg/domain"
	audit "smartgate/pkg/platform/audit"
	txcontext "smartgate/pkg/platform/tx"
)

// Store persists audit events in the audit_events table.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectColumns = `
	SELECT category, created_at, user_id, action, email, request_id, ip, reason, attributes
	FROM audit_events`

// Append inserts an event. It joins the caller's transaction when one is in ctx.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	attrs := event.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	payload, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("marshal audit attributes: %w", err)
	}
	var userID sql.NullInt64
	if !event.UserID.IsNil() {
		userID = sql.NullInt64{Int64: int64(event.UserID), Valid: true}
	}
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}

	_, err = txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO audit_events (category, created_at, user_id, action, email, request_id, ip, reason, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(category), event.Timestamp, userID, event.Action,
		event.Email, event.RequestID, event.IP, event.Reason, payload,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListRecent returns up to limit events, most recent first. A non-positive
// limit returns every event.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	var bound sql.NullInt64
	if limit > 0 {
		bound = sql.NullInt64{Int64: int64(limit), Valid: true}
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY id DESC LIMIT $1`, bound)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event    audit.Event
			category string
			userID   sql.NullInt64
			attrs    []byte
		)
		if err := rows.Scan(&category, &event.Timestamp, &userID, &event.Action,
			&event.Email, &event.RequestID, &event.IP, &event.Reason, &attrs); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		if userID.Valid {
			event.UserID = id.UserID(userID.Int64)
		}
		if len(attrs) > 0 {
			if err := json.Unmarshal(attrs, &event.Attributes); err != nil {
				return nil, fmt.Errorf("decode audit attributes: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
