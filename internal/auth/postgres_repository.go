package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"pressgate/internal/identity"
)

// PostgresRepository implements Repository using PostgreSQL, so delegated sessions
// survive restarts and are shared between instances.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateSession inserts a new session into the database.
func (r *PostgresRepository) CreateSession(ctx context.Context, session Session, tokenHash string) error {
	const query = `
		INSERT INTO delegated_sessions (id, subject, claims, session_token_hash, expires_at, created_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	claims, err := json.Marshal(session.Claims)
	if err != nil {
		return fmt.Errorf("encode claims: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		session.ID,
		session.Subject,
		claims,
		tokenHash,
		session.ExpiresAt,
		session.CreatedAt,
		session.UserAgent,
		session.IPAddress,
	)
	return err
}

// FindSessionByTokenHash looks up a session by token hash.
func (r *PostgresRepository) FindSessionByTokenHash(ctx context.Context, tokenHash string) (*Session, error) {
	const query = `
		SELECT id, subject, claims, expires_at, created_at, user_agent, ip_address
		FROM delegated_sessions
		WHERE session_token_hash = $1
	`

	var row sessionRow
	if err := r.db.GetContext(ctx, &row, query, tokenHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return row.toSession()
}

// DeleteSession removes a session from the database.
func (r *PostgresRepository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM delegated_sessions WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// DeleteExpiredSessions removes all expired sessions.
func (r *PostgresRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	const query = `DELETE FROM delegated_sessions WHERE expires_at <= $1`
	result, err := r.db.ExecContext(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// sessionRow is a database row representation of Session.
type sessionRow struct {
	ID        uuid.UUID `db:"id"`
	Subject   string    `db:"subject"`
	Claims    []byte    `db:"claims"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
	UserAgent string    `db:"user_agent"`
	IPAddress string    `db:"ip_address"`
}

func (r *sessionRow) toSession() (*Session, error) {
	var claims identity.Claims
	if len(r.Claims) > 0 {
		if err := json.Unmarshal(r.Claims, &claims); err != nil {
			return nil, fmt.Errorf("decode claims: %w", err)
		}
	}
	return &Session{
		ID:        r.ID,
		Subject:   r.Subject,
		Claims:    claims,
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
		UserAgent: r.UserAgent,
		IPAddress: r.IPAddress,
	}, nil
}
