// Package postgres provides the Postgres-backed session store, selected
// when sessions must survive a Redis flush. It stores the session JSON
// blob in a versioned row and enforces the same compare-and-swap update
// contract as the Redis store.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/xeroflow/xeroflow/internal/domain/auth"
	apperrors "github.com/xeroflow/xeroflow/internal/errors"
	"github.com/xeroflow/xeroflow/internal/ports"
)

// SessionStore persists sessions in the sessions table.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates a Postgres-based session store. The caller
// owns the database handle and its lifecycle.
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	data, err := encode(sess)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, data, version, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET data = EXCLUDED.data,
		    version = EXCLUDED.version,
		    expires_at = EXCLUDED.expires_at
	`, sess.ID, data, sess.Version, sess.ExpiresAt)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

func (s *SessionStore) Update(ctx context.Context, sess domainauth.Session) error {
	data, err := encode(sess)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET data = $2, version = $3, expires_at = $4
		WHERE id = $1 AND version < $3
	`, sess.ID, data, sess.Version, sess.ExpiresAt)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Nothing matched: either the row is gone or the stored version is
	// already at or past ours.
	var stored int64
	err = s.db.QueryRowContext(ctx, `SELECT version FROM sessions WHERE id = $1`, sess.ID).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case err != nil:
		return apperrors.MapDBError(err)
	default:
		return apperrors.Conflict("stale session update")
	}
}

func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, ErrNotFound
	}

	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM sessions WHERE id = $1 AND expires_at > now()
	`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domainauth.Session{}, ErrNotFound
	}
	if err != nil {
		return domainauth.Session{}, apperrors.MapDBError(err)
	}

	var sess domainauth.Session
	if unmarshalErr := json.Unmarshal(data, &sess); unmarshalErr != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session: %w", unmarshalErr)
	}
	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// DeleteExpired removes sessions past their expiry and returns how many
// rows were reaped. Run it periodically; Get already filters expired
// rows, so this only reclaims space.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, apperrors.MapDBError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return affected, nil
}

func encode(sess domainauth.Session) ([]byte, error) {
	if sess.ID == "" {
		return nil, errors.New("session ID cannot be empty")
	}
	if !sess.ExpiresAt.After(time.Now()) {
		return nil, errors.New("session is expired")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	return data, nil
}

// ErrNotFound aliases the shared session store sentinel.
var ErrNotFound = ports.ErrSessionNotFound
