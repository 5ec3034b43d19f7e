// Package redis provides the Redis-backed session store. The session is
// serialized as a JSON blob at this single boundary; TTL follows the
// session expiry.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/xeroflow/xeroflow/internal/domain/auth"
	apperrors "github.com/xeroflow/xeroflow/internal/errors"
	"github.com/xeroflow/xeroflow/internal/ports"
)

// SessionStore is a Redis-based session store for production use.
// It handles TTL semantics automatically based on session ExpiresAt.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
}

// NewSessionStore creates a new Redis-based session store.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return &SessionStore{
		client: client,
		prefix: "session:",
	}
}

// NewSessionStoreWithPrefix creates a Redis session store with a custom key prefix.
func NewSessionStoreWithPrefix(client redis.UniversalClient, prefix string) *SessionStore {
	return &SessionStore{
		client: client,
		prefix: prefix,
	}
}

// updateScript replaces a session only when the incoming version is newer
// than the stored one, so a slow refresh cannot clobber a faster one.
// Returns 1 on replace, 0 on stale write, -1 when the key is gone.
var updateScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
  return -1
end
local stored = cjson.decode(cur)
local version = tonumber(stored['version']) or 0
if version >= tonumber(ARGV[2]) then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', tonumber(ARGV[3]))
return 1
`)

func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	data, ttl, err := s.encode(sess)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, s.prefix+sess.ID, data, ttl).Err()
}

func (s *SessionStore) Update(ctx context.Context, sess domainauth.Session) error {
	data, ttl, err := s.encode(sess)
	if err != nil {
		return err
	}

	res, err := updateScript.Run(ctx, s.client,
		[]string{s.prefix + sess.ID},
		data, sess.Version, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("redis update session: %w", err)
	}

	switch res {
	case 1:
		return nil
	case 0:
		return apperrors.Conflict("stale session update")
	default:
		return ErrNotFound
	}
}

func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, ErrNotFound
	}

	key := s.prefix + id
	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Session{}, ErrNotFound
		}
		return domainauth.Session{}, fmt.Errorf("redis get: %w", err)
	}

	var sess domainauth.Session
	if unmarshalErr := json.Unmarshal([]byte(data), &sess); unmarshalErr != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session: %w", unmarshalErr)
	}

	// Redis TTL normally evicts first; clock skew can leave a stale blob.
	if time.Now().After(sess.ExpiresAt) {
		// Clean up expired session; if cleanup fails bubble the error up.
		if deleteErr := s.Delete(ctx, id); deleteErr != nil {
			return domainauth.Session{}, fmt.Errorf("cleanup expired session: %w", deleteErr)
		}
		return domainauth.Session{}, ErrNotFound
	}

	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil // Nothing to delete
	}

	key := s.prefix + id
	return s.client.Del(ctx, key).Err()
}

func (s *SessionStore) encode(sess domainauth.Session) (string, time.Duration, error) {
	if sess.ID == "" {
		return "", 0, errors.New("session ID cannot be empty")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return "", 0, fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		// Session is already expired, don't save it
		return "", 0, errors.New("session is expired")
	}

	return string(data), ttl, nil
}

// ErrNotFound aliases the shared session store sentinel.
var ErrNotFound = ports.ErrSessionNotFound
