package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxCreateRetries = 16

// RedisStore keeps each session in a hash plus a per-user pointer to the
// current token. Expiry is delegated to Redis key TTLs.
type RedisStore struct {
	client    redis.UniversalClient
	ttl       time.Duration
	keyPrefix string
	now       func() time.Time
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "imagecompressor"
	}
	return &RedisStore{client: client, ttl: ttl, keyPrefix: keyPrefix, now: time.Now}
}

func (s *RedisStore) sessionKey(token string) string {
	return s.keyPrefix + ":session:" + token
}

func (s *RedisStore) userKey(email string) string {
	return s.keyPrefix + ":user-session:" + email
}

func (s *RedisStore) Create(ctx context.Context, userEmail string) (*Session, error) {
	session := newSession(userEmail, s.now(), s.ttl)
	userKey := s.userKey(userEmail)

	// optimistic transaction on the user pointer so concurrent logins leave one session
	txf := func(tx *redis.Tx) error {
		previous, err := tx.Get(ctx, userKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if previous != "" {
				pipe.Del(ctx, s.sessionKey(previous))
			}
			pipe.HSet(ctx, s.sessionKey(session.Token),
				"email", session.UserEmail,
				"issuedAt", session.IssuedAt.Unix())
			pipe.Set(ctx, userKey, session.Token, 0)
			if s.ttl > 0 {
				pipe.Expire(ctx, s.sessionKey(session.Token), s.ttl)
				pipe.Expire(ctx, userKey, s.ttl)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxCreateRetries; attempt++ {
		err := s.client.Watch(ctx, txf, userKey)
		if err == nil {
			slog.Debug("RedisStore: session created", "user", userEmail)
			return session, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
	}
	return nil, fmt.Errorf("failed to create session for %s: too much contention", userEmail)
}

func (s *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	values, err := s.client.HGetAll(ctx, s.sessionKey(token)).Result()
	if err != nil {
		return nil, err
	}
	email, ok := values["email"]
	if !ok {
		return nil, ErrSessionNotFound
	}

	issuedAt, err := strconv.ParseInt(values["issuedAt"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", token, err)
	}
	session := &Session{
		Token:     token,
		UserEmail: email,
		IssuedAt:  time.Unix(issuedAt, 0),
	}
	if s.ttl > 0 {
		session.ExpiresAt = session.IssuedAt.Add(s.ttl)
	}
	return session, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	email, err := s.client.HGet(ctx, s.sessionKey(token), "email").Result()
	if errors.Is(err, redis.Nil) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}

	userKey := s.userKey(email)
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, userKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, s.sessionKey(token))
			if current == token {
				pipe.Del(ctx, userKey)
			}
			return nil
		})
		return err
	}, userKey)
}

func (s *RedisStore) DeleteForUser(ctx context.Context, userEmail string) error {
	userKey := s.userKey(userEmail)
	token, err := s.client.Get(ctx, userKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.client.Del(ctx, s.sessionKey(token), userKey).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
