package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	failedPrincipalSuffix = ":failed_principal"
	loggedOutSuffix       = ":logged_out"
)

// FlagStore keeps the per-browser-session advisory flags in Redis. The keys
// carry their own TTL so abandoned sessions don't leak flags.
type FlagStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewFlagStore creates a FlagStore whose keys expire after ttl. The ttl should
// match the session lifetime so a flag never outlives the session it guards.
func NewFlagStore(client redis.UniversalClient, ttl time.Duration) *FlagStore {
	return NewFlagStoreWithPrefix(client, "session_flag:", ttl)
}

// NewFlagStoreWithPrefix creates a FlagStore with a custom key prefix.
func NewFlagStoreWithPrefix(client redis.UniversalClient, prefix string, ttl time.Duration) *FlagStore {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &FlagStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// FailedPrincipal returns the principal recorded by the last failed SSO
// attempt for this session, or "" when none is recorded.
func (s *FlagStore) FailedPrincipal(ctx context.Context, sessionKey string) (string, error) {
	if sessionKey == "" {
		return "", errors.New("session key cannot be empty")
	}

	val, err := s.client.Get(ctx, s.prefix+sessionKey+failedPrincipalSuffix).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

func (s *FlagStore) SetFailedPrincipal(ctx context.Context, sessionKey, principal string) error {
	if sessionKey == "" {
		return errors.New("session key cannot be empty")
	}
	return s.client.Set(ctx, s.prefix+sessionKey+failedPrincipalSuffix, principal, s.ttl).Err()
}

func (s *FlagStore) ClearFailedPrincipal(ctx context.Context, sessionKey string) error {
	if sessionKey == "" {
		return nil // Nothing to clear
	}
	return s.client.Del(ctx, s.prefix+sessionKey+failedPrincipalSuffix).Err()
}

// LoggedOut reports whether the user of this session logged out manually.
// A missing key reads as false.
func (s *FlagStore) LoggedOut(ctx context.Context, sessionKey string) (bool, error) {
	if sessionKey == "" {
		return false, errors.New("session key cannot be empty")
	}

	val, err := s.client.Get(ctx, s.prefix+sessionKey+loggedOutSuffix).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get: %w", err)
	}
	return val == "1", nil
}

func (s *FlagStore) SetLoggedOut(ctx context.Context, sessionKey string, loggedOut bool) error {
	if sessionKey == "" {
		return errors.New("session key cannot be empty")
	}

	key := s.prefix + sessionKey + loggedOutSuffix
	if !loggedOut {
		return s.client.Del(ctx, key).Err()
	}
	return s.client.Set(ctx, key, "1", s.ttl).Err()
}
