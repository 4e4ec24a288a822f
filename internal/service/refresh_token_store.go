package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RefreshTokenStore registra los jti vivos de cada usuario.
// Owner devuelve "" cuando el jti no existe, expiró o fue revocado.
type RefreshTokenStore interface {
	Save(ctx context.Context, jti, userID string, ttl time.Duration) error
	Owner(ctx context.Context, jti string) (string, error)
	Revoke(ctx context.Context, jti string) error
	RevokeUser(ctx context.Context, userID string) error
}

const defaultRefreshTTL = 30 * 24 * time.Hour

type refreshEntry struct {
	userID  string
	expires time.Time
}

type memoryRefreshTokenStore struct {
	mu     sync.Mutex
	now    func() time.Time
	tokens map[string]refreshEntry
	byUser map[string]map[string]struct{}
}

// NewMemoryRefreshTokenStore se usa cuando no hay redis; no sobrevive reinicios.
func NewMemoryRefreshTokenStore() RefreshTokenStore {
	return newMemoryRefreshTokenStore(func() time.Time { return time.Now().UTC() })
}

func newMemoryRefreshTokenStore(now func() time.Time) *memoryRefreshTokenStore {
	return &memoryRefreshTokenStore{
		now:    now,
		tokens: make(map[string]refreshEntry),
		byUser: make(map[string]map[string]struct{}),
	}
}

func (s *memoryRefreshTokenStore) Save(_ context.Context, jti, userID string, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" || userID == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultRefreshTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[jti] = refreshEntry{userID: userID, expires: s.now().Add(ttl)}
	set, ok := s.byUser[userID]
	if !ok {
		set = make(map[string]struct{})
		s.byUser[userID] = set
	}
	set[jti] = struct{}{}
	return nil
}

func (s *memoryRefreshTokenStore) Owner(_ context.Context, jti string) (string, error) {
	jti = strings.TrimSpace(jti)
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tokens[jti]
	if !ok {
		return "", nil
	}
	if s.now().After(entry.expires) {
		s.dropLocked(jti, entry.userID)
		return "", nil
	}
	return entry.userID, nil
}

func (s *memoryRefreshTokenStore) Revoke(_ context.Context, jti string) error {
	jti = strings.TrimSpace(jti)
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.tokens[jti]; ok {
		s.dropLocked(jti, entry.userID)
	}
	return nil
}

func (s *memoryRefreshTokenStore) RevokeUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for jti := range s.byUser[userID] {
		delete(s.tokens, jti)
	}
	delete(s.byUser, userID)
	return nil
}

func (s *memoryRefreshTokenStore) dropLocked(jti, userID string) {
	delete(s.tokens, jti)
	if set, ok := s.byUser[userID]; ok {
		delete(set, jti)
		if len(set) == 0 {
			delete(s.byUser, userID)
		}
	}
}

type redisRefreshClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// redisRefreshTokenStore guarda rmi:refresh:<jti> -> userID y un set por usuario
// (rmi:refresh:user:<id>) para poder revocar todas sus sesiones.
type redisRefreshTokenStore struct {
	client  redisRefreshClient
	prefix  string
	timeout time.Duration
}

func NewRedisRefreshTokenStore(client *redis.Client) RefreshTokenStore {
	if client == nil {
		return nil
	}
	return &redisRefreshTokenStore{client: client, prefix: "rmi:refresh:", timeout: 500 * time.Millisecond}
}

func (s *redisRefreshTokenStore) tokenKey(jti string) string   { return s.prefix + jti }
func (s *redisRefreshTokenStore) userKey(userID string) string { return s.prefix + "user:" + userID }

func (s *redisRefreshTokenStore) Save(ctx context.Context, jti, userID string, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" || userID == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultRefreshTTL
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Set(ctx, s.tokenKey(jti), userID, ttl).Err(); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	if err := s.client.SAdd(ctx, s.userKey(userID), jti).Err(); err != nil {
		return fmt.Errorf("index refresh token: %w", err)
	}
	// El set vive lo mismo que el token más reciente.
	if err := s.client.Expire(ctx, s.userKey(userID), ttl).Err(); err != nil {
		return fmt.Errorf("expire refresh index: %w", err)
	}
	return nil
}

func (s *redisRefreshTokenStore) Owner(ctx context.Context, jti string) (string, error) {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	userID, err := s.client.Get(ctx, s.tokenKey(jti)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup refresh token: %w", err)
	}
	return userID, nil
}

func (s *redisRefreshTokenStore) Revoke(ctx context.Context, jti string) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	userID, err := s.Owner(ctx, jti)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Del(ctx, s.tokenKey(jti)).Err(); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if userID != "" {
		if err := s.client.SRem(ctx, s.userKey(userID), jti).Err(); err != nil {
			return fmt.Errorf("unindex refresh token: %w", err)
		}
	}
	return nil
}

func (s *redisRefreshTokenStore) RevokeUser(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	jtis, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list refresh tokens: %w", err)
	}
	keys := make([]string, 0, len(jtis)+1)
	for _, jti := range jtis {
		keys = append(keys, s.tokenKey(jti))
	}
	keys = append(keys, s.userKey(userID))
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}
