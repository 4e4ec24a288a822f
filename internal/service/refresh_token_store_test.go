package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeRedisRefresh implementa lo mínimo de redis en memoria, sin TTL.
type fakeRedisRefresh struct {
	kv   map[string]string
	sets map[string]map[string]struct{}
	ttls map[string]time.Duration
	err  error
}

func newFakeRedisRefresh() *fakeRedisRefresh {
	return &fakeRedisRefresh{
		kv:   map[string]string{},
		sets: map[string]map[string]struct{}{},
		ttls: map[string]time.Duration{},
	}
}

func (f *fakeRedisRefresh) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.kv[key] = value.(string)
	f.ttls[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedisRefresh) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	v, ok := f.kv[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (f *fakeRedisRefresh) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.kv[k]; ok {
			delete(f.kv, k)
			n++
		}
		if _, ok := f.sets[k]; ok {
			delete(f.sets, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func (f *fakeRedisRefresh) SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	set, ok := f.sets[key]
	if !ok {
		set = map[string]struct{}{}
		f.sets[key] = set
	}
	for _, m := range members {
		set[m.(string)] = struct{}{}
	}
	cmd.SetVal(int64(len(members)))
	return cmd
}

func (f *fakeRedisRefresh) SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	for _, m := range members {
		delete(f.sets[key], m.(string))
	}
	cmd.SetVal(int64(len(members)))
	return cmd
}

func (f *fakeRedisRefresh) SMembers(ctx context.Context, key string) *redis.StringSliceCmd {
	cmd := redis.NewStringSliceCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	var out []string
	for m := range f.sets[key] {
		out = append(out, m)
	}
	cmd.SetVal(out)
	return cmd
}

func (f *fakeRedisRefresh) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	f.ttls[key] = expiration
	cmd.SetVal(true)
	return cmd
}

func TestMemoryRefreshTokenStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := newMemoryRefreshTokenStore(func() time.Time { return now })

	if owner, err := store.Owner(ctx, "missing"); err != nil || owner != "" {
		t.Fatalf("expected empty owner, got %q,%v", owner, err)
	}
	if err := store.Save(ctx, "jti-1", "u1", time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}
	if owner, _ := store.Owner(ctx, "jti-1"); owner != "u1" {
		t.Fatalf("expected owner u1, got %q", owner)
	}

	now = now.Add(2 * time.Minute)
	if owner, _ := store.Owner(ctx, "jti-1"); owner != "" {
		t.Fatalf("expected expired token, got owner %q", owner)
	}
	if len(store.byUser) != 0 {
		t.Fatalf("expected user index cleaned, got %v", store.byUser)
	}
}

func TestMemoryRefreshTokenStore_RevokeUser(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRefreshTokenStore(time.Now)
	_ = store.Save(ctx, "a", "u1", time.Hour)
	_ = store.Save(ctx, "b", "u1", time.Hour)
	_ = store.Save(ctx, "c", "u2", time.Hour)
	_ = store.Save(ctx, "", "u2", time.Hour)

	if err := store.Revoke(ctx, "a"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if owner, _ := store.Owner(ctx, "a"); owner != "" {
		t.Fatalf("expected a revoked")
	}
	if err := store.RevokeUser(ctx, "u1"); err != nil {
		t.Fatalf("revoke user: %v", err)
	}
	if owner, _ := store.Owner(ctx, "b"); owner != "" {
		t.Fatalf("expected b revoked with its user")
	}
	if owner, _ := store.Owner(ctx, "c"); owner != "u2" {
		t.Fatalf("other users must keep their sessions, got %q", owner)
	}
}

func TestRedisRefreshTokenStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedisRefresh()
	store := &redisRefreshTokenStore{client: fake, prefix: "rmi:refresh:", timeout: time.Second}

	if err := store.Save(ctx, " j1 ", "u1", 0); err != nil {
		t.Fatalf("save: %v", err)
	}
	if fake.kv["rmi:refresh:j1"] != "u1" {
		t.Fatalf("unexpected keys: %v", fake.kv)
	}
	if fake.ttls["rmi:refresh:j1"] != defaultRefreshTTL || fake.ttls["rmi:refresh:user:u1"] != defaultRefreshTTL {
		t.Fatalf("expected default ttl fallback, got %v", fake.ttls)
	}
	_ = store.Save(ctx, "j2", "u1", time.Hour)

	if owner, err := store.Owner(ctx, "j1"); err != nil || owner != "u1" {
		t.Fatalf("expected owner u1, got %q,%v", owner, err)
	}
	if err := store.Revoke(ctx, "j1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, ok := fake.sets["rmi:refresh:user:u1"]["j1"]; ok {
		t.Fatalf("expected j1 removed from user index")
	}
	if owner, _ := store.Owner(ctx, "j1"); owner != "" {
		t.Fatalf("expected j1 gone, got %q", owner)
	}

	if err := store.RevokeUser(ctx, "u1"); err != nil {
		t.Fatalf("revoke user: %v", err)
	}
	if len(fake.kv) != 0 || len(fake.sets) != 0 {
		t.Fatalf("expected all keys removed, kv=%v sets=%v", fake.kv, fake.sets)
	}
}

func TestRedisRefreshTokenStore_Errors(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedisRefresh()
	fake.err = errors.New("connection refused")
	store := &redisRefreshTokenStore{client: fake, prefix: "rmi:refresh:", timeout: time.Second}

	if err := store.Save(ctx, "", "u1", time.Minute); err != nil {
		t.Fatalf("blank jti must be a no-op, got %v", err)
	}
	if err := store.Save(ctx, "j1", "u1", time.Minute); err == nil {
		t.Fatalf("expected save error")
	}
	if _, err := store.Owner(ctx, "j1"); err == nil {
		t.Fatalf("expected lookup error")
	}
	if err := store.RevokeUser(ctx, "u1"); err == nil {
		t.Fatalf("expected revoke user error")
	}
}
