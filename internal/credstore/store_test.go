package credstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockRedisKVClient struct {
	values map[string]string

	lastSetKey string
	lastSetTTL time.Duration
	lastDel    []string

	getErr error
	setErr error
	delErr error
}

func newMockRedisKVClient() *mockRedisKVClient {
	return &mockRedisKVClient{values: make(map[string]string)}
}

func (m *mockRedisKVClient) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if m.getErr != nil {
		cmd.SetErr(m.getErr)
		return cmd
	}
	v, ok := m.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (m *mockRedisKVClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.lastSetKey = key
	m.lastSetTTL = expiration
	cmd := redis.NewStatusCmd(ctx)
	if m.setErr != nil {
		cmd.SetErr(m.setErr)
		return cmd
	}
	m.values[key] = value.(string)
	cmd.SetVal("OK")
	return cmd
}

func (m *mockRedisKVClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.lastDel = keys
	cmd := redis.NewIntCmd(ctx)
	if m.delErr != nil {
		cmd.SetErr(m.delErr)
		return cmd
	}
	for _, k := range keys {
		delete(m.values, k)
	}
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, KeyUser); err != nil || ok {
		t.Fatalf("expected missing key false,nil; got %v,%v", ok, err)
	}
	for _, k := range []string{KeyUser, KeyAccessExpire, KeyRefreshExpire} {
		if err := store.Set(ctx, k, "value-"+k); err != nil {
			t.Fatalf("set %s failed: %v", k, err)
		}
	}
	v, ok, err := store.Get(ctx, KeyAccessExpire)
	if err != nil || !ok || v != "value-"+KeyAccessExpire {
		t.Fatalf("unexpected get result %q,%v,%v", v, ok, err)
	}

	if err := store.Delete(ctx, SessionKeys...); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	for _, k := range []string{KeyUser, KeyAccessExpire, KeyRefreshExpire} {
		if _, ok, _ := store.Get(ctx, k); ok {
			t.Fatalf("expected %s cleared", k)
		}
	}
}

func TestMemoryStore_Basics(t *testing.T) {
	store := NewMemoryStore()
	exerciseStore(t, store)

	if err := store.Set(context.Background(), " ", "x"); err != nil {
		t.Fatalf("empty key set should be no-op, got %v", err)
	}
	if keys := store.Keys(); len(keys) != 0 {
		t.Fatalf("expected empty store, got %v", keys)
	}
}

func TestFileStore_PlainRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	exerciseStore(t, NewFileStore(path, ""))

	store := NewFileStore(path, "")
	if err := store.Set(context.Background(), KeyUser, `{"userId":7}`); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	reopened := NewFileStore(path, "")
	v, ok, err := reopened.Get(context.Background(), KeyUser)
	if err != nil || !ok || v != `{"userId":7}` {
		t.Fatalf("expected value to survive reopen, got %q,%v,%v", v, ok, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}
}

func TestFileStore_Sealed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store := NewFileStore(path, "correct horse")
	if err := store.Set(context.Background(), KeyUser, "secret-user"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(raw), "secret-user") {
		t.Fatalf("sealed file must not contain plaintext")
	}

	if _, _, err := NewFileStore(path, "").Get(context.Background(), KeyUser); !errors.Is(err, ErrSealed) {
		t.Fatalf("expected ErrSealed without passphrase, got %v", err)
	}
	if _, _, err := NewFileStore(path, "wrong").Get(context.Background(), KeyUser); !errors.Is(err, ErrOpenFailed) {
		t.Fatalf("expected ErrOpenFailed with wrong passphrase, got %v", err)
	}
	v, ok, err := NewFileStore(path, "correct horse").Get(context.Background(), KeyUser)
	if err != nil || !ok || v != "secret-user" {
		t.Fatalf("expected sealed value back, got %q,%v,%v", v, ok, err)
	}
}

func TestRedisStore_Basics(t *testing.T) {
	mock := newMockRedisKVClient()
	store := NewRedisStore(mock, "smush:")
	exerciseStore(t, store)

	if err := store.Set(context.Background(), KeyUser, "u"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if mock.lastSetKey != "smush:"+KeyUser {
		t.Fatalf("unexpected key, got %q", mock.lastSetKey)
	}
	if mock.lastSetTTL != 0 {
		t.Fatalf("credentials must not expire in redis, got %v", mock.lastSetTTL)
	}
	if err := store.Delete(context.Background(), KeyUser, ""); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(mock.lastDel) != 1 || mock.lastDel[0] != "smush:"+KeyUser {
		t.Fatalf("unexpected del keys: %+v", mock.lastDel)
	}
}

func TestRedisStore_ErrorPaths(t *testing.T) {
	mock := newMockRedisKVClient()
	mock.getErr = errors.New("get failed")
	mock.setErr = errors.New("set failed")
	mock.delErr = errors.New("del failed")
	store := NewRedisStore(mock, "smush:")

	if _, _, err := store.Get(context.Background(), KeyUser); err == nil {
		t.Fatalf("expected get error")
	}
	if err := store.Set(context.Background(), KeyUser, "x"); err == nil {
		t.Fatalf("expected set error")
	}
	if err := store.Delete(context.Background(), KeyUser); err == nil {
		t.Fatalf("expected delete error")
	}
	if NewRedisStore(nil, "x") != nil {
		t.Fatalf("expected nil store for nil client")
	}
}
