package tokenstore

import (
	"context"
	"os"
	"testing"
	"time"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	addr := os.Getenv("CALBOOK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CALBOOK_TEST_REDIS_ADDR not set")
	}
	r, err := NewRedis(context.Background(), RedisConfig{
		Addr:    addr,
		Profile: "test-" + time.Now().Format("150405.000000"),
	})
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}
	t.Cleanup(func() {
		for _, k := range []string{KeyAuthToken, KeyRefreshToken, KeyAuthUser} {
			r.Delete(k)
		}
		r.Close()
	})
	return r
}

func TestRedis_RoundTrip(t *testing.T) {
	r := newTestRedis(t)

	if _, ok, err := r.Load(KeyAuthToken); ok || err != nil {
		t.Fatalf("Load() on empty = %v, %v", ok, err)
	}
	if err := r.Save(KeyAuthToken, []byte("tok"), time.Minute); err != nil {
		t.Fatal(err)
	}
	got, ok, err := r.Load(KeyAuthToken)
	if err != nil || !ok || string(got) != "tok" {
		t.Errorf("Load() = %q, %v, %v", got, ok, err)
	}
	if err := r.Delete(KeyAuthToken); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := r.Load(KeyAuthToken); ok {
		t.Error("key present after Delete")
	}
}

func TestNewRedis_RequiresAddr(t *testing.T) {
	if _, err := NewRedis(context.Background(), RedisConfig{}); err == nil {
		t.Error("expected error for empty addr")
	}
}
