package storage

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func openTestEngine(t *testing.T, dir string) *BadgerEngine {
	t.Helper()
	engine, err := NewBadgerEngine(DefaultKVConfig(dir), slog.Default())
	if err != nil {
		t.Fatalf("NewBadgerEngine() error = %v", err)
	}
	return engine
}

func TestBadgerEngine_BasicOperations(t *testing.T) {
	engine := openTestEngine(t, t.TempDir())
	defer engine.Close()

	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		if err := engine.Set(ctx, []byte("auth_token"), []byte("v1"), 0); err != nil {
			t.Fatal(err)
		}
		got, err := engine.Get(ctx, []byte("auth_token"))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "v1" {
			t.Errorf("Get() = %q, want v1", got)
		}
	})

	t.Run("Get non-existent key", func(t *testing.T) {
		_, err := engine.Get(ctx, []byte("missing"))
		if err != ErrKeyNotFound {
			t.Errorf("expected ErrKeyNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		key := []byte("refresh_token")
		if err := engine.Set(ctx, key, []byte("r1"), 0); err != nil {
			t.Fatal(err)
		}
		if err := engine.Delete(ctx, key); err != nil {
			t.Fatal(err)
		}
		if _, err := engine.Get(ctx, key); err != ErrKeyNotFound {
			t.Errorf("expected ErrKeyNotFound after delete, got %v", err)
		}
	})

	t.Run("Delete missing key", func(t *testing.T) {
		if err := engine.Delete(ctx, []byte("never-set")); err != nil {
			t.Errorf("Delete() of missing key error = %v", err)
		}
	})
}

func TestBadgerEngine_Overwrite(t *testing.T) {
	engine := openTestEngine(t, t.TempDir())
	defer engine.Close()

	ctx := context.Background()
	key := []byte("work/auth_token")
	for _, v := range []string{"first", "second"} {
		if err := engine.Set(ctx, key, []byte(v), 0); err != nil {
			t.Fatal(err)
		}
	}
	got, err := engine.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Errorf("Get() = %q, want the last write", got)
	}
	if _, err := engine.Get(ctx, []byte("home/auth_token")); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("other profile leaked: %v", err)
	}
}

func TestBadgerEngine_TTL(t *testing.T) {
	engine := openTestEngine(t, t.TempDir())
	defer engine.Close()

	ctx := context.Background()
	if err := engine.Set(ctx, []byte("short"), []byte("x"), time.Second); err != nil {
		t.Fatal(err)
	}
	time.Sleep(1500 * time.Millisecond)

	if _, err := engine.Get(ctx, []byte("short")); err != ErrKeyNotFound {
		t.Errorf("expected expired key to be absent, got %v", err)
	}
}

func TestBadgerEngine_Persistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	engine := openTestEngine(t, dir)
	if err := engine.Set(ctx, []byte("auth_token"), []byte("persisted"), 0); err != nil {
		t.Fatal(err)
	}
	if err := engine.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := openTestEngine(t, dir)
	defer reopened.Close()

	got, err := reopened.Get(ctx, []byte("auth_token"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "persisted" {
		t.Errorf("Get() after reopen = %q", got)
	}
}

// A cached profile can outgrow the value threshold and land in the value
// log. It must survive a reopen like an inline value.
func TestBadgerEngine_ValueLogValue(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	big := bytes.Repeat([]byte("u"), 64<<10)

	engine := openTestEngine(t, dir)
	if err := engine.Set(ctx, []byte("auth_user"), big, 0); err != nil {
		t.Fatalf("Set() of %d bytes error = %v", len(big), err)
	}
	if err := engine.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := openTestEngine(t, dir)
	defer reopened.Close()

	got, err := reopened.Get(ctx, []byte("auth_user"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, big) {
		t.Errorf("Get() returned %d bytes, want %d", len(got), len(big))
	}
}

func TestBadgerEngine_ClosedOperations(t *testing.T) {
	engine := openTestEngine(t, t.TempDir())
	if err := engine.Close(); err != nil {
		t.Fatal(err)
	}
	if err := engine.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	ctx := context.Background()
	if _, err := engine.Get(ctx, []byte("k")); err != ErrClosed {
		t.Errorf("Get() after close = %v, want ErrClosed", err)
	}
	if err := engine.Set(ctx, []byte("k"), []byte("v"), 0); err != ErrClosed {
		t.Errorf("Set() after close = %v, want ErrClosed", err)
	}
	if err := engine.Delete(ctx, []byte("k")); err != ErrClosed {
		t.Errorf("Delete() after close = %v, want ErrClosed", err)
	}
}

func TestNewBadgerEngine_RequiresDir(t *testing.T) {
	if _, err := NewBadgerEngine(KVConfig{}, nil); err == nil {
		t.Error("expected error for empty dir")
	}
}
