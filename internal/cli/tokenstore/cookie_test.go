package tokenstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCookieFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "cookies.txt")
	jar := NewCookieFile(path)

	value := []byte("eyJhbGciOiJIUzI1NiJ9.e30.sig")
	if err := jar.Save(KeyAuthToken, value, 0); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, ok, err := jar.Load(KeyAuthToken)
	if err != nil || !ok {
		t.Fatalf("Load() = %v, %v", ok, err)
	}
	if string(got) != string(value) {
		t.Errorf("Load() = %q, want %q", got, value)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("jar mode = %o, want 600", perm)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "auth_token=") || !strings.Contains(string(data), "HttpOnly") {
		t.Errorf("jar is not in Set-Cookie form:\n%s", data)
	}
}

func TestCookieFile_Expires(t *testing.T) {
	jar := NewCookieFile(filepath.Join(t.TempDir(), "cookies.txt"))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	jar.now = func() time.Time { return now }

	if err := jar.Save(KeyAuthToken, []byte("tok"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := jar.Load(KeyAuthToken); !ok {
		t.Fatal("cookie missing before expiry")
	}

	now = now.Add(2 * time.Hour)
	if _, ok, _ := jar.Load(KeyAuthToken); ok {
		t.Error("expired cookie read as present")
	}
}

func TestCookieFile_DeleteAndMissing(t *testing.T) {
	jar := NewCookieFile(filepath.Join(t.TempDir(), "cookies.txt"))

	if err := jar.Delete(KeyAuthToken); err != nil {
		t.Errorf("Delete() on missing jar error = %v", err)
	}
	if _, ok, err := jar.Load(KeyAuthToken); ok || err != nil {
		t.Errorf("Load() on missing jar = %v, %v", ok, err)
	}

	jar.Save(KeyAuthToken, []byte("a"), 0)
	jar.Save(KeyRefreshToken, []byte("b"), 0)
	if err := jar.Delete(KeyAuthToken); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := jar.Load(KeyAuthToken); ok {
		t.Error("deleted cookie still present")
	}
	if v, ok, _ := jar.Load(KeyRefreshToken); !ok || string(v) != "b" {
		t.Errorf("other cookie lost: %q, %v", v, ok)
	}
}

func TestCookieFile_SkipsJunkLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	content := "# comment\nnot a cookie line;;;\n\nauth_token=dG9r; Path=/\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	got, ok, err := NewCookieFile(path).Load(KeyAuthToken)
	if err != nil || !ok || string(got) != "tok" {
		t.Errorf("Load() = %q, %v, %v; want tok", got, ok, err)
	}
}
