package connection

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLoadOrCreateDeviceID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "device_id")

	first, err := LoadOrCreateDeviceID(path)
	if err != nil {
		t.Fatalf("LoadOrCreateDeviceID() error = %v", err)
	}
	if _, err := uuid.Parse(first); err != nil {
		t.Errorf("device id %q is not a UUID", first)
	}

	second, err := LoadOrCreateDeviceID(path)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("device id changed: %q -> %q", first, second)
	}
}

func TestLoadOrCreateDeviceID_ReplacesCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_id")
	os.WriteFile(path, []byte("garbage"), 0o600)

	id, err := LoadOrCreateDeviceID(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("device id %q is not a UUID", id)
	}
}

func TestResolveTimezone(t *testing.T) {
	t.Setenv("TZ", "Asia/Kolkata")

	if got := ResolveTimezone("Europe/Paris"); got != "Europe/Paris" {
		t.Errorf("configured zone ignored: %q", got)
	}
	if got := ResolveTimezone(""); got != "Asia/Kolkata" {
		t.Errorf("TZ env ignored: %q", got)
	}
	if got := ResolveTimezone("Not/AZone"); got != "Asia/Kolkata" {
		t.Errorf("invalid configured zone not skipped: %q", got)
	}

	t.Setenv("TZ", "")
	got := ResolveTimezone("")
	if got == "" || got == "Local" {
		t.Errorf("fallback zone = %q", got)
	}
	if _, err := time.LoadLocation(got); err != nil {
		t.Errorf("fallback zone %q does not load: %v", got, err)
	}
}
