package connection

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LoadOrCreateDeviceID returns the installation id stored at path,
// generating a random UUID on first use.
func LoadOrCreateDeviceID(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		id, perr := uuid.Parse(strings.TrimSpace(string(data)))
		if perr == nil {
			return id.String(), nil
		}
		// Corrupt file: fall through and replace it.
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read device id: %w", err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create device id dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write device id: %w", err)
	}
	return id, nil
}

// ResolveTimezone picks the IANA zone sent in X-Timezone: the configured
// value, then $TZ, then the local zone, then UTC. Unknown names are skipped.
func ResolveTimezone(configured string) string {
	for _, name := range []string{configured, os.Getenv("TZ")} {
		if name == "" {
			continue
		}
		if _, err := time.LoadLocation(name); err == nil {
			return name
		}
	}
	if name := time.Local.String(); name != "" && name != "Local" {
		return name
	}
	return "UTC"
}
