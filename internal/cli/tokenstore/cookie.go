package tokenstore

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// CookieFile is a Backend that keeps one Set-Cookie line per key in a
// jar file. Expired cookies read as absent.
type CookieFile struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

var _ Backend = (*CookieFile)(nil)

// NewCookieFile returns a cookie-jar backend at path. The file is created
// on first write.
func NewCookieFile(path string) *CookieFile {
	return &CookieFile{path: path, now: time.Now}
}

// Path returns the jar file location.
func (c *CookieFile) Path() string {
	return c.path
}

func (c *CookieFile) Load(key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	jar, err := c.read()
	if err != nil {
		return nil, false, err
	}
	cookie, ok := jar[key]
	if !ok || c.expired(cookie) {
		return nil, false, nil
	}
	value, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil, false, fmt.Errorf("cookie %s: decode value: %w", key, err)
	}
	return value, true, nil
}

func (c *CookieFile) Save(key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	jar, err := c.read()
	if err != nil {
		return err
	}

	cookie := &http.Cookie{
		Name:     key,
		Value:    base64.RawURLEncoding.EncodeToString(value),
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
	if ttl > 0 {
		cookie.Expires = c.now().Add(ttl).UTC().Truncate(time.Second)
	}
	if err := cookie.Valid(); err != nil {
		return fmt.Errorf("cookie %s: %w", key, err)
	}
	jar[key] = cookie
	return c.write(jar)
}

func (c *CookieFile) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	jar, err := c.read()
	if err != nil {
		return err
	}
	if _, ok := jar[key]; !ok {
		return nil
	}
	delete(jar, key)
	return c.write(jar)
}

func (c *CookieFile) Close() error { return nil }

func (c *CookieFile) expired(cookie *http.Cookie) bool {
	return !cookie.Expires.IsZero() && !c.now().Before(cookie.Expires)
}

// read parses the jar. Lines that fail to parse are skipped.
func (c *CookieFile) read() (map[string]*http.Cookie, error) {
	jar := make(map[string]*http.Cookie)

	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return jar, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cookie jar: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		cookie, err := http.ParseSetCookie(string(line))
		if err != nil {
			continue
		}
		jar[cookie.Name] = cookie
	}
	return jar, scanner.Err()
}

// write replaces the jar file atomically with mode 0600.
func (c *CookieFile) write(jar map[string]*http.Cookie) error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create cookie dir: %w", err)
	}

	names := make([]string, 0, len(jar))
	for name := range jar {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteString("# calbook-cli cookie jar\n")
	for _, name := range names {
		buf.WriteString(jar[name].String())
		buf.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(dir, ".cookies-*")
	if err != nil {
		return fmt.Errorf("create temp jar: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write jar: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.path)
}
