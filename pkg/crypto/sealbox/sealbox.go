package sealbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// CipherType identifies the AEAD algorithm.
type CipherType byte

const (
	CipherAESGCM   CipherType = 1
	CipherChaCha20 CipherType = 2
)

// String returns the algorithm name.
func (c CipherType) String() string {
	switch c {
	case CipherAESGCM:
		return "aes-256-gcm"
	case CipherChaCha20:
		return "chacha20-poly1305"
	default:
		return fmt.Sprintf("cipher(%d)", byte(c))
	}
}

// SecretSize is the length of the per-install secret in bytes.
const SecretSize = 32

const hkdfInfo = "calbook token store v1"

// Errors
var (
	ErrShortSecret    = errors.New("sealbox: secret must be at least 32 bytes")
	ErrMalformed      = errors.New("sealbox: sealed value is malformed")
	ErrUnknownCipher  = errors.New("sealbox: unknown cipher tag")
	ErrAuthentication = errors.New("sealbox: message authentication failed")
)

// Box seals and opens values with a key derived from a secret.
// A Box is safe for concurrent use.
type Box struct {
	preferred CipherType
	aeads     map[CipherType]cipher.AEAD
}

// New derives keys from secret and returns a Box that seals with the
// cipher best suited to the current architecture.
func New(secret []byte) (*Box, error) {
	return NewWithType(secret, defaultCipher())
}

// NewWithType returns a Box that seals with the given cipher. Values
// sealed by either cipher can still be opened.
func NewWithType(secret []byte, preferred CipherType) (*Box, error) {
	if len(secret) < SecretSize {
		return nil, ErrShortSecret
	}
	if preferred != CipherAESGCM && preferred != CipherChaCha20 {
		return nil, ErrUnknownCipher
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("sealbox: derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	chacha, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	return &Box{
		preferred: preferred,
		aeads: map[CipherType]cipher.AEAD{
			CipherAESGCM:   gcm,
			CipherChaCha20: chacha,
		},
	}, nil
}

// Type returns the cipher used by Seal.
func (b *Box) Type() CipherType {
	return b.preferred
}

// Seal encrypts plaintext bound to additionalData.
// Output layout: tag(1) | nonce | ciphertext+mac.
func (b *Box) Seal(plaintext, additionalData []byte) ([]byte, error) {
	aead := b.aeads[b.preferred]

	out := make([]byte, 1+aead.NonceSize(), 1+aead.NonceSize()+len(plaintext)+aead.Overhead())
	out[0] = byte(b.preferred)
	nonce := out[1:]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("sealbox: read nonce: %w", err)
	}

	return aead.Seal(out, nonce, plaintext, additionalData), nil
}

// Open decrypts a value produced by Seal.
func (b *Box) Open(sealed, additionalData []byte) ([]byte, error) {
	if len(sealed) < 1 {
		return nil, ErrMalformed
	}
	aead, ok := b.aeads[CipherType(sealed[0])]
	if !ok {
		return nil, ErrUnknownCipher
	}
	body := sealed[1:]
	if len(body) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrMalformed
	}

	nonce, ciphertext := body[:aead.NonceSize()], body[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}

// LoadOrCreateSecret reads the secret at path, creating it with fresh
// random bytes (mode 0600) when the file does not exist.
func LoadOrCreateSecret(path string) ([]byte, error) {
	secret, err := os.ReadFile(path)
	if err == nil {
		if len(secret) < SecretSize {
			return nil, fmt.Errorf("%w: %s", ErrShortSecret, path)
		}
		return secret, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("sealbox: read secret: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("sealbox: create secret dir: %w", err)
	}

	secret = make([]byte, SecretSize)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, fmt.Errorf("sealbox: generate secret: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			// Lost a race with another process; use its secret.
			return LoadOrCreateSecret(path)
		}
		return nil, fmt.Errorf("sealbox: create secret: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(secret); err != nil {
		return nil, fmt.Errorf("sealbox: write secret: %w", err)
	}
	return secret, f.Sync()
}

// defaultCipher picks AES-GCM where Go has hardware AES, else ChaCha20.
func defaultCipher() CipherType {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return CipherAESGCM
	default:
		return CipherChaCha20
	}
}
