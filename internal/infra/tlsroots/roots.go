package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrNoCertsFound is returned when a bundle holds no CERTIFICATE block.
var ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM file")

// Bundle is a parsed CA file.
type Bundle struct {
	Path  string
	Certs []*x509.Certificate
}

// LoadBundle reads and parses the PEM file at path.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tlsroots: read %s: %w", path, err)
	}
	return ParseBundle(path, data)
}

// ParseBundle parses PEM data. Blocks other than CERTIFICATE are skipped.
func ParseBundle(path string, data []byte) (*Bundle, error) {
	b := &Bundle{Path: path}
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("tlsroots: parse certificate %d in %s: %w", len(b.Certs)+1, path, err)
		}
		b.Certs = append(b.Certs, cert)
	}
	if len(b.Certs) == 0 {
		return nil, ErrNoCertsFound
	}
	return b, nil
}

// Expired returns the certificates that are not valid at now.
func (b *Bundle) Expired(now time.Time) []*x509.Certificate {
	var out []*x509.Certificate
	for _, c := range b.Certs {
		if now.Before(c.NotBefore) || now.After(c.NotAfter) {
			out = append(out, c)
		}
	}
	return out
}

// ClientConfig returns a TLS client configuration trusting the system
// roots plus the bundle.
func (b *Bundle) ClientConfig() *tls.Config {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	for _, c := range b.Certs {
		pool.AddCert(c)
	}
	return &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}
}

// ClientConfig loads caFile and returns the client configuration for it.
// An empty caFile returns nil, which leaves the transport's defaults.
func ClientConfig(caFile string) (*tls.Config, error) {
	if caFile == "" {
		return nil, nil
	}
	b, err := LoadBundle(caFile)
	if err != nil {
		return nil, err
	}
	return b.ClientConfig(), nil
}
