// Package tlsx manages the self-signed certificate used by the bridge's
// loopback HTTPS listener. Certificates are reused while they have more than
// renewBefore of validity left and regenerated otherwise; the SHA-256
// fingerprint of the DER certificate is the value browser clients pin.
package tlsx

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultValidityDays is the lifetime of a freshly generated certificate.
	DefaultValidityDays = 365

	// renewBefore is the remaining-validity threshold below which
	// EnsureCertificate regenerates instead of reusing.
	renewBefore = 30 * 24 * time.Hour

	rsaKeyBits = 2048

	certFileName = "localhost.crt"
	keyFileName  = "localhost.key"
)

// Manager owns the certificate material under a single directory.
type Manager struct {
	Dir    string
	Logger *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewManager returns a Manager storing material under dir.
func NewManager(dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{Dir: dir, Logger: logger, now: time.Now}
}

// CertPaths returns the on-disk locations of the certificate and key.
func (m *Manager) CertPaths() (certPath, keyPath string) {
	return filepath.Join(m.Dir, certFileName), filepath.Join(m.Dir, keyFileName)
}

// EnsureCertificate returns paths to a usable certificate and private key.
// Existing material with more than 30 days of validity left is returned
// unchanged; anything else, including unreadable or corrupt files, triggers
// regeneration. The key is written 0600 and the certificate 0644.
func (m *Manager) EnsureCertificate(hostname string, validityDays int) (certPath, keyPath string, err error) {
	if hostname == "" {
		hostname = "localhost"
	}
	if validityDays <= 0 {
		validityDays = DefaultValidityDays
	}

	certPath, keyPath = m.CertPaths()

	if cert, err := loadCertificate(certPath); err == nil && fileExists(keyPath) {
		remaining := cert.NotAfter.Sub(m.now())
		if remaining > renewBefore {
			m.Logger.Info("reusing existing bridge certificate",
				"days_remaining", int(remaining.Hours()/24))
			return certPath, keyPath, nil
		}
		m.Logger.Info("bridge certificate near expiry, regenerating",
			"days_remaining", int(remaining.Hours()/24))
	} else if err != nil && fileExists(certPath) {
		m.Logger.Warn("failed to load existing certificate, regenerating", "error", err)
	}

	if err := m.generate(hostname, validityDays, certPath, keyPath); err != nil {
		return "", "", err
	}
	return certPath, keyPath, nil
}

// Fingerprint returns the SHA-256 hash of the certificate's DER encoding as
// lowercase hex pairs joined by colons.
func (m *Manager) Fingerprint(certPath string) (string, error) {
	cert, err := loadCertificate(certPath)
	if err != nil {
		return "", err
	}
	return FingerprintCertificate(cert), nil
}

// FingerprintCertificate computes the pinning fingerprint for a parsed
// certificate.
func FingerprintCertificate(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, ":")
}

func (m *Manager) generate(hostname string, validityDays int, certPath, keyPath string) error {
	if err := os.MkdirAll(m.Dir, 0o700); err != nil {
		return fmt.Errorf("failed to create certificate directory: %w", err)
	}

	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return fmt.Errorf("failed to generate private key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("failed to generate serial number: %w", err)
	}

	notBefore := m.now()
	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"Secure Password Manager"},
			CommonName:   hostname,
		},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(time.Duration(validityDays) * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{hostname, "127.0.0.1"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
		return fmt.Errorf("failed to write certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return fmt.Errorf("failed to parse generated certificate: %w", err)
	}
	m.Logger.Info("generated bridge certificate",
		"hostname", hostname,
		"not_after", cert.NotAfter,
		"fingerprint", FingerprintCertificate(cert),
	)
	return nil
}

func loadCertificate(certPath string) (*x509.Certificate, error) {
	data, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("certificate file does not contain a PEM certificate")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return cert, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
