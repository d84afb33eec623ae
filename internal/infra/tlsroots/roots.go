package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// ErrNoCertsFound is returned when no certificates are found in a PEM file.
var ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM file")

// LoadPool reads every PEM file in paths into a new pool.
func LoadPool(paths ...string) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("tlsroots: read cert file %s: %w", path, err)
		}
		if err := addPEM(pool, data); err != nil {
			return nil, fmt.Errorf("tlsroots: %s: %w", path, err)
		}
	}
	return pool, nil
}

// addPEM adds each CERTIFICATE block of pemData to pool.
func addPEM(pool *x509.CertPool, pemData []byte) error {
	var added int
	for len(pemData) > 0 {
		var block *pem.Block
		block, pemData = pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("parse certificate: %w", err)
		}
		pool.AddCert(cert)
		added++
	}

	if added == 0 {
		return ErrNoCertsFound
	}
	return nil
}

// ServerConfig returns a TLS config that serves the reloader's certificate.
// When clientCAs is non-nil, clients must present a certificate it verifies.
func ServerConfig(r *CertReloader, clientCAs *x509.CertPool) *tls.Config {
	cfg := &tls.Config{
		GetCertificate: r.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
	if clientCAs != nil {
		cfg.ClientCAs = clientCAs
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return cfg
}
