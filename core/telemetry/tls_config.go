package telemetry

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrInvalidCACerts is returned when the collector CA bundle cannot be used.
var ErrInvalidCACerts = errors.New("invalid collector CA certificates")

// clientTLSConfig builds the exporter TLS configuration from a base64
// encoded PEM bundle.
func clientTLSConfig(caCertsBase64 string) (*tls.Config, error) {
	pemBytes, err := base64.StdEncoding.DecodeString(caCertsBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding base64: %w", ErrInvalidCACerts, err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemBytes) {
		return nil, fmt.Errorf("%w: no PEM certificates found", ErrInvalidCACerts)
	}

	return &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}, nil
}
