package tlsutil

import (
	"crypto/tls"
	"fmt"
)

// ServerConfig builds a tls.Config for the Command Center HTTP server from
// on-disk PEM files. The dashboard authenticates with session tokens, not
// client certificates, so no client CA handling is needed here.
func ServerConfig(certFile, keyFile string) (*tls.Config, error) {
	if certFile == "" || keyFile == "" {
		return nil, fmt.Errorf("server cert and key files must be provided")
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load server cert/key: %w", err)
	}
	return &tls.Config{
		Certificates:  []tls.Certificate{cert},
		MinVersion:    tls.VersionTLS12,
		Renegotiation: tls.RenegotiateNever,
	}, nil
}
