// Package tls turns the tls section of the config file into a
// crypto/tls configuration shared by the REST and push clients.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// Config is the user-facing TLS configuration.
type Config struct {
	Cert       string `yaml:"cert,omitempty"`
	Key        string `yaml:"key,omitempty"`
	CA         string `yaml:"ca,omitempty"`
	ServerName string `yaml:"server_name,omitempty"`
	MinVersion string `yaml:"min_version,omitempty"`
	Insecure   bool   `yaml:"insecure,omitempty"`
}

var versions = map[string]uint16{
	"1.2": tls.VersionTLS12,
	"1.3": tls.VersionTLS13,
}

// Build returns nil when nothing is configured, so callers fall back to
// Go's defaults.
func (c *Config) Build() (*tls.Config, error) {
	if c.IsEmpty() {
		return nil, nil
	}

	out := &tls.Config{
		InsecureSkipVerify: c.Insecure,
		ServerName:         c.ServerName,
	}

	if c.MinVersion != "" {
		v, ok := versions[c.MinVersion]
		if !ok {
			return nil, fmt.Errorf("unsupported TLS min_version %q (want 1.2 or 1.3)", c.MinVersion)
		}
		out.MinVersion = v
	}

	switch {
	case c.Cert != "" && c.Key != "":
		cert, err := tls.LoadX509KeyPair(c.Cert, c.Key)
		if err != nil {
			return nil, fmt.Errorf("loading client certificate: %w", err)
		}
		out.Certificates = []tls.Certificate{cert}
	case c.Cert != "" || c.Key != "":
		return nil, fmt.Errorf("tls cert and key must be set together")
	}

	if c.CA != "" {
		pem, err := os.ReadFile(c.CA)
		if err != nil {
			return nil, fmt.Errorf("reading CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", c.CA)
		}
		out.RootCAs = pool
	}

	return out, nil
}

// IsEmpty reports whether no TLS setting is configured.
func (c *Config) IsEmpty() bool {
	return c == nil || *c == Config{}
}
