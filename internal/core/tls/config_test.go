package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeKeyPair writes a self-signed certificate and its key as PEM files.
func writeKeyPair(t *testing.T, dir string) (certPath, keyPath string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("creating cert: %v", err)
	}

	certPath = filepath.Join(dir, "cert.pem")
	certFile, err := os.Create(certPath)
	if err != nil {
		t.Fatalf("creating cert file: %v", err)
	}
	pem.Encode(certFile, &pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	certFile.Close()

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshaling key: %v", err)
	}

	keyPath = filepath.Join(dir, "key.pem")
	keyFile, err := os.Create(keyPath)
	if err != nil {
		t.Fatalf("creating key file: %v", err)
	}
	pem.Encode(keyFile, &pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	keyFile.Close()

	return certPath, keyPath
}

func TestBuild_Nil(t *testing.T) {
	var cfg *Config
	got, err := cfg.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Error("expected nil tls config for nil config")
	}
	if got, _ := (&Config{}).Build(); got != nil {
		t.Error("expected nil tls config for empty config")
	}
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeKeyPair(t, dir)
	badPEM := filepath.Join(dir, "bad.pem")
	if err := os.WriteFile(badPEM, []byte("not a certificate"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
		check   func(t *testing.T, c *tls.Config)
	}{
		{
			name: "insecure",
			cfg:  Config{Insecure: true},
			check: func(t *testing.T, c *tls.Config) {
				if !c.InsecureSkipVerify {
					t.Error("expected InsecureSkipVerify")
				}
			},
		},
		{
			name: "client certificate",
			cfg:  Config{Cert: certPath, Key: keyPath},
			check: func(t *testing.T, c *tls.Config) {
				if len(c.Certificates) != 1 {
					t.Errorf("expected 1 certificate, got %d", len(c.Certificates))
				}
			},
		},
		{
			name: "ca bundle",
			cfg:  Config{CA: certPath, ServerName: "hooks.internal"},
			check: func(t *testing.T, c *tls.Config) {
				if c.RootCAs == nil || c.ServerName != "hooks.internal" {
					t.Errorf("unexpected config: roots=%v server=%q", c.RootCAs, c.ServerName)
				}
			},
		},
		{
			name: "min version",
			cfg:  Config{MinVersion: "1.3"},
			check: func(t *testing.T, c *tls.Config) {
				if c.MinVersion != tls.VersionTLS13 {
					t.Errorf("MinVersion = %x", c.MinVersion)
				}
			},
		},
		{name: "cert without key", cfg: Config{Cert: certPath}, wantErr: true},
		{name: "missing cert files", cfg: Config{Cert: "/nonexistent/cert.pem", Key: "/nonexistent/key.pem"}, wantErr: true},
		{name: "missing ca", cfg: Config{CA: "/nonexistent/ca.pem"}, wantErr: true},
		{name: "bad ca pem", cfg: Config{CA: badPEM}, wantErr: true},
		{name: "bad version", cfg: Config{MinVersion: "1.0"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.Build()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, got)
		})
	}
}

func TestIsEmpty(t *testing.T) {
	var nilCfg *Config
	if !nilCfg.IsEmpty() {
		t.Error("nil config should be empty")
	}
	if !(&Config{}).IsEmpty() {
		t.Error("zero-value config should be empty")
	}
	if (&Config{Insecure: true}).IsEmpty() {
		t.Error("config with Insecure should not be empty")
	}
}
