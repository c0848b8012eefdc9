// Package tlsutil loads or generates the TLS certificate used when the mock
// server serves HTTPS.
package tlsutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

const (
	certFileName = "server.crt"
	keyFileName  = "server.key"
)

// CertificateManager handles TLS certificate loading and generation
type CertificateManager struct {
	certFile  string
	keyFile   string
	storePath string
}

// NewCertificateManager creates a new certificate manager. certFile and
// keyFile take precedence; storePath holds auto-generated certificates.
func NewCertificateManager(certFile, keyFile, storePath string) *CertificateManager {
	return &CertificateManager{
		certFile:  certFile,
		keyFile:   keyFile,
		storePath: storePath,
	}
}

// GetCertificate returns a TLS certificate, loading from files or
// generating a self-signed one when allowed.
func (cm *CertificateManager) GetCertificate(autoGenerate bool) (*tls.Certificate, error) {
	if cm.certFile != "" && cm.keyFile != "" {
		cert, err := tls.LoadX509KeyPair(cm.certFile, cm.keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load certificate from %s and %s: %w", cm.certFile, cm.keyFile, err)
		}
		return &cert, nil
	}

	storeCertPath := filepath.Join(cm.storePath, certFileName)
	storeKeyPath := filepath.Join(cm.storePath, keyFileName)
	if cert, err := tls.LoadX509KeyPair(storeCertPath, storeKeyPath); err == nil {
		return &cert, nil
	}

	if !autoGenerate {
		return nil, fmt.Errorf("no TLS certificate found and auto-generation is disabled")
	}
	return cm.generateAndSaveCertificate()
}

// generateAndSaveCertificate creates a new self-signed certificate covering
// localhost and the host's non-loopback addresses, and persists it under
// the store path for reuse across restarts.
func (cm *CertificateManager) generateAndSaveCertificate() (*tls.Certificate, error) {
	if err := os.MkdirAll(cm.storePath, 0700); err != nil {
		return nil, fmt.Errorf("failed to create certificate store directory: %w", err)
	}

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	notBefore := time.Now()
	notAfter := notBefore.Add(365 * 24 * time.Hour)

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"laragen"},
			CommonName:   "laragen mock server",
		},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")},
	}

	if localIPs, err := getLocalIPs(); err == nil {
		template.IPAddresses = append(template.IPAddresses, localIPs...)
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: certDER,
	})

	keyDER, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "EC PRIVATE KEY",
		Bytes: keyDER,
	})

	certPath := filepath.Join(cm.storePath, certFileName)
	keyPath := filepath.Join(cm.storePath, keyFileName)

	if err := os.WriteFile(certPath, certPEM, 0644); err != nil {
		return nil, fmt.Errorf("failed to save certificate: %w", err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0600); err != nil {
		return nil, fmt.Errorf("failed to save private key: %w", err)
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse generated certificate: %w", err)
	}
	return &cert, nil
}

// getLocalIPs returns all non-loopback local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			ips = append(ips, ipnet.IP)
		}
	}

	return ips, nil
}
