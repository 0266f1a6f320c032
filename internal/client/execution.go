package client

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"os"

	"github.com/pkg/errors"
)

func loadCaPool(sslCaFile string) (*x509.CertPool, error) {
	bytes, err := os.ReadFile(sslCaFile)
	if err != nil {
		return nil, errors.Wrap(err, "SSL_CA_FILE")
	}
	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(bytes) {
		return nil, errors.Errorf("SSL_CA_FILE: no certificates found in %s", sslCaFile)
	}
	return caCertPool, nil
}

// newTransport returns a plain transport when no ssl files are configured;
// a ca file alone verifies the server, a crt/key pair adds a client
// certificate on top of that
func newTransport(sslCaFile, sslCrtFile, sslKeyFile string) (*http.Transport, error) {
	if sslCaFile == "" && sslCrtFile == "" && sslKeyFile == "" {
		return &http.Transport{}, nil
	}
	//TLS versions below 1.2 are considered insecure
	// see https://www.rfc-editor.org/rfc/rfc7525.txt for details
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if sslCaFile != "" {
		caCertPool, err := loadCaPool(sslCaFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.RootCAs = caCertPool
	}
	switch {
	case sslCrtFile != "" && sslKeyFile != "":
		certificate, err := tls.LoadX509KeyPair(sslCrtFile, sslKeyFile)
		if err != nil {
			return nil, errors.Wrap(err, "unable to load client certificate")
		}
		tlsConfig.Certificates = []tls.Certificate{certificate}
	case sslCrtFile != "" || sslKeyFile != "":
		return nil, errors.New("SSL_CRT_FILE and SSL_KEY_FILE must be provided together")
	}
	return &http.Transport{TLSClientConfig: tlsConfig}, nil
}
