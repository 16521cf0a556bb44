package conn

import (
	"crypto/tls"
	"net/http"
	"time"
)

// DefaultHTTPTimeout bounds every HTTP request cycle.
const DefaultHTTPTimeout = 30 * time.Second

// NewTLSConfig builds the TLS configuration shared by every connection.
func NewTLSConfig(insecureSkipVerify bool) *tls.Config {
	return &tls.Config{InsecureSkipVerify: insecureSkipVerify}
}

// NewHTTPClient builds the HTTP client shared by every HTTP connection.
func NewHTTPClient(tlsCfg *tls.Config) *http.Client {
	return &http.Client{
		Timeout: DefaultHTTPTimeout,
		Transport: &http.Transport{
			TLSClientConfig:     tlsCfg,
			MaxIdleConnsPerHost: 100,
		},
	}
}
