package resolver

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/YuCat-OVO/DApi/common"
	sreCommon "github.com/devopsext/sre/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testObs() *common.Observability {
	return common.NewObservability(sreCommon.NewLogs(), sreCommon.NewMetrics())
}

func newTLSListener(t *testing.T, commonName string, dnsNames []string) net.Listener {

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: commonName},
		DNSNames:     dnsNames,
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	cert := tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{cert}})
	require.NoError(t, err)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				if tc, ok := c.(*tls.Conn); ok {
					tc.Handshake()
				}
				c.Close()
			}(conn)
		}
	}()
	return ln
}

func TestCertResolve(t *testing.T) {

	ln := newTLSListener(t, "api.example.com", []string{"api.example.com", "*.example.com", "1.2.3.4"})
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port

	c := NewCert(&CertOptions{Timeout: 5}, testObs())
	require.NotNil(t, c)

	domains := c.Resolve("127.0.0.1", port)
	// CN and SANs deduplicated, wildcard stripped, IP entries dropped
	assert.Equal(t, []string{"api.example.com", "example.com"}, domains)
}

func TestCertResolveNoListener(t *testing.T) {

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	c := NewCert(&CertOptions{Timeout: 1}, testObs())
	require.NotNil(t, c)

	assert.Empty(t, c.Resolve("127.0.0.1", port))
}

func TestCertResolveCached(t *testing.T) {

	ln := newTLSListener(t, "cache.example.com", []string{"cache.example.com"})
	port := ln.Addr().(*net.TCPAddr).Port

	c := NewCert(&CertOptions{Timeout: 5, CacheTTL: "1m"}, testObs())
	require.NotNil(t, c)

	domains := c.Resolve("127.0.0.1", port)
	require.Equal(t, []string{"cache.example.com"}, domains)

	// hot entries survive the backend going away
	ln.Close()
	assert.Equal(t, domains, c.Resolve("127.0.0.1", port))
}
