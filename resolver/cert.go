package resolver

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"strconv"
	"time"

	"github.com/YuCat-OVO/DApi/common"
	sreCommon "github.com/devopsext/sre/common"
	"github.com/devopsext/utils"
	"github.com/jellydator/ttlcache/v3"
)

type CertOptions struct {
	Timeout  int
	CacheTTL string
}

// Cert reads the TLS leaf certificate of a host:port without trusting it
// and extracts the domain names it was issued for. Resolved sets are
// cached per host:port so scheduled reruns do not rehandshake hot entries.
type Cert struct {
	options *CertOptions
	logger  sreCommon.Logger
	cache   *ttlcache.Cache[string, []string]
}

const ResolverCertName = "Cert"

const certDefaultTimeout = 60

func (c *Cert) Name() string {
	return ResolverCertName
}

func (c *Cert) fetch(host string, port int) *x509.Certificate {

	addr := net.JoinHostPort(host, strconv.Itoa(port))

	timeout := c.options.Timeout
	if timeout <= 0 {
		timeout = certDefaultTimeout
	}

	dialer := &net.Dialer{
		Timeout: time.Duration(timeout) * time.Second,
	}

	// the goal is to read the certificate, not to trust it
	config := &tls.Config{
		InsecureSkipVerify: true,
	}
	if common.IsDomainName(host) {
		config.ServerName = host
	}

	conn, err := tls.DialWithDialer(dialer, "tcp", addr, config)
	if err != nil {
		c.logger.Debug("Cert cannot handshake with %s, error: %s", addr, err)
		return nil
	}
	defer conn.Close()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil
	}
	return certs[0]
}

func (c *Cert) extract(cert *x509.Certificate) []string {

	r := []string{}

	add := func(s string) {

		d := common.NormalizeDomain(s)
		if utils.IsEmpty(d) || !common.IsDomainName(d) {
			if !utils.IsEmpty(d) {
				c.logger.Debug("Cert skipped invalid domain %s", s)
			}
			return
		}
		if !utils.Contains(r, d) {
			r = append(r, d)
		}
	}

	add(cert.Subject.CommonName)
	for _, dns := range cert.DNSNames {
		add(dns)
	}
	return r
}

// Resolve returns the deduplicated valid domains found in the certificate
// served at host:port, or an empty set on any transport failure.
func (c *Cert) Resolve(host string, port int) []string {

	key := net.JoinHostPort(host, strconv.Itoa(port))

	if c.cache != nil {
		if item := c.cache.Get(key); item != nil {
			return item.Value()
		}
	}

	r := []string{}
	cert := c.fetch(host, port)
	if cert != nil {
		r = c.extract(cert)
	}

	if c.cache != nil {
		c.cache.Set(key, r, ttlcache.DefaultTTL)
	}
	return r
}

func NewCert(options *CertOptions, observability *common.Observability) *Cert {

	logger := observability.Logs()

	var cache *ttlcache.Cache[string, []string]
	if !utils.IsEmpty(options.CacheTTL) {

		ttl, err := time.ParseDuration(options.CacheTTL)
		if err != nil {
			logger.Debug("Cert cannot parse cache TTL %s: %s", options.CacheTTL, err)
		} else {
			cache = ttlcache.New(ttlcache.WithTTL[string, []string](ttl))
			go cache.Start()
		}
	}

	return &Cert{
		options: options,
		logger:  logger,
		cache:   cache,
	}
}
