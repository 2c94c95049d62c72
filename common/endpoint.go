package common

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/devopsext/utils"
	"github.com/jinzhu/copier"
)

const (
	EndpointSchemeHttp  = "http"
	EndpointSchemeHttps = "https"
)

const (
	EndpointPortHttp  = 80
	EndpointPortHttps = 443
)

const EndpointDefaultSuffix = "/translate"

// EndpointRules drive path normalization and URL expansion.
type EndpointRules struct {
	DefaultPort int
	BasePaths   []string
	TokenPaths  []string
	Suffix      string
}

// Endpoint is the canonical representation of all the ways to reach one
// logical host. Identity is defined by Host only, endpoints with the same
// host are folded together via Merge.
type Endpoint struct {
	Host     string
	IsDomain bool
	Scheme   string
	Ports    []int
	Paths    []string
	Params   map[string][]string
}

type Endpoints struct {
	items []*Endpoint
}

// EndpointRules

func (er *EndpointRules) suffix() string {

	if utils.IsEmpty(er.Suffix) {
		return EndpointDefaultSuffix
	}
	return er.Suffix
}

// NormalizePath resolves one raw URL path into the set of API paths to
// probe: default paths expand to the suffix under every base path,
// access-token paths get the suffix appended, everything else is a custom
// endpoint kept verbatim.
func (er *EndpointRules) NormalizePath(path string) []string {

	suffix := er.suffix()

	p := strings.TrimRight(path, "/")
	p = strings.TrimSuffix(p, suffix)

	base := p == ""
	if !base {
		for _, b := range er.BasePaths {
			b = strings.Trim(b, "/")
			if utils.IsEmpty(b) {
				continue
			}
			if p == fmt.Sprintf("/%s", b) {
				base = true
				break
			}
		}
	}

	if base {
		r := []string{suffix}
		for _, b := range er.BasePaths {
			b = strings.Trim(b, "/")
			if utils.IsEmpty(b) {
				continue
			}
			bp := fmt.Sprintf("/%s%s", b, suffix)
			if !utils.Contains(r, bp) {
				r = append(r, bp)
			}
		}
		return r
	}

	for _, t := range er.TokenPaths {
		t = strings.Trim(t, "/")
		if utils.IsEmpty(t) {
			continue
		}
		if p == fmt.Sprintf("/%s", t) {
			return []string{fmt.Sprintf("%s%s", p, suffix)}
		}
	}

	return []string{p}
}

// Endpoint

func IsIPAddress(s string) bool {
	return net.ParseIP(s) != nil
}

// IsDomainName reports whether s is a syntactically valid domain name.
// IP literals are never domains.
func IsDomainName(s string) bool {

	if IsIPAddress(s) {
		return false
	}
	if !strings.Contains(s, ".") {
		return false
	}
	return govalidator.IsDNSName(s)
}

// NormalizeDomain trims, lowercases and strips a leading wildcard marker.
func NormalizeDomain(s string) string {

	r := strings.ToLower(strings.TrimSpace(s))
	r = strings.TrimPrefix(r, "*.")
	return r
}

// ParseEndpoint builds an Endpoint from one raw seed line.
func ParseEndpoint(raw string, rules *EndpointRules) (*Endpoint, error) {

	if rules == nil {
		rules = &EndpointRules{}
	}

	s := strings.TrimSpace(raw)
	if utils.IsEmpty(s) {
		return nil, fmt.Errorf("empty endpoint")
	}
	s = strings.TrimRight(s, "/")

	// scheme is informational, both get probed anyway
	ls := strings.ToLower(s)
	if strings.HasPrefix(ls, "http://") {
		s = fmt.Sprintf("https://%s", s[len("http://"):])
	} else if !strings.HasPrefix(ls, "https://") {
		s = fmt.Sprintf("https://%s", s)
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %s, error: %s", raw, err)
	}

	host := strings.ToLower(u.Hostname())
	if utils.IsEmpty(host) {
		return nil, fmt.Errorf("endpoint %s has no host", raw)
	}

	isDomain := IsDomainName(host)
	if !isDomain && !IsIPAddress(host) {
		return nil, fmt.Errorf("endpoint %s has invalid host %s", raw, host)
	}

	ports := []int{}
	if p := u.Port(); !utils.IsEmpty(p) {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return nil, fmt.Errorf("endpoint %s has invalid port %s", raw, p)
		}
		ports = append(ports, n)
	}
	if rules.DefaultPort > 0 && !slices.Contains(ports, rules.DefaultPort) {
		ports = append(ports, rules.DefaultPort)
	}

	params := map[string][]string{}
	if !utils.IsEmpty(u.RawQuery) {
		vs, err := url.ParseQuery(u.RawQuery)
		if err != nil {
			return nil, fmt.Errorf("endpoint %s has invalid query, error: %s", raw, err)
		}
		params = vs
	}

	r := &Endpoint{
		Host:     host,
		IsDomain: isDomain,
		Scheme:   EndpointSchemeHttps,
		Ports:    ports,
		Paths:    rules.NormalizePath(u.EscapedPath()),
		Params:   params,
	}
	return r, nil
}

// Merge folds another endpoint with the same host into a new instance:
// ports and paths are unioned, params are unioned per key. Scheme and
// IsDomain are taken from the receiver. Different hosts are a caller bug.
func (e *Endpoint) Merge(other *Endpoint) (*Endpoint, error) {

	if other == nil {
		return e, nil
	}

	if e.Host != other.Host {
		return nil, fmt.Errorf("cannot merge endpoints with different hosts: %s, %s", e.Host, other.Host)
	}

	ports := append([]int{}, e.Ports...)
	for _, p := range other.Ports {
		if !slices.Contains(ports, p) {
			ports = append(ports, p)
		}
	}

	paths := append([]string{}, e.Paths...)
	for _, p := range other.Paths {
		if !utils.Contains(paths, p) {
			paths = append(paths, p)
		}
	}

	params := map[string][]string{}
	for k, vs := range e.Params {
		params[k] = append([]string{}, vs...)
	}
	for k, vs := range other.Params {
		for _, v := range vs {
			if !utils.Contains(params[k], v) {
				params[k] = append(params[k], v)
			}
		}
	}

	r := &Endpoint{
		Host:     e.Host,
		IsDomain: e.IsDomain,
		Scheme:   e.Scheme,
		Ports:    ports,
		Paths:    paths,
		Params:   params,
	}
	return r, nil
}

// WithHost clones the endpoint substituting a discovered domain for its host.
func (e *Endpoint) WithHost(domain string) (*Endpoint, error) {

	d := NormalizeDomain(domain)
	if utils.IsEmpty(d) {
		return nil, fmt.Errorf("empty domain")
	}
	if !IsDomainName(d) {
		return nil, fmt.Errorf("invalid domain: %s", domain)
	}

	r := &Endpoint{}
	err := copier.CopyWithOption(r, e, copier.Option{DeepCopy: true})
	if err != nil {
		return nil, err
	}

	r.Host = d
	r.IsDomain = true
	return r, nil
}

// ExpandURLs renders the concrete URL space of the endpoint: both schemes,
// declared ports plus service and scheme defaults, every path, query
// attached. Deduplication of the flattened set is up to the caller.
func (e *Endpoint) ExpandURLs(rules *EndpointRules) []string {

	if rules == nil {
		rules = &EndpointRules{}
	}

	paths := append([]string{}, e.Paths...)
	if len(paths) == 0 {
		paths = []string{""}
	}
	sort.Strings(paths)

	query := ""
	if len(e.Params) > 0 {
		query = url.Values(e.Params).Encode()
	}

	r := []string{}

	for _, scheme := range []string{EndpointSchemeHttps, EndpointSchemeHttp} {

		def := EndpointPortHttps
		if scheme == EndpointSchemeHttp {
			def = EndpointPortHttp
		}

		ports := append([]int{}, e.Ports...)
		if rules.DefaultPort > 0 && !slices.Contains(ports, rules.DefaultPort) {
			ports = append(ports, rules.DefaultPort)
		}
		if !slices.Contains(ports, def) {
			ports = append(ports, def)
		}
		sort.Ints(ports)

		for _, port := range ports {
			for _, path := range paths {
				u := url.URL{
					Scheme:   scheme,
					Host:     net.JoinHostPort(e.Host, strconv.Itoa(port)),
					Path:     path,
					RawQuery: query,
				}
				r = append(r, u.String())
			}
		}
	}
	return r
}

// Endpoints

func (es *Endpoints) Add(e ...*Endpoint) {

	for _, item := range e {
		if item == nil {
			continue
		}
		es.items = append(es.items, item)
	}
}

func (es *Endpoints) Items() []*Endpoint {
	return es.items
}

func (es *Endpoints) IsEmpty() bool {
	return len(es.items) == 0
}

func (es *Endpoints) Len() int {
	return len(es.items)
}

// Reduce folds endpoints with the same host into one, first seen wins the
// left side of the merge.
func (es *Endpoints) Reduce() *Endpoints {

	hosts := []string{}
	merged := make(map[string]*Endpoint)

	for _, e := range es.items {

		if e == nil {
			continue
		}

		cur := merged[e.Host]
		if cur == nil {
			merged[e.Host] = e
			hosts = append(hosts, e.Host)
			continue
		}

		m, err := cur.Merge(e)
		if err != nil {
			continue
		}
		merged[e.Host] = m
	}

	r := &Endpoints{}
	for _, h := range hosts {
		r.Add(merged[h])
	}
	return r
}
