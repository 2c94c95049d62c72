package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRules() *EndpointRules {
	return &EndpointRules{
		DefaultPort: 1188,
		BasePaths:   []string{"v1"},
		TokenPaths:  []string{"secret"},
	}
}

func TestNormalizePath(t *testing.T) {

	rules := testRules()
	defaults := []string{"/translate", "/v1/translate"}

	tests := []struct {
		name     string
		path     string
		expected []string
	}{
		{"empty", "", defaults},
		{"root", "/", defaults},
		{"suffix only", "/translate", defaults},
		{"base path", "/v1", defaults},
		{"base path with suffix", "/v1/translate", defaults},
		{"base path trailing slash", "/v1/", defaults},
		{"token path", "/secret", []string{"/secret/translate"}},
		{"custom path", "/custom/api", []string{"/custom/api"}},
		{"custom path trailing slash", "/custom/api/", []string{"/custom/api"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, rules.NormalizePath(tt.path))
		})
	}
}

func TestParseEndpoint(t *testing.T) {

	rules := testRules()

	tests := []struct {
		name     string
		raw      string
		host     string
		isDomain bool
		ports    []int
		wantErr  bool
	}{
		{"bare domain", "example.com", "example.com", true, []int{1188}, false},
		{"http scheme", "http://example.com", "example.com", true, []int{1188}, false},
		{"uppercase host", "HTTPS://EXAMPLE.COM", "example.com", true, []int{1188}, false},
		{"ip with port", "1.2.3.4:8080", "1.2.3.4", false, []int{8080, 1188}, false},
		{"ip default port", "https://1.2.3.4:1188", "1.2.3.4", false, []int{1188}, false},
		{"empty", "", "", false, nil, true},
		{"whitespace", "   ", "", false, nil, true},
		{"no dot host", "localhost", "", false, nil, true},
		{"invalid port", "example.com:99999", "", false, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {

			e, err := ParseEndpoint(tt.raw, rules)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, e.Host)
			assert.Equal(t, tt.isDomain, e.IsDomain)
			assert.Equal(t, tt.ports, e.Ports)
			assert.Equal(t, EndpointSchemeHttps, e.Scheme)
		})
	}
}

func TestParseEndpointPathsAndParams(t *testing.T) {

	rules := testRules()

	e, err := ParseEndpoint("https://example.com/v1/translate?token=abc", rules)
	require.NoError(t, err)
	assert.Equal(t, []string{"/translate", "/v1/translate"}, e.Paths)
	assert.Equal(t, map[string][]string{"token": {"abc"}}, e.Params)
}

func TestParseEndpointNilRules(t *testing.T) {

	e, err := ParseEndpoint("example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, "example.com", e.Host)
	assert.Empty(t, e.Ports)
	assert.Equal(t, []string{"/translate"}, e.Paths)

	urls := e.ExpandURLs(nil)
	assert.Equal(t, []string{
		"https://example.com:443/translate",
		"http://example.com:80/translate",
	}, urls)
}

func TestEndpointMerge(t *testing.T) {

	rules := testRules()

	a, err := ParseEndpoint("example.com:8080/v1", rules)
	require.NoError(t, err)
	b, err := ParseEndpoint("example.com:9090/custom?token=abc", rules)
	require.NoError(t, err)

	m, err := a.Merge(b)
	require.NoError(t, err)

	assert.ElementsMatch(t, []int{8080, 9090, 1188}, m.Ports)
	assert.ElementsMatch(t, []string{"/translate", "/v1/translate", "/custom"}, m.Paths)
	assert.Equal(t, map[string][]string{"token": {"abc"}}, m.Params)
	assert.Equal(t, "example.com", m.Host)

	// merging is symmetric on the unioned sets
	m2, err := b.Merge(a)
	require.NoError(t, err)
	assert.ElementsMatch(t, m.Ports, m2.Ports)
	assert.ElementsMatch(t, m.Paths, m2.Paths)
}

func TestEndpointMergeDifferentHosts(t *testing.T) {

	rules := testRules()

	a, err := ParseEndpoint("example.com", rules)
	require.NoError(t, err)
	b, err := ParseEndpoint("other.com", rules)
	require.NoError(t, err)

	_, err = a.Merge(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different hosts")
}

func TestEndpointWithHost(t *testing.T) {

	rules := testRules()

	e, err := ParseEndpoint("1.2.3.4:8080", rules)
	require.NoError(t, err)

	d, err := e.WithHost("*.Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "example.com", d.Host)
	assert.True(t, d.IsDomain)
	assert.Equal(t, e.Ports, d.Ports)

	// the clone must not share backing arrays with the original
	d.Ports[0] = 1
	assert.Equal(t, 8080, e.Ports[0])

	_, err = e.WithHost("")
	require.Error(t, err)
	_, err = e.WithHost("5.6.7.8")
	require.Error(t, err)
}

func TestExpandURLs(t *testing.T) {

	rules := testRules()

	e := &Endpoint{
		Host:   "example.com",
		Scheme: EndpointSchemeHttps,
		Ports:  []int{1188},
		Paths:  []string{"/translate"},
	}

	expected := []string{
		"https://example.com:443/translate",
		"https://example.com:1188/translate",
		"http://example.com:80/translate",
		"http://example.com:1188/translate",
	}
	assert.Equal(t, expected, e.ExpandURLs(rules))
}

func TestExpandURLsWithParams(t *testing.T) {

	e := &Endpoint{
		Host:   "example.com",
		Scheme: EndpointSchemeHttps,
		Ports:  []int{443},
		Paths:  []string{"/translate"},
		Params: map[string][]string{"token": {"abc"}},
	}

	urls := e.ExpandURLs(&EndpointRules{})
	require.NotEmpty(t, urls)
	assert.Equal(t, "https://example.com:443/translate?token=abc", urls[0])
}

func TestEndpointsReduce(t *testing.T) {

	rules := testRules()

	a, err := ParseEndpoint("example.com:8080", rules)
	require.NoError(t, err)
	b, err := ParseEndpoint("other.com", rules)
	require.NoError(t, err)
	c, err := ParseEndpoint("example.com:9090", rules)
	require.NoError(t, err)

	es := &Endpoints{}
	es.Add(a, nil, b, c)

	r := es.Reduce()
	require.Equal(t, 2, r.Len())

	// first seen host keeps its position
	assert.Equal(t, "example.com", r.Items()[0].Host)
	assert.Equal(t, "other.com", r.Items()[1].Host)
	assert.ElementsMatch(t, []int{8080, 9090, 1188}, r.Items()[0].Ports)
}

func TestIsDomainName(t *testing.T) {

	tests := []struct {
		s        string
		expected bool
	}{
		{"example.com", true},
		{"api.example.com", true},
		{"1.2.3.4", false},
		{"localhost", false},
		{"", false},
		{"-bad-.com", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, IsDomainName(tt.s), tt.s)
	}
}
