package resolver

import (
	"fmt"
	"testing"

	"github.com/YuCat-OVO/DApi/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	domains map[string][]string
}

func (f *fakeResolver) Name() string {
	return "Fake"
}

func (f *fakeResolver) Resolve(host string, port int) []string {
	return f.domains[fmt.Sprintf("%s:%d", host, port)]
}

func TestAugment(t *testing.T) {

	rules := &common.EndpointRules{DefaultPort: 1188}

	ip, err := common.ParseEndpoint("1.2.3.4", rules)
	require.NoError(t, err)
	dom, err := common.ParseEndpoint("example.com", rules)
	require.NoError(t, err)

	es := &common.Endpoints{}
	es.Add(ip, dom)

	fake := &fakeResolver{domains: map[string][]string{
		"1.2.3.4:1188": {"api.example.org", "*.example.org"},
	}}

	a := NewAugment(&AugmentOptions{Workers: 2}, fake, testObs())
	require.NotNil(t, a)

	r := a.Augment(es)

	hosts := []string{}
	for _, e := range r.Items() {
		hosts = append(hosts, e.Host)
	}
	// originals are retained, discovered domains are added
	assert.ElementsMatch(t, []string{"1.2.3.4", "example.com", "api.example.org", "example.org"}, hosts)

	for _, e := range r.Items() {
		if e.Host == "api.example.org" {
			assert.True(t, e.IsDomain)
			assert.Equal(t, ip.Ports, e.Ports)
		}
	}
}

func TestAugmentNoIPs(t *testing.T) {

	rules := &common.EndpointRules{DefaultPort: 1188}

	dom, err := common.ParseEndpoint("example.com", rules)
	require.NoError(t, err)

	es := &common.Endpoints{}
	es.Add(dom, dom)

	a := NewAugment(&AugmentOptions{}, &fakeResolver{}, testObs())
	require.NotNil(t, a)

	r := a.Augment(es)
	assert.Equal(t, 1, r.Len())
}

func TestNewAugmentNoResolver(t *testing.T) {

	a := NewAugment(&AugmentOptions{}, nil, testObs())
	assert.Nil(t, a)
}
