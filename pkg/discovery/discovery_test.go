package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticDiscoverer struct {
	instances []*ServiceInstance
	err       error
}

func (s staticDiscoverer) Discover(context.Context, string) ([]*ServiceInstance, error) {
	return s.instances, s.err
}

func TestParseInstance(t *testing.T) {
	inst, err := ParseInstance("storefront", "10.0.0.5:8000")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", inst.Host)
	assert.Equal(t, 8000, inst.Port)
	assert.Equal(t, "10.0.0.5:8000", inst.Addr())

	_, err = ParseInstance("storefront", "10.0.0.5")
	assert.Error(t, err)
	_, err = ParseInstance("storefront", "host:http")
	assert.Error(t, err)
}

func TestBackendResolverRotates(t *testing.T) {
	r := NewBackendResolver(staticDiscoverer{instances: []*ServiceInstance{
		{Name: "storefront", Host: "a", Port: 1},
		{Name: "storefront", Host: "b", Port: 2},
	}}, "storefront", "api/v2/")

	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		u, err := r.BaseURL(context.Background())
		require.NoError(t, err)
		seen[u] = true
	}
	assert.Equal(t, map[string]bool{"http://a:1/api/v2": true, "http://b:2/api/v2": true}, seen)
}

func TestBackendResolverWithoutInstances(t *testing.T) {
	r := NewBackendResolver(staticDiscoverer{}, "storefront", "")
	_, err := r.BaseURL(context.Background())
	assert.ErrorIs(t, err, ErrNoInstances)

	boom := errors.New("etcd down")
	r = NewBackendResolver(staticDiscoverer{err: boom}, "storefront", "")
	_, err = r.BaseURL(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestBackendResolverEmptyBasePath(t *testing.T) {
	r := NewBackendResolver(staticDiscoverer{instances: []*ServiceInstance{{Host: "a", Port: 1}}}, "storefront", "")
	u, err := r.BaseURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://a:1", u)
}
