package proxy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectClient(t *testing.T) {
	t.Parallel()

	c, err := NewSocksClient("")
	require.NoError(t, err)
	assert.Nil(t, c.Transport)
	assert.Equal(t, clientTimeout, c.Timeout)
}

func TestSocksClientRoutesThroughDialer(t *testing.T) {
	t.Parallel()

	c, err := NewSocksClient("127.0.0.1:1080")
	require.NoError(t, err)

	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.NotNil(t, tr.DialContext)
	assert.Nil(t, tr.Proxy)
}
