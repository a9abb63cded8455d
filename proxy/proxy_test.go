package proxy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundRobinSwitcher(t *testing.T) {
	fn, err := RoundRobinSwitcher("http://127.0.0.1:8888", "http://127.0.0.1:8889")
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	var hosts []string
	for i := 0; i < 4; i++ {
		u, err := fn(req)
		require.NoError(t, err)
		hosts = append(hosts, u.Host)
	}
	assert.Equal(t, []string{"127.0.0.1:8888", "127.0.0.1:8889", "127.0.0.1:8888", "127.0.0.1:8889"}, hosts)
}

func TestRoundRobinSwitcher_Invalid(t *testing.T) {
	_, err := RoundRobinSwitcher()
	assert.Error(t, err)

	_, err = RoundRobinSwitcher("http://ok:1", "://bad")
	assert.Error(t, err)
}
