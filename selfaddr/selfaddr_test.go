package selfaddr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Loopback(t *testing.T) {
	addr, err := Resolve("lo", 8080)
	if err != nil {
		t.Skipf("no loopback interface named %q on this host: %v", "lo", err)
	}
	require.NotEmpty(t, addr)
	assert.Contains(t, addr, ":8080")
}

func TestResolve_UnknownInterface(t *testing.T) {
	_, err := Resolve("definitely-not-a-real-iface-0", 8080)
	assert.Error(t, err)
}
