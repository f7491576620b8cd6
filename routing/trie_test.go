package routing_test

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattixio/telemetry-mesh/routing"
)

func ip(s string) uint32 {
	return binary.BigEndian.Uint32(net.ParseIP(s).To4())
}

func TestLongestPrefixMatch(t *testing.T) {
	tr := routing.New[string]()
	tr.Insert(ip("10.0.0.0"), 8, "if0")
	tr.Insert(ip("10.1.0.0"), 16, "if1")
	tr.Insert(ip("10.1.2.0"), 24, "if2")

	v, ok := tr.LongestPrefixMatch(ip("10.1.2.7"))
	require.True(t, ok)
	assert.Equal(t, "if2", v)

	v, ok = tr.LongestPrefixMatch(ip("10.1.3.5"))
	require.True(t, ok)
	assert.Equal(t, "if1", v)

	v, ok = tr.LongestPrefixMatch(ip("10.2.0.1"))
	require.True(t, ok)
	assert.Equal(t, "if0", v)

	_, ok = tr.LongestPrefixMatch(ip("11.0.0.1"))
	assert.False(t, ok)
}

func TestEraseThenLookup(t *testing.T) {
	tr := routing.New[string]()
	tr.Insert(ip("10.0.0.0"), 8, "if0")
	tr.Insert(ip("10.1.0.0"), 16, "if1")

	ok := tr.Erase(ip("10.1.0.0"), 16)
	require.True(t, ok)

	v, found := tr.LongestPrefixMatch(ip("10.1.2.7"))
	require.True(t, found)
	assert.Equal(t, "if0", v, "erased entry must no longer win the match")

	v, found = tr.LongestPrefixMatch(ip("10.0.5.5"))
	require.True(t, found)
	assert.Equal(t, "if0", v, "unrelated entry still resolves")
}

func TestEraseUnknownEntry(t *testing.T) {
	tr := routing.New[string]()
	tr.Insert(ip("10.0.0.0"), 8, "if0")
	assert.False(t, tr.Erase(ip("192.168.0.0"), 16))
}

func TestEraseUnlinksStructuralNodes(t *testing.T) {
	tr := routing.New[string]()
	tr.Insert(ip("10.1.2.0"), 24, "if2")
	require.True(t, tr.Erase(ip("10.1.2.0"), 24))

	_, found := tr.LongestPrefixMatch(ip("10.1.2.7"))
	assert.False(t, found)
}

func TestDefaultRouteZeroPrefixLen(t *testing.T) {
	tr := routing.New[string]()
	tr.Insert(0, 0, "default")
	tr.Insert(ip("10.0.0.0"), 8, "if0")

	v, ok := tr.LongestPrefixMatch(ip("192.168.1.1"))
	require.True(t, ok)
	assert.Equal(t, "default", v)

	v, ok = tr.LongestPrefixMatch(ip("10.5.5.5"))
	require.True(t, ok)
	assert.Equal(t, "if0", v)
}
