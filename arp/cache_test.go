package arp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattixio/telemetry-mesh/arp"
)

func TestLookupMiss(t *testing.T) {
	c := arp.New()
	_, ok := c.Lookup([4]byte{10, 0, 0, 1})
	assert.False(t, ok)
}

func TestInsertThenLookup(t *testing.T) {
	c := arp.New()
	mac := arp.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	c.Insert([4]byte{10, 0, 0, 1}, mac)

	got, ok := c.Lookup([4]byte{10, 0, 0, 1})
	require.True(t, ok)
	assert.Equal(t, mac, got)
}

func TestPendingQueueFIFO(t *testing.T) {
	c := arp.New()
	next := [4]byte{10, 0, 0, 254}

	c.EnqueuePending(next, arp.PendingFrame{OutIface: 0, Frame: []byte("frame-1")})
	c.EnqueuePending(next, arp.PendingFrame{OutIface: 0, Frame: []byte("frame-2")})

	assert.True(t, c.HasPending(next))

	frames, ok := c.DrainPending(next)
	require.True(t, ok)
	require.Len(t, frames, 2)
	assert.Equal(t, "frame-1", string(frames[0].Frame))
	assert.Equal(t, "frame-2", string(frames[1].Frame))

	assert.False(t, c.HasPending(next))
	_, ok = c.DrainPending(next)
	assert.False(t, ok)
}

func TestDrainPendingAbsentIsMiss(t *testing.T) {
	c := arp.New()
	_, ok := c.DrainPending([4]byte{1, 2, 3, 4})
	assert.False(t, ok)
}
