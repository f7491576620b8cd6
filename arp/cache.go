// Package arp implements the router's ARP cache: a map from IPv4 address
// to hardware address, and a per-address queue of frames awaiting
// resolution. Grounded on original_source/dataplane-router/arp-table.{hpp,cpp}.
package arp

// HardwareAddr is a 6-byte Ethernet MAC address.
type HardwareAddr [6]byte

// PendingFrame is a fully-owned copy of an outgoing link-layer frame
// awaiting ARP resolution for its next hop, plus the interface it should
// be transmitted on once resolved. It owns its own byte buffer because the
// caller's receive/build buffer is reused on the next event-loop
// iteration; no sharing, no lifetime entanglement with that buffer.
type PendingFrame struct {
	OutIface int
	Frame    []byte
}

// Cache maps IPv4 addresses to hardware addresses, plus a queue of frames
// waiting on each unresolved address. Owned exclusively by the router's
// single loop goroutine; no internal locking.
type Cache struct {
	entries map[[4]byte]HardwareAddr
	pending map[[4]byte][]PendingFrame
}

// New returns an empty ARP cache.
func New() *Cache {
	return &Cache{
		entries: make(map[[4]byte]HardwareAddr),
		pending: make(map[[4]byte][]PendingFrame),
	}
}

// Lookup returns the hardware address cached for ip, if any.
func (c *Cache) Lookup(ip [4]byte) (HardwareAddr, bool) {
	mac, ok := c.entries[ip]
	return mac, ok
}

// Insert records the mapping ip -> mac, overwriting any prior entry.
func (c *Cache) Insert(ip [4]byte, mac HardwareAddr) {
	c.entries[ip] = mac
}

// EnqueuePending appends pf to ip's pending queue, creating the queue if
// it does not already exist.
func (c *Cache) EnqueuePending(ip [4]byte, pf PendingFrame) {
	c.pending[ip] = append(c.pending[ip], pf)
}

// DrainPending removes and returns ip's pending queue in arrival order. An
// empty or absent queue reports ok=false.
func (c *Cache) DrainPending(ip [4]byte) (frames []PendingFrame, ok bool) {
	frames, ok = c.pending[ip]
	if !ok || len(frames) == 0 {
		return nil, false
	}
	delete(c.pending, ip)
	return frames, true
}

// HasPending reports whether ip already has an outstanding queue, useful
// for implementations that want a "one outstanding ARP request per IP"
// guard (§9 of the protocol design permits, but does not require, this).
func (c *Cache) HasPending(ip [4]byte) bool {
	frames, ok := c.pending[ip]
	return ok && len(frames) > 0
}
