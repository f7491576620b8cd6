package broker

import (
	"net"

	"github.com/lattixio/telemetry-mesh/wire"
)

// event is the union of everything the loop goroutine can react to. Each
// variant is produced by exactly one dedicated I/O goroutine and carries
// enough information for the loop to process it without touching the
// network again. The loop goroutine is the sole mutator of the registry,
// the ARP-cache-equivalent state here being none; see broker.go.
type event interface{}

// acceptedEvent reports a freshly accepted stream connection. Until its
// first CONNECT frame arrives, the connection has no subscriber record.
type acceptedEvent struct {
	conn net.Conn
}

// datagramEvent reports one received publisher datagram, already copied
// out of the reusable receive buffer.
type datagramEvent struct {
	data []byte
	addr net.Addr
}

// stdinLineEvent reports one line read from standard input.
type stdinLineEvent struct {
	line string
}

// frameEvent reports one fully-drained envelope from a subscriber
// connection.
type frameEvent struct {
	conn  net.Conn
	kind  wire.EnvelopeKind
	inner []byte
}

// connGoneEvent reports that a subscriber connection's read loop ended,
// either because the peer closed the connection or because a malformed
// frame arrived. Both outcomes converge on the same handling: detach and
// close (§7).
type connGoneEvent struct {
	conn net.Conn
	err  error
}
