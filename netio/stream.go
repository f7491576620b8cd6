// Package netio implements blocking send-all/receive-all helpers over a
// net.Conn, distinguishing peer-close from other transport errors the way
// the broker's event loop needs to (§4.7, §7 of the protocol design).
package netio

import (
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/lattixio/telemetry-mesh/wire"
)

// ErrPeerClosed is returned by SendAll/RecvAll when the peer closed the
// connection: a zero-length read, or a write failing with a broken-pipe or
// connection-reset error. Callers convert this into a subscriber detach
// rather than a logged error.
var ErrPeerClosed = errors.New("netio: peer closed the connection")

// SendAll writes all of buf to conn, looping through short writes.
// Go's net.Conn.Write already loops internally on a blocking connection,
// but the wrapper's role is classifying the failure: a broken pipe or
// connection reset becomes ErrPeerClosed, anything else propagates as-is.
func SendAll(conn net.Conn, buf []byte) error {
	for len(buf) > 0 {
		n, err := conn.Write(buf)
		if err != nil {
			if isPeerClosed(err) {
				return ErrPeerClosed
			}
			return err
		}
		buf = buf[n:]
	}
	return nil
}

// RecvAll reads exactly len(buf) bytes from conn, looping through short
// reads. A zero-length read (io.EOF) before buf is full is reported as
// ErrPeerClosed.
func RecvAll(conn net.Conn, buf []byte) error {
	_, err := io.ReadFull(conn, buf)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || isPeerClosed(err) {
			return ErrPeerClosed
		}
		return err
	}
	return nil
}

func isPeerClosed(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, net.ErrClosed)
}

// ReadEnvelope drains exactly one length-prefixed envelope from conn:
// the fixed header, then its declared inner payload.
func ReadEnvelope(conn net.Conn) (wire.EnvelopeKind, []byte, error) {
	var header [wire.EnvelopeHeaderSize]byte
	if err := RecvAll(conn, header[:]); err != nil {
		return 0, nil, err
	}

	kind, innerSize, err := wire.DecodeEnvelopeHeader(header[:])
	if err != nil {
		return 0, nil, err
	}

	inner := make([]byte, innerSize)
	if err := RecvAll(conn, inner); err != nil {
		return 0, nil, err
	}
	return kind, inner, nil
}

// WriteEnvelope encodes and sends one length-prefixed envelope.
func WriteEnvelope(conn net.Conn, kind wire.EnvelopeKind, inner []byte) error {
	frame, err := wire.EncodeEnvelope(kind, inner)
	if err != nil {
		return err
	}
	return SendAll(conn, frame)
}
