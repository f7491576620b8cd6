//go:build linux

package router

import (
	"fmt"
	"net"
	"syscall"
)

// RawSocketTransport is a FrameSender backed by one AF_PACKET raw socket
// per bound interface. No dependency in the retrieved example pack touches
// link-layer raw sockets (none of them need to; they all transport over
// TCP/HTTP/gRPC/etc.), so this is hand-rolled against the standard
// library's syscall package rather than against a third-party library —
// the stdlib syscall.SockaddrLinklayer on linux is exactly the AF_PACKET
// binding primitive this needs, with nothing upstream to wrap it.
type RawSocketTransport struct {
	socks []rawSock
}

type rawSock struct {
	fd      int
	ifIndex int
}

// NewRawSocketTransport opens and binds one raw socket per name, in order;
// the resulting dense index (0, 1, 2, ...) is the interface index the
// router engine uses everywhere else.
func NewRawSocketTransport(names []string) (*RawSocketTransport, error) {
	t := &RawSocketTransport{}
	for _, name := range names {
		ifc, err := net.InterfaceByName(name)
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("router: resolving interface %q: %w", name, err)
		}

		fd, err := syscall.Socket(syscall.AF_PACKET, syscall.SOCK_RAW, int(htons(syscall.ETH_P_ALL)))
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("router: opening raw socket for %q: %w", name, err)
		}

		addr := &syscall.SockaddrLinklayer{Protocol: htons(syscall.ETH_P_ALL), Ifindex: ifc.Index}
		if err := syscall.Bind(fd, addr); err != nil {
			syscall.Close(fd)
			t.Close()
			return nil, fmt.Errorf("router: binding raw socket to %q: %w", name, err)
		}

		t.socks = append(t.socks, rawSock{fd: fd, ifIndex: ifc.Index})
	}
	return t, nil
}

func htons(h uint16) uint16 {
	return (h<<8)&0xff00 | h>>8
}

// Send implements FrameSender.
func (t *RawSocketTransport) Send(iface int, frame []byte) error {
	if iface < 0 || iface >= len(t.socks) {
		return ErrUnknownInterface
	}
	return syscall.Sendto(t.socks[iface].fd, frame, 0, &syscall.SockaddrLinklayer{
		Protocol: htons(syscall.ETH_P_ALL),
		Ifindex:  t.socks[iface].ifIndex,
		Halen:    6,
	})
}

// RecvLoop blocks reading frames from the given interface index, invoking
// handle for each one, until the socket is closed.
func (t *RawSocketTransport) RecvLoop(iface int, handle func(iface int, frame []byte)) error {
	if iface < 0 || iface >= len(t.socks) {
		return ErrUnknownInterface
	}
	fd := t.socks[iface].fd
	buf := make([]byte, 65536)
	for {
		n, _, err := syscall.Recvfrom(fd, buf, 0)
		if err != nil {
			return err
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		handle(iface, frame)
	}
}

// Close releases every bound socket, returning the first error encountered.
func (t *RawSocketTransport) Close() error {
	var firstErr error
	for _, s := range t.socks {
		if err := syscall.Close(s.fd); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	t.socks = nil
	return firstErr
}
