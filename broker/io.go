package broker

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"strings"

	"github.com/lattixio/telemetry-mesh/netio"
	"github.com/lattixio/telemetry-mesh/wire"
)

// acceptLoop is the listen-socket I/O goroutine: purely mechanical,
// forwards every accepted connection to the loop goroutine and never
// touches broker state itself.
func (b *Broker) acceptLoop(ctx context.Context) {
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Error("accept failed", slog.String("error", err.Error()))
			continue
		}
		select {
		case b.events <- acceptedEvent{conn: conn}:
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}

// datagramLoop is the UDP-socket I/O goroutine: reads into a single
// reusable buffer sized to the maximum legal datagram (§5, "buffers... are
// reused across iterations"), then hands the loop goroutine its own copy.
func (b *Broker) datagramLoop(ctx context.Context) {
	buf := make([]byte, wire.MaxDatagramSize)
	for {
		n, addr, err := b.udp.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Error("datagram read failed", slog.String("error", err.Error()))
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case b.events <- datagramEvent{data: data, addr: addr}:
		case <-ctx.Done():
			return
		}
	}
}

// stdinLoop is the standard-input I/O goroutine (§4.4 step 2, §6.3).
func (b *Broker) stdinLoop(ctx context.Context) {
	scanner := bufio.NewScanner(b.stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		select {
		case b.events <- stdinLineEvent{line: line}:
		case <-ctx.Done():
			return
		}
	}
}

// connReadLoop is a per-subscriber I/O goroutine: it drains envelopes in a
// tight loop and forwards each to the loop goroutine, which is the only
// place that ever acts on them. A read or decode failure reports
// connGoneEvent once and the goroutine exits; the loop goroutine owns
// deciding what "gone" means (detach + close either way, per §7).
func (b *Broker) connReadLoop(ctx context.Context, conn net.Conn) {
	for {
		kind, inner, err := netio.ReadEnvelope(conn)
		if err != nil {
			b.reportGone(ctx, conn, err)
			return
		}
		select {
		case b.events <- frameEvent{conn: conn, kind: kind, inner: inner}:
		case <-ctx.Done():
			return
		}
	}
}

func (b *Broker) reportGone(ctx context.Context, conn net.Conn, err error) {
	select {
	case b.events <- connGoneEvent{conn: conn, err: err}:
	case <-ctx.Done():
	}
}
