package broker_test

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lattixio/telemetry-mesh/broker"
	"github.com/lattixio/telemetry-mesh/netio"
	"github.com/lattixio/telemetry-mesh/wire"
)

type testBroker struct {
	b       *broker.Broker
	tcpAddr net.Addr
	udpAddr net.Addr
	stdinW  io.WriteCloser
	doneCh  chan error
}

func startTestBroker(t *testing.T) *testBroker {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	udp, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	stdinR, stdinW := io.Pipe()
	b := broker.New(ln, udp, stdinR, nil)

	tb := &testBroker{b: b, tcpAddr: ln.Addr(), udpAddr: udp.LocalAddr(), stdinW: stdinW, doneCh: make(chan error, 1)}
	go func() {
		tb.doneCh <- b.Run(context.Background())
	}()
	return tb
}

func (tb *testBroker) shutdown(t *testing.T) {
	t.Helper()
	_, err := tb.stdinW.Write([]byte("exit\n"))
	require.NoError(t, err)
	select {
	case err := <-tb.doneCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("broker did not shut down in time")
	}
}

func dialSubscriber(t *testing.T, addr net.Addr, clientID string, topics ...string) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)

	connectInner, err := wire.EncodeRequest(wire.Request{Kind: wire.ReqConnect, ClientID: clientID})
	require.NoError(t, err)
	require.NoError(t, netio.WriteEnvelope(conn, wire.EnvelopeRequest, connectInner))

	for _, topic := range topics {
		subInner, err := wire.EncodeRequest(wire.Request{Kind: wire.ReqSubscribe, Topic: topic})
		require.NoError(t, err)
		require.NoError(t, netio.WriteEnvelope(conn, wire.EnvelopeRequest, subInner))
	}
	return conn
}

func publish(t *testing.T, udpAddr net.Addr, topic string, payload wire.Payload) {
	t.Helper()
	conn, err := net.Dial("udp", udpAddr.String())
	require.NoError(t, err)
	defer conn.Close()

	datagram, err := wire.EncodeUdpMessage(wire.UdpMessage{Topic: topic, Payload: payload})
	require.NoError(t, err)
	_, err = conn.Write(datagram)
	require.NoError(t, err)
}

func readResponse(t *testing.T, conn net.Conn) wire.Response {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, inner, err := netio.ReadEnvelope(conn)
	require.NoError(t, err)
	require.Equal(t, wire.EnvelopeResponse, kind)
	resp, err := wire.DecodeResponse(inner)
	require.NoError(t, err)
	return resp
}

func TestPublishDeliversToMatchingSubscribers(t *testing.T) {
	tb := startTestBroker(t)
	defer tb.shutdown(t)

	connA := dialSubscriber(t, tb.tcpAddr, "sa", "temp/*")
	defer connA.Close()
	connB := dialSubscriber(t, tb.tcpAddr, "sb", "temp/+/room")
	defer connB.Close()

	time.Sleep(100 * time.Millisecond)

	publish(t, tb.udpAddr, "temp/floor1/room", wire.Payload{Kind: wire.KindInt, IntNegative: false, IntMagnitude: 42})

	respA := readResponse(t, connA)
	require.Equal(t, "temp/floor1/room", respA.Topic)
	require.Equal(t, wire.KindInt, respA.Payload.Kind)
	require.Equal(t, uint32(42), respA.Payload.IntMagnitude)
	require.False(t, respA.Payload.IntNegative)

	respB := readResponse(t, connB)
	require.Equal(t, "temp/floor1/room", respB.Topic)
}

func TestPublishWithNoMatchDeliversNothing(t *testing.T) {
	tb := startTestBroker(t)
	defer tb.shutdown(t)

	connA := dialSubscriber(t, tb.tcpAddr, "sa", "alpha/+")
	defer connA.Close()

	time.Sleep(100 * time.Millisecond)
	publish(t, tb.udpAddr, "beta/x", wire.Payload{Kind: wire.KindInt, IntMagnitude: 1})

	require.NoError(t, connA.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err := netio.ReadEnvelope(connA)
	require.Error(t, err)
}

func TestDetachPreservesSubscriptionsAcrossReconnect(t *testing.T) {
	tb := startTestBroker(t)
	defer tb.shutdown(t)

	connA := dialSubscriber(t, tb.tcpAddr, "sa", "x/*/z")
	time.Sleep(100 * time.Millisecond)

	connA.Close()
	time.Sleep(100 * time.Millisecond)

	publish(t, tb.udpAddr, "x/a/b/z", wire.Payload{Kind: wire.KindShortReal, ShortRealMagnitude: 100})
	time.Sleep(100 * time.Millisecond)

	connA2 := dialSubscriber(t, tb.tcpAddr, "sa")
	defer connA2.Close()
	time.Sleep(100 * time.Millisecond)

	publish(t, tb.udpAddr, "x/a/b/z", wire.Payload{Kind: wire.KindShortReal, ShortRealMagnitude: 200})

	resp := readResponse(t, connA2)
	require.Equal(t, "x/a/b/z", resp.Topic)
	require.Equal(t, uint16(200), resp.Payload.ShortRealMagnitude)
}

func TestMalformedDatagramIsolatesSubsequentPublications(t *testing.T) {
	tb := startTestBroker(t)
	defer tb.shutdown(t)

	connA := dialSubscriber(t, tb.tcpAddr, "sa", "x/y")
	defer connA.Close()
	time.Sleep(100 * time.Millisecond)

	udpConn, err := net.Dial("udp", tb.udpAddr.String())
	require.NoError(t, err)
	_, err = udpConn.Write(make([]byte, 10))
	require.NoError(t, err)
	udpConn.Close()

	time.Sleep(100 * time.Millisecond)
	publish(t, tb.udpAddr, "x/y", wire.Payload{Kind: wire.KindInt, IntMagnitude: 7})

	resp := readResponse(t, connA)
	require.Equal(t, "x/y", resp.Topic)
}

func TestAlreadyConnectedClosesNewSocketKeepsIncumbent(t *testing.T) {
	tb := startTestBroker(t)
	defer tb.shutdown(t)

	connA := dialSubscriber(t, tb.tcpAddr, "dup", "x/y")
	defer connA.Close()
	time.Sleep(100 * time.Millisecond)

	connA2, err := net.Dial("tcp", tb.tcpAddr.String())
	require.NoError(t, err)
	connectInner, err := wire.EncodeRequest(wire.Request{Kind: wire.ReqConnect, ClientID: "dup"})
	require.NoError(t, err)
	require.NoError(t, netio.WriteEnvelope(connA2, wire.EnvelopeRequest, connectInner))

	require.NoError(t, connA2.SetReadDeadline(time.Now().Add(500*time.Millisecond)))
	buf := make([]byte, 1)
	_, err = connA2.Read(buf)
	require.Error(t, err, "the duplicate connection should be closed by the broker")

	time.Sleep(100 * time.Millisecond)
	publish(t, tb.udpAddr, "x/y", wire.Payload{Kind: wire.KindInt, IntMagnitude: 9})
	resp := readResponse(t, connA)
	require.Equal(t, "x/y", resp.Topic)
}
