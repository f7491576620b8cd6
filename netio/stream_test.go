package netio_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattixio/telemetry-mesh/netio"
	"github.com/lattixio/telemetry-mesh/wire"
)

func TestSendAllRecvAllRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	payload := []byte("hello, subscriber")
	go func() {
		_ = netio.SendAll(client, payload)
	}()

	got := make([]byte, len(payload))
	require.NoError(t, netio.RecvAll(server, got))
	assert.Equal(t, payload, got)
}

func TestRecvAllPeerClosed(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	require.NoError(t, client.Close())

	buf := make([]byte, 4)
	err := netio.RecvAll(server, buf)
	assert.ErrorIs(t, err, netio.ErrPeerClosed)
}

func TestEnvelopeRoundTripOverConn(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	inner, err := wire.EncodeRequest(wire.Request{Kind: wire.ReqConnect, ClientID: "sa"})
	require.NoError(t, err)

	go func() {
		_ = netio.WriteEnvelope(client, wire.EnvelopeRequest, inner)
	}()

	kind, gotInner, err := netio.ReadEnvelope(server)
	require.NoError(t, err)
	assert.Equal(t, wire.EnvelopeRequest, kind)
	assert.Equal(t, inner, gotInner)
}
