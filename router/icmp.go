package router

import (
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// quotedPacket returns a copy of the part of the original datagram embedded
// inside an ICMP error: the original IPv4 header plus the first 8 bytes of
// its payload.
func quotedPacket(ipHeaderBytes []byte, ipHeaderLen int, fullBuf []byte) []byte {
	end := ipHeaderLen + 8
	if end > len(fullBuf) {
		end = len(fullBuf)
	}
	quoted := make([]byte, end)
	copy(quoted, fullBuf[:end])
	return quoted
}

// buildICMPTimeExceeded renders a "time exceeded in transit" (type 11,
// code 0) ICMP message quoting the original packet.
func buildICMPTimeExceeded(quoted []byte) ([]byte, error) {
	m := icmp.Message{
		Type: ipv4.ICMPTypeTimeExceeded,
		Code: 0,
		Body: &icmp.TimeExceeded{Data: quoted},
	}
	return m.Marshal(nil)
}

// buildICMPDestUnreachable renders a "destination unreachable, net" (type
// 3, code 0) ICMP message quoting the original packet.
func buildICMPDestUnreachable(quoted []byte) ([]byte, error) {
	m := icmp.Message{
		Type: ipv4.ICMPTypeDestinationUnreachable,
		Code: 0,
		Body: &icmp.DstUnreach{Data: quoted},
	}
	return m.Marshal(nil)
}

// buildICMPEchoReply mirrors an echo request's identifier, sequence, and
// data back as an echo reply (type 0, code 0).
func buildICMPEchoReply(id, seq int, data []byte) ([]byte, error) {
	m := icmp.Message{
		Type: ipv4.ICMPTypeEchoReply,
		Code: 0,
		Body: &icmp.Echo{ID: id, Seq: seq, Data: data},
	}
	return m.Marshal(nil)
}

// parseEchoRequest extracts the identifier, sequence, and data from an
// ICMP echo request body.
func parseEchoRequest(body []byte) (id, seq int, data []byte, ok bool) {
	msg, err := icmp.ParseMessage(ProtoICMP, body)
	if err != nil || msg.Type != ipv4.ICMPTypeEcho {
		return 0, 0, nil, false
	}
	echo, ok := msg.Body.(*icmp.Echo)
	if !ok {
		return 0, 0, nil, false
	}
	return echo.ID, echo.Seq, echo.Data, true
}
