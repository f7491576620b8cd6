// Package router implements the IPv4 dispatch and forwarding pipeline: frame
// dispatch by ethertype, IPv4 header validation and checksum, TTL handling,
// ICMP error generation, and ARP-gated transmission. Grounded on
// original_source/dataplane-router/router.{hpp,cpp}; the L2/L3/ICMP wire
// formats have no analogue among the retrieved Go example repos (none touch
// raw Ethernet framing), so the Ethernet, ARP and IPv4 headers are built by
// hand against encoding/binary, while IPv4-header parsing and ICMP-message
// construction reuse golang.org/x/net/ipv4 and golang.org/x/net/icmp, both
// already direct dependencies of the teacher's go.mod.
package router

import (
	"encoding/binary"
	"errors"

	"github.com/lattixio/telemetry-mesh/arp"
)

// EtherType is the 16-bit Ethernet payload type field.
type EtherType uint16

const (
	// EtherTypeIPv4 tags an IPv4 payload.
	EtherTypeIPv4 EtherType = 0x0800
	// EtherTypeARP tags an ARP payload.
	EtherTypeARP EtherType = 0x0806
)

// EthernetHeaderLen is dst(6) + src(6) + ethertype(2).
const EthernetHeaderLen = 14

// ErrFrameTooSmall is returned when a frame is smaller than the header it
// is being parsed as.
var ErrFrameTooSmall = errors.New("router: frame too small")

// EthernetFrame is a parsed link-layer frame: header fields plus the
// unparsed payload slice (which aliases the input buffer).
type EthernetFrame struct {
	Dst       arp.HardwareAddr
	Src       arp.HardwareAddr
	EtherType EtherType
	Payload   []byte
}

// ParseEthernet rejects frames smaller than the Ethernet header and
// otherwise splits header fields from payload.
func ParseEthernet(buf []byte) (EthernetFrame, error) {
	if len(buf) < EthernetHeaderLen {
		return EthernetFrame{}, ErrFrameTooSmall
	}
	var f EthernetFrame
	copy(f.Dst[:], buf[0:6])
	copy(f.Src[:], buf[6:12])
	f.EtherType = EtherType(binary.BigEndian.Uint16(buf[12:14]))
	f.Payload = buf[EthernetHeaderLen:]
	return f, nil
}

// BuildEthernet renders an Ethernet header followed by payload into a
// freshly allocated, fully-owned buffer.
func BuildEthernet(dst, src arp.HardwareAddr, et EtherType, payload []byte) []byte {
	out := make([]byte, EthernetHeaderLen+len(payload))
	copy(out[0:6], dst[:])
	copy(out[6:12], src[:])
	binary.BigEndian.PutUint16(out[12:14], uint16(et))
	copy(out[EthernetHeaderLen:], payload)
	return out
}
