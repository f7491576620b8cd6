package router

import (
	"encoding/binary"
	"errors"

	"github.com/lattixio/telemetry-mesh/arp"
)

// ArpOpcode distinguishes an ARP request from an ARP reply.
type ArpOpcode uint16

const (
	// ArpRequest asks "who has this IP".
	ArpRequest ArpOpcode = 1
	// ArpReply answers a request.
	ArpReply ArpOpcode = 2
)

const (
	arpHTypeEthernet = 1
	arpPTypeIPv4     = 0x0800
	arpHLenEthernet  = 6
	arpPLenIPv4      = 4
	// ArpPacketLen is the fixed size of an Ethernet/IPv4 ARP packet.
	ArpPacketLen = 8 + 2*arpHLenEthernet + 2*arpPLenIPv4
)

// ErrNotARP is returned when a buffer does not look like an
// Ethernet/IPv4 ARP packet.
var ErrNotARP = errors.New("router: not an ethernet/ipv4 arp packet")

// ArpPacket is a decoded Ethernet/IPv4 ARP request or reply.
type ArpPacket struct {
	Opcode      ArpOpcode
	SenderHW    arp.HardwareAddr
	SenderIP    [4]byte
	TargetHW    arp.HardwareAddr
	TargetIP    [4]byte
}

// ParseARP decodes an Ethernet/IPv4 ARP packet, rejecting any other
// hardware/protocol type or length combination.
func ParseARP(buf []byte) (ArpPacket, error) {
	if len(buf) < ArpPacketLen {
		return ArpPacket{}, ErrFrameTooSmall
	}
	htype := binary.BigEndian.Uint16(buf[0:2])
	ptype := binary.BigEndian.Uint16(buf[2:4])
	hlen := buf[4]
	plen := buf[5]
	if htype != arpHTypeEthernet || ptype != arpPTypeIPv4 || hlen != arpHLenEthernet || plen != arpPLenIPv4 {
		return ArpPacket{}, ErrNotARP
	}

	var p ArpPacket
	p.Opcode = ArpOpcode(binary.BigEndian.Uint16(buf[6:8]))
	copy(p.SenderHW[:], buf[8:14])
	copy(p.SenderIP[:], buf[14:18])
	copy(p.TargetHW[:], buf[18:24])
	copy(p.TargetIP[:], buf[24:28])
	return p, nil
}

// BuildARP renders an Ethernet/IPv4 ARP packet.
func BuildARP(p ArpPacket) []byte {
	buf := make([]byte, ArpPacketLen)
	binary.BigEndian.PutUint16(buf[0:2], arpHTypeEthernet)
	binary.BigEndian.PutUint16(buf[2:4], arpPTypeIPv4)
	buf[4] = arpHLenEthernet
	buf[5] = arpPLenIPv4
	binary.BigEndian.PutUint16(buf[6:8], uint16(p.Opcode))
	copy(buf[8:14], p.SenderHW[:])
	copy(buf[14:18], p.SenderIP[:])
	copy(buf[18:24], p.TargetHW[:])
	copy(buf[24:28], p.TargetIP[:])
	return buf
}
