package router

import (
	"encoding/binary"
	"log/slog"

	"github.com/lattixio/telemetry-mesh/arp"
)

// DefaultTTL is the TTL stamped on packets the router itself originates
// (ICMP replies and errors).
const DefaultTTL = 64

var broadcastMAC = arp.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// FrameSender transmits a fully-built link-layer frame on the given
// interface index. Implementations wrap whatever raw-socket facility the
// host OS exposes; the engine itself is transport-agnostic.
type FrameSender interface {
	Send(iface int, frame []byte) error
}

// IfaceResolver resolves an interface index to its own (IP, MAC) pair.
// *IfaceTable is the production implementation; tests substitute a fake so
// they do not depend on the host's real network interfaces.
type IfaceResolver interface {
	Info(idx int) (IfaceInfo, error)
}

// Engine dispatches received frames, validates and forwards IPv4 packets,
// and resolves next hops through the ARP cache. All of its state (routing
// table, ARP cache) is owned by a single caller goroutine; no locking.
type Engine struct {
	Table  *Table
	ARP    *arp.Cache
	Ifaces IfaceResolver
	Sender FrameSender
	Logger *slog.Logger
}

// NewEngine wires together the router's forwarding pipeline.
func NewEngine(table *Table, cache *arp.Cache, ifaces IfaceResolver, sender FrameSender, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Table: table, ARP: cache, Ifaces: ifaces, Sender: sender, Logger: logger}
}

// HandleFrame is the top-level frame dispatch entry point (§4.6 step 1-2):
// reject undersized frames, then dispatch by ethertype.
func (e *Engine) HandleFrame(inIface int, frame []byte) error {
	eth, err := ParseEthernet(frame)
	if err != nil {
		e.Logger.Warn("dropping undersized frame", slog.Int("iface", inIface), slog.Int("len", len(frame)))
		return nil
	}

	switch eth.EtherType {
	case EtherTypeARP:
		return e.handleARP(inIface, eth)
	case EtherTypeIPv4:
		return e.handleIPv4(inIface, eth)
	default:
		e.Logger.Debug("dropping unknown ethertype", slog.Int("ethertype", int(eth.EtherType)))
		return nil
	}
}

func (e *Engine) handleARP(inIface int, eth EthernetFrame) error {
	pkt, err := ParseARP(eth.Payload)
	if err != nil {
		e.Logger.Debug("dropping malformed arp packet", slog.String("error", err.Error()))
		return nil
	}

	switch pkt.Opcode {
	case ArpRequest:
		own, err := e.Ifaces.Info(inIface)
		if err != nil || own.IP != pkt.TargetIP {
			return nil
		}
		reply := ArpPacket{
			Opcode:   ArpReply,
			SenderHW: own.MAC,
			SenderIP: own.IP,
			TargetHW: pkt.SenderHW,
			TargetIP: pkt.SenderIP,
		}
		frame := BuildEthernet(pkt.SenderHW, own.MAC, EtherTypeARP, BuildARP(reply))
		return e.Sender.Send(inIface, frame)

	case ArpReply:
		e.ARP.Insert(pkt.SenderIP, pkt.SenderHW)
		frames, ok := e.ARP.DrainPending(pkt.SenderIP)
		if !ok {
			return nil
		}
		for _, pf := range frames {
			copy(pf.Frame[0:6], pkt.SenderHW[:])
			if err := e.Sender.Send(pf.OutIface, pf.Frame); err != nil {
				e.Logger.Warn("failed to transmit drained pending frame", slog.String("error", err.Error()))
			}
		}
		return nil

	default:
		e.Logger.Debug("dropping unknown arp opcode", slog.Int("opcode", int(pkt.Opcode)))
		return nil
	}
}

func (e *Engine) handleIPv4(inIface int, eth EthernetFrame) error {
	payload := eth.Payload
	h, headerLen, err := parseIPv4(payload)
	if err != nil {
		e.Logger.Warn("dropping malformed ipv4 frame", slog.Int("len", len(payload)), slog.String("error", err.Error()))
		return nil
	}

	own, err := e.Ifaces.Info(inIface)
	if err != nil {
		e.Logger.Error("failed to resolve own interface info", slog.Int("iface", inIface), slog.String("error", err.Error()))
		return nil
	}

	var dstIP [4]byte
	copy(dstIP[:], h.Dst.To4())
	forUs := dstIP == own.IP

	if h.TTL <= 1 && !forUs {
		e.sendICMPError(inIface, payload, headerLen, buildICMPTimeExceeded)
		return nil
	}

	if !verifyIPv4Checksum(payload, headerLen) {
		e.Logger.Debug("dropping ipv4 frame with bad checksum")
		return nil
	}

	if forUs {
		return e.handleForUs(inIface, payload, headerLen)
	}

	payload[8]--
	rewriteChecksum(payload[:headerLen])
	return e.forward(inIface, payload, false)
}

func (e *Engine) handleForUs(inIface int, payload []byte, headerLen int) error {
	proto := payload[9]
	if proto != ProtoICMP {
		e.Logger.Debug("dropping packet for unsupported protocol", slog.Int("protocol", int(proto)))
		return nil
	}

	id, seq, data, ok := parseEchoRequest(payload[headerLen:])
	if !ok {
		e.Logger.Debug("dropping non-echo-request icmp packet addressed to us")
		return nil
	}

	icmpBytes, err := buildICMPEchoReply(id, seq, data)
	if err != nil {
		e.Logger.Error("failed to build icmp echo reply", slog.String("error", err.Error()))
		return nil
	}

	var srcIP, dstIP [4]byte
	copy(srcIP[:], payload[12:16])
	copy(dstIP[:], payload[16:20])

	reply := buildIPv4Packet(dstIP, srcIP, ProtoICMP, DefaultTTL, icmpBytes)
	return e.forward(inIface, reply, false)
}

// buildIPv4Packet renders a minimal 20-byte-header IPv4 packet with a
// freshly computed checksum.
func buildIPv4Packet(src, dst [4]byte, protocol byte, ttl byte, body []byte) []byte {
	totalLen := MinIPv4HeaderLen + len(body)
	buf := make([]byte, totalLen)
	buf[0] = 0x45 // version 4, IHL 5
	buf[1] = 0
	binary.BigEndian.PutUint16(buf[2:4], uint16(totalLen))
	binary.BigEndian.PutUint16(buf[4:6], 0) // identification
	binary.BigEndian.PutUint16(buf[6:8], 0) // flags/fragment offset
	buf[8] = ttl
	buf[9] = protocol
	copy(buf[12:16], src[:])
	copy(buf[16:20], dst[:])
	copy(buf[20:], body)
	rewriteChecksum(buf[:MinIPv4HeaderLen])
	return buf
}

// sendICMPError builds an ICMP error of the given kind quoting the
// original packet and routes it back toward the original source.
func (e *Engine) sendICMPError(inIface int, original []byte, headerLen int, build func([]byte) ([]byte, error)) {
	own, err := e.Ifaces.Info(inIface)
	if err != nil {
		return
	}
	quoted := quotedPacket(original, headerLen, original)
	icmpBytes, err := build(quoted)
	if err != nil {
		e.Logger.Error("failed to build icmp error", slog.String("error", err.Error()))
		return
	}

	var origSrc [4]byte
	copy(origSrc[:], original[12:16])

	errPacket := buildIPv4Packet(own.IP, origSrc, ProtoICMP, DefaultTTL, icmpBytes)
	if err := e.forward(inIface, errPacket, true); err != nil {
		e.Logger.Warn("failed to deliver icmp error", slog.String("error", err.Error()))
	}
}

// forward looks up the destination in the routing table and either
// transmits immediately (ARP hit) or queues the frame pending ARP
// resolution (ARP miss). isErrorReply suppresses generating a further ICMP
// error for a lookup miss on a packet the router itself originated, to
// avoid an error-generates-error loop.
func (e *Engine) forward(inIface int, ipPacket []byte, isErrorReply bool) error {
	var dst [4]byte
	copy(dst[:], ipPacket[16:20])
	dstKey := binary.BigEndian.Uint32(dst[:])

	entry, ok := e.Table.Lookup(dstKey)
	if !ok {
		if !isErrorReply {
			e.sendICMPError(inIface, ipPacket, ipv4HeaderLenOf(ipPacket), buildICMPDestUnreachable)
		}
		return nil
	}

	var nextHop [4]byte
	binary.BigEndian.PutUint32(nextHop[:], entry.NextHop)

	out, err := e.Ifaces.Info(entry.Iface)
	if err != nil {
		return err
	}

	if mac, found := e.ARP.Lookup(nextHop); found {
		frame := BuildEthernet(mac, out.MAC, EtherTypeIPv4, ipPacket)
		return e.Sender.Send(entry.Iface, frame)
	}

	pending := BuildEthernet(arp.HardwareAddr{}, out.MAC, EtherTypeIPv4, ipPacket)
	e.ARP.EnqueuePending(nextHop, arp.PendingFrame{OutIface: entry.Iface, Frame: pending})

	req := ArpPacket{
		Opcode:   ArpRequest,
		SenderHW: out.MAC,
		SenderIP: out.IP,
		TargetIP: nextHop,
	}
	reqFrame := BuildEthernet(broadcastMAC, out.MAC, EtherTypeARP, BuildARP(req))
	return e.Sender.Send(entry.Iface, reqFrame)
}

// LoadStaticARP pre-populates the ARP cache from a static seed file (§3
// supplement), so the router need not wait for a live ARP exchange before
// it can resolve a next hop.
func (e *Engine) LoadStaticARP(path string) error {
	entries, err := LoadStaticARP(path)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		e.ARP.Insert(entry.IP, entry.MAC)
	}
	return nil
}

func ipv4HeaderLenOf(buf []byte) int {
	if len(buf) == 0 {
		return MinIPv4HeaderLen
	}
	return int(buf[0]&0x0F) * 4
}
