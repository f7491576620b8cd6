package router

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/lattixio/telemetry-mesh/arp"
	"github.com/lattixio/telemetry-mesh/routing"
)

// RouteEntry is one longest-prefix-match routing table row (§3.2).
type RouteEntry struct {
	Prefix  uint32
	Mask    uint32
	NextHop uint32
	Iface   int
}

// Table wraps the generic binary trie with IPv4-routing-table semantics.
type Table struct {
	trie *routing.Trie[RouteEntry]
}

// NewTable returns an empty routing table.
func NewTable() *Table {
	return &Table{trie: routing.New[RouteEntry]()}
}

// Insert adds entry, keyed on its prefix and the ones-count of its mask.
func (t *Table) Insert(entry RouteEntry) {
	t.trie.Insert(entry.Prefix, maskLen(entry.Mask), entry)
}

// Lookup performs a longest-prefix-match for dst.
func (t *Table) Lookup(dst uint32) (RouteEntry, bool) {
	return t.trie.LongestPrefixMatch(dst)
}

// maskLen counts the leading ones of a left-contiguous-ones mask.
func maskLen(mask uint32) int {
	n := 0
	for i := 31; i >= 0; i-- {
		if mask&(1<<uint(i)) == 0 {
			break
		}
		n++
	}
	return n
}

func ipv4ToUint32(ip net.IP) (uint32, error) {
	v4 := ip.To4()
	if v4 == nil {
		return 0, fmt.Errorf("router: %q is not a dotted-quad IPv4 address", ip.String())
	}
	return binary.BigEndian.Uint32(v4), nil
}

func parseDottedQuad(s string) (uint32, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return 0, fmt.Errorf("router: invalid address %q", s)
	}
	return ipv4ToUint32(ip)
}

// LoadRoutingTable reads the static routing-table file format from §6.4:
// one entry per line, whitespace-separated "prefix next_hop mask
// interface_index", addresses in dotted-quad.
func LoadRoutingTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table := NewTable()
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("router: routing table line %d: expected 4 fields, got %d", lineNo, len(fields))
		}

		prefix, err := parseDottedQuad(fields[0])
		if err != nil {
			return nil, fmt.Errorf("router: routing table line %d: %w", lineNo, err)
		}
		nextHop, err := parseDottedQuad(fields[1])
		if err != nil {
			return nil, fmt.Errorf("router: routing table line %d: %w", lineNo, err)
		}
		mask, err := parseDottedQuad(fields[2])
		if err != nil {
			return nil, fmt.Errorf("router: routing table line %d: %w", lineNo, err)
		}
		iface, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, fmt.Errorf("router: routing table line %d: bad interface index: %w", lineNo, err)
		}

		table.Insert(RouteEntry{Prefix: prefix, Mask: mask, NextHop: nextHop, Iface: iface})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

// LoadStaticARP reads the optional ARP seed file format from §6.4: one
// entry per line, "ipv4 mac_colon_hex". Supplements dynamic ARP resolution
// (§4.6) rather than replacing it — see SPEC_FULL.md §3.
func LoadStaticARP(path string) ([]ArpSeedEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []ArpSeedEntry
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("router: arp table line %d: expected 2 fields, got %d", lineNo, len(fields))
		}

		ipVal, err := parseDottedQuad(fields[0])
		if err != nil {
			return nil, fmt.Errorf("router: arp table line %d: %w", lineNo, err)
		}
		mac, err := net.ParseMAC(fields[1])
		if err != nil {
			return nil, fmt.Errorf("router: arp table line %d: %w", lineNo, err)
		}

		var entry ArpSeedEntry
		binary.BigEndian.PutUint32(entry.IP[:], ipVal)
		copy(entry.MAC[:], mac)
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ArpSeedEntry is one parsed line of an ARP seed file.
type ArpSeedEntry struct {
	IP  [4]byte
	MAC arp.HardwareAddr
}
