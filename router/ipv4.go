package router

import (
	"errors"

	"golang.org/x/net/ipv4"
)

// ErrBadIPv4Header is returned when an IPv4 header fails structural
// validation (length, version) prior to checksum verification.
var ErrBadIPv4Header = errors.New("router: malformed ipv4 header")

// ProtoICMP is the IANA protocol number for ICMP, used both when checking an
// IPv4 header's protocol byte and as icmp.ParseMessage's proto argument.
const ProtoICMP = 1

// MinIPv4HeaderLen is the smallest legal IPv4 header (no options).
const MinIPv4HeaderLen = 20

// checksum computes the 16-bit ones'-complement sum of b, folding carries,
// then returns its ones'-complement (the value that makes a correctly
// checksummed header sum to zero). This exact algorithm has no public
// entry point in golang.org/x/net/ipv4, so it is implemented directly
// against the RFC 1071 definition.
func checksum(b []byte) uint16 {
	var sum uint32
	n := len(b)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(b[i])<<8 | uint32(b[i+1])
	}
	if n%2 == 1 {
		sum += uint32(b[n-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	return ^uint16(sum)
}

// verifyIPv4Checksum reports whether the ones'-complement sum of the first
// headerLen bytes of buf is zero, as required for a header received intact.
func verifyIPv4Checksum(buf []byte, headerLen int) bool {
	if len(buf) < headerLen {
		return false
	}
	var sum uint32
	for i := 0; i+1 < headerLen; i += 2 {
		sum += uint32(buf[i])<<8 | uint32(buf[i+1])
	}
	for sum>>16 != 0 {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	return sum == 0xFFFF
}

// parseIPv4 parses the IPv4 header at the front of buf using
// golang.org/x/net/ipv4, additionally reporting the raw header length in
// bytes (derived from the header's IHL field) so callers can locate the
// checksum field and payload without recomputing it themselves.
func parseIPv4(buf []byte) (*ipv4.Header, int, error) {
	if len(buf) < MinIPv4HeaderLen {
		return nil, 0, ErrBadIPv4Header
	}
	h, err := ipv4.ParseHeader(buf)
	if err != nil {
		return nil, 0, ErrBadIPv4Header
	}
	if h.Version != ipv4.Version || h.Len < MinIPv4HeaderLen || h.Len > len(buf) {
		return nil, 0, ErrBadIPv4Header
	}
	return h, h.Len, nil
}

// rewriteChecksum recomputes and patches the checksum field (always at
// byte offset 10-11 of an IPv4 header, regardless of IHL) in place.
func rewriteChecksum(headerBytes []byte) {
	headerBytes[10] = 0
	headerBytes[11] = 0
	sum := checksum(headerBytes)
	headerBytes[10] = byte(sum >> 8)
	headerBytes[11] = byte(sum)
}
