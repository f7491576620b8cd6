package router

import (
	"errors"
	"net"

	"github.com/lattixio/telemetry-mesh/arp"
)

// ErrUnknownInterface is returned for an interface index with no bound
// name.
var ErrUnknownInterface = errors.New("router: unknown interface index")

// IfaceInfo is a resolved interface's own IPv4 address and hardware
// address.
type IfaceInfo struct {
	Name string
	IP   [4]byte
	MAC  arp.HardwareAddr
}

// IfaceTable maps interface index to name (bound at startup from CLI
// arguments, §6.4) and lazily resolves each index's own (IP, MAC) pair on
// first use, since the resolution is a syscall (net.InterfaceByName). The
// design note in §9 permits eager population instead; the semantics are
// identical either way, so this implementation defers to first use.
type IfaceTable struct {
	names []string
	cache map[int]IfaceInfo
}

// NewIfaceTable binds interface names to indices in the given order.
func NewIfaceTable(names []string) *IfaceTable {
	return &IfaceTable{
		names: names,
		cache: make(map[int]IfaceInfo),
	}
}

// Len returns the number of bound interfaces.
func (t *IfaceTable) Len() int {
	return len(t.names)
}

// Info resolves and caches the (name, own IP, own MAC) triple for idx.
func (t *IfaceTable) Info(idx int) (IfaceInfo, error) {
	if info, ok := t.cache[idx]; ok {
		return info, nil
	}
	if idx < 0 || idx >= len(t.names) {
		return IfaceInfo{}, ErrUnknownInterface
	}
	name := t.names[idx]

	ni, err := net.InterfaceByName(name)
	if err != nil {
		return IfaceInfo{}, err
	}
	addrs, err := ni.Addrs()
	if err != nil {
		return IfaceInfo{}, err
	}

	info := IfaceInfo{Name: name}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		v4 := ipNet.IP.To4()
		if v4 == nil {
			continue
		}
		copy(info.IP[:], v4)
		break
	}
	copy(info.MAC[:], ni.HardwareAddr)

	t.cache[idx] = info
	return info, nil
}
