package state

import (
	"fmt"
	"slices"
	"strings"
)

// LinkDesc is one adjacency advertised inside an LSA
type LinkDesc struct {
	Neighbor NodeId
	Port     int32
	Weight   uint16
}

// Same reports whether both descriptors advertise the same adjacency. The port is ignored.
func (d LinkDesc) Same(o LinkDesc) bool {
	return d.Neighbor == o.Neighbor && d.Weight == o.Weight
}

func (d LinkDesc) String() string {
	return fmt.Sprintf("%s,%d,%d", d.Neighbor, d.Port, d.Weight)
}

type LSA struct {
	Origin        NodeId
	Seqno         int32
	Links         []LinkDesc
	WithdrawalAck bool
}

// NewLSA returns the LSA a router starts with: never announced, linked only to itself
func NewLSA(origin NodeId) LSA {
	return LSA{
		Origin: origin,
		Seqno:  InitialSeqno,
		Links:  []LinkDesc{{Neighbor: origin, Port: SelfPort, Weight: 0}},
	}
}

func (l LSA) Clone() LSA {
	l.Links = slices.Clone(l.Links)
	return l
}

// IndexOf returns the index of the first link that is Same as ld, or -1
func (l LSA) IndexOf(ld LinkDesc) int {
	return slices.IndexFunc(l.Links, ld.Same)
}

func (l LSA) String() string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("%s(%d):", l.Origin, l.Seqno))
	for _, ld := range l.Links {
		sb.WriteString("\t")
		sb.WriteString(ld.String())
	}
	return sb.String()
}

// RemovedLinks returns the links of prev that have no counterpart in next
func RemovedLinks(prev, next LSA) []LinkDesc {
	var removed []LinkDesc
	for _, ld := range prev.Links {
		if next.IndexOf(ld) == -1 {
			removed = append(removed, ld)
		}
	}
	return removed
}
