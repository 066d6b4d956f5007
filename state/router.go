package state

import (
	"fmt"
	"net/netip"
)

// NodeId is the simulated address of a router, written as a dotted quad
type NodeId string

type RouterStatus uint8

const (
	StatusDown RouterStatus = iota
	StatusInit
	StatusTwoWay
)

func (s RouterStatus) String() string {
	switch s {
	case StatusDown:
		return "DOWN"
	case StatusInit:
		return "INIT"
	case StatusTwoWay:
		return "TWO_WAY"
	default:
		return fmt.Sprintf("RouterStatus(%d)", uint8(s))
	}
}

// RouterDesc describes one endpoint of a link. Status is a view of the adjacency and not part of its identity.
type RouterDesc struct {
	Addr   netip.AddrPort
	Id     NodeId
	Status RouterStatus
}

func (r RouterDesc) SameRouter(o RouterDesc) bool {
	return r.Id == o.Id && r.Addr == o.Addr
}

func (r RouterDesc) String() string {
	return fmt.Sprintf("%s@%s", r.Id, r.Addr)
}

type Link struct {
	Local  RouterDesc
	Remote RouterDesc
	Weight uint16
}

// Equal compares the unordered endpoint pair and the weight
func (l Link) Equal(o Link) bool {
	if l.Weight != o.Weight {
		return false
	}
	if l.Local.SameRouter(o.Local) && l.Remote.SameRouter(o.Remote) {
		return true
	}
	return l.Local.SameRouter(o.Remote) && l.Remote.SameRouter(o.Local)
}

// OtherEnd returns the endpoint of the link that is not id
func (l Link) OtherEnd(id NodeId) RouterDesc {
	if l.Local.Id == id {
		return l.Remote
	}
	return l.Local
}
