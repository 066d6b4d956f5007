package core

import (
	"fmt"
	"sync"

	"github.com/encodeous/sospf/state"
)

// PortEntry is a snapshot of one occupied slot
type PortEntry struct {
	Port int
	Link state.Link
}

// PortTable holds the router's links, at most one per slot and never two equal links
type PortTable struct {
	mu    sync.Mutex
	slots [state.MaxPorts]*state.Link
}

func (p *PortTable) indexOf(link state.Link) int {
	for i, l := range p.slots {
		if l != nil && l.Equal(link) {
			return i
		}
	}
	return -1
}

func (p *PortTable) add(link state.Link) (int, error) {
	if p.indexOf(link) != -1 {
		return -1, fmt.Errorf("%w: %s", state.ErrDuplicatedLink, link.Remote)
	}
	for i, l := range p.slots {
		if l == nil {
			p.slots[i] = &link
			return i, nil
		}
	}
	return -1, state.ErrRouterPortsFull
}

// Add places link in the first free slot
func (p *PortTable) Add(link state.Link) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.add(link)
}

// AddOrInit adds link, or marks the existing equal link's peer as INIT
func (p *PortTable) AddOrInit(link state.Link) (port int, added bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if idx := p.indexOf(link); idx != -1 {
		p.slots[idx].Remote.Status = state.StatusInit
		return idx, false, nil
	}
	link.Remote.Status = state.StatusInit
	port, err = p.add(link)
	return port, err == nil, err
}

func (p *PortTable) Get(port int) (state.Link, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if port < 0 || port >= len(p.slots) || p.slots[port] == nil {
		return state.Link{}, false
	}
	return *p.slots[port], true
}

// Find returns the lowest occupied port whose link matches
func (p *PortTable) Find(match func(l state.Link) bool) (PortEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, l := range p.slots {
		if l != nil && match(*l) {
			return PortEntry{i, *l}, true
		}
	}
	return PortEntry{}, false
}

// SetStatus records the adjacency state of the peer on link, returning its port
func (p *PortTable) SetStatus(link state.Link, status state.RouterStatus) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.indexOf(link)
	if idx == -1 {
		return -1, fmt.Errorf("%w: %s", state.ErrLinkNotAvailable, link.Remote)
	}
	p.slots[idx].Remote.Status = status
	return idx, nil
}

func (p *PortTable) Remove(port int) (state.Link, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if port < 0 || port >= len(p.slots) {
		return state.Link{}, fmt.Errorf("%w: port %d is outside [0, %d)", state.ErrInvalidArgument, port, len(p.slots))
	}
	l := p.slots[port]
	if l == nil {
		return state.Link{}, fmt.Errorf("%w: port %d is empty", state.ErrLinkNotAvailable, port)
	}
	p.slots[port] = nil
	return *l, nil
}

func (p *PortTable) RemoveLink(link state.Link) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.indexOf(link)
	if idx == -1 {
		return false
	}
	p.slots[idx] = nil
	return true
}

func (p *PortTable) collect(keep func(l *state.Link) bool) []PortEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries := make([]PortEntry, 0, len(p.slots))
	for i, l := range p.slots {
		if l != nil && keep(l) {
			entries = append(entries, PortEntry{i, *l})
		}
	}
	return entries
}

// Links returns every occupied slot in port order
func (p *PortTable) Links() []PortEntry {
	return p.collect(func(*state.Link) bool { return true })
}

// TwoWay returns the slots whose peer has completed the handshake
func (p *PortTable) TwoWay() []PortEntry {
	return p.collect(func(l *state.Link) bool { return l.Remote.Status == state.StatusTwoWay })
}
