package core

import (
	"cmp"
	"math"
	"slices"
	"sync"

	"github.com/encodeous/sospf/state"
)

// LinkStateDatabase keeps the newest LSA of every known router, including the owner
type LinkStateDatabase struct {
	mu    sync.Mutex
	owner state.NodeId
	store map[state.NodeId]state.LSA
}

func NewLinkStateDatabase(owner state.NodeId) *LinkStateDatabase {
	return &LinkStateDatabase{
		owner: owner,
		store: map[state.NodeId]state.LSA{
			owner: state.NewLSA(owner),
		},
	}
}

// Put stores lsa unconditionally
func (d *LinkStateDatabase) Put(lsa state.LSA) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.store[lsa.Origin] = lsa.Clone()
}

func (d *LinkStateDatabase) Get(origin state.NodeId) (state.LSA, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	lsa, ok := d.store[origin]
	if !ok {
		return state.LSA{}, false
	}
	return lsa.Clone(), true
}

// Own returns a copy of the owner's LSA
func (d *LinkStateDatabase) Own() state.LSA {
	lsa, _ := d.Get(d.owner)
	return lsa
}

// All returns a copy of every entry ordered by origin
func (d *LinkStateDatabase) All() []state.LSA {
	d.mu.Lock()
	defer d.mu.Unlock()
	all := make([]state.LSA, 0, len(d.store))
	for _, lsa := range d.store {
		all = append(all, lsa.Clone())
	}
	slices.SortFunc(all, func(a, b state.LSA) int {
		return cmp.Compare(a.Origin, b.Origin)
	})
	return all
}

func (d *LinkStateDatabase) Remove(origin state.NodeId) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.store[origin]
	delete(d.store, origin)
	return ok
}

// RemoveLink drops the first link of origin's entry that is Same as ld and advances its seqno
func (d *LinkStateDatabase) RemoveLink(origin state.NodeId, ld state.LinkDesc) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	lsa, ok := d.store[origin]
	if !ok {
		return false
	}
	idx := lsa.IndexOf(ld)
	if idx == -1 {
		return false
	}
	lsa.Links = slices.Delete(slices.Clone(lsa.Links), idx, idx+1)
	lsa.Seqno++
	d.store[origin] = lsa
	return true
}

// Accept stores lsa if its origin is unknown or the stored seqno is strictly lower.
// prev is the entry that was replaced, if there was one.
func (d *LinkStateDatabase) Accept(lsa state.LSA) (prev state.LSA, existed bool, accepted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev, existed = d.store[lsa.Origin]
	if existed && prev.Seqno >= lsa.Seqno {
		return prev.Clone(), true, false
	}
	d.store[lsa.Origin] = lsa.Clone()
	return prev, existed, true
}

// UpsertOwnLink replaces any Same link in the owner's LSA with ld, appends it and advances the seqno
func (d *LinkStateDatabase) UpsertOwnLink(ld state.LinkDesc) state.LSA {
	d.mu.Lock()
	defer d.mu.Unlock()
	lsa := d.own()
	links := slices.DeleteFunc(slices.Clone(lsa.Links), ld.Same)
	lsa.Links = append(links, ld)
	lsa.Seqno++
	d.store[d.owner] = lsa
	return lsa.Clone()
}

func (d *LinkStateDatabase) own() state.LSA {
	lsa, ok := d.store[d.owner]
	if !ok {
		return state.NewLSA(d.owner)
	}
	return lsa
}

func (d *LinkStateDatabase) maxSeqno() int32 {
	m := int32(math.MinInt32)
	for _, lsa := range d.store {
		m = max(m, lsa.Seqno)
	}
	return m
}

// Reoriginate moves the owner's seqno past seqno, keeping the owner's links.
// It reports false unless seqno is newer than the owner's entry.
func (d *LinkStateDatabase) Reoriginate(seqno int32) (state.LSA, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	lsa := d.own()
	if lsa.Seqno >= seqno {
		return state.LSA{}, false
	}
	lsa.Seqno = seqno + 1
	d.store[d.owner] = lsa
	return lsa.Clone(), true
}

// BumpOwnAboveMax moves the owner's seqno past every seqno in the database
func (d *LinkStateDatabase) BumpOwnAboveMax() int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	lsa := d.own()
	lsa.Seqno = d.maxSeqno() + 1
	d.store[d.owner] = lsa
	return lsa.Seqno
}
