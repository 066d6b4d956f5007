package core

import (
	"math"
	"testing"

	"github.com/encodeous/sospf/state"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lsaOf(origin state.NodeId, seqno int32, neighbours ...state.NodeId) state.LSA {
	lsa := state.LSA{Origin: origin, Seqno: seqno, Links: []state.LinkDesc{{Neighbor: origin, Port: state.SelfPort}}}
	for i, n := range neighbours {
		lsa.Links = append(lsa.Links, state.LinkDesc{Neighbor: n, Port: int32(i), Weight: 1})
	}
	return lsa
}

func TestLSDStartsWithOwnEntry(t *testing.T) {
	d := NewLinkStateDatabase("10.0.0.1")
	own := d.Own()
	assert.Equal(t, state.NewLSA("10.0.0.1"), own)
	assert.Equal(t, int32(math.MinInt32), d.maxSeqno())
}

func TestLSDAcceptIsSeqnoGated(t *testing.T) {
	d := NewLinkStateDatabase("10.0.0.1")

	_, existed, accepted := d.Accept(lsaOf("10.0.0.2", 5))
	assert.False(t, existed)
	assert.True(t, accepted)

	for _, seqno := range []int32{5, 4, math.MinInt32} {
		prev, existed, accepted := d.Accept(lsaOf("10.0.0.2", seqno, "10.0.0.9"))
		assert.True(t, existed)
		assert.False(t, accepted, "seqno %d", seqno)
		assert.Equal(t, int32(5), prev.Seqno)
	}
	got, _ := d.Get("10.0.0.2")
	assert.Len(t, got.Links, 1)

	prev, existed, accepted := d.Accept(lsaOf("10.0.0.2", 6, "10.0.0.1"))
	assert.True(t, existed)
	assert.True(t, accepted)
	assert.Equal(t, int32(5), prev.Seqno)
	got, _ = d.Get("10.0.0.2")
	assert.Equal(t, int32(6), got.Seqno)
}

func TestLSDCopiesAreIsolated(t *testing.T) {
	d := NewLinkStateDatabase("10.0.0.1")
	in := lsaOf("10.0.0.2", 1, "10.0.0.1")
	d.Put(in)
	in.Links[1].Weight = 99

	got, ok := d.Get("10.0.0.2")
	require.True(t, ok)
	assert.Equal(t, uint16(1), got.Links[1].Weight)

	all := d.All()
	all[0].Links[0].Weight = 42
	again, _ := d.Get(all[0].Origin)
	assert.Equal(t, uint16(0), again.Links[0].Weight)
}

func TestLSDAllIsSortedByOrigin(t *testing.T) {
	d := NewLinkStateDatabase("10.0.0.2")
	d.Put(lsaOf("10.0.0.3", 1))
	d.Put(lsaOf("10.0.0.1", 1))
	var origins []state.NodeId
	for _, lsa := range d.All() {
		origins = append(origins, lsa.Origin)
	}
	assert.Equal(t, []state.NodeId{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, origins)
}

func TestLSDRemoveLink(t *testing.T) {
	d := NewLinkStateDatabase("10.0.0.1")
	d.Put(lsaOf("10.0.0.2", 3, "10.0.0.1", "10.0.0.3"))

	assert.False(t, d.RemoveLink("10.0.0.2", state.LinkDesc{Neighbor: "10.0.0.1", Weight: 2}))
	assert.False(t, d.RemoveLink("10.0.0.9", state.LinkDesc{Neighbor: "10.0.0.1", Weight: 1}))
	// the port is ignored when matching
	assert.True(t, d.RemoveLink("10.0.0.2", state.LinkDesc{Neighbor: "10.0.0.1", Port: 3, Weight: 1}))

	got, _ := d.Get("10.0.0.2")
	assert.Equal(t, int32(4), got.Seqno)
	if diff := cmp.Diff(lsaOf("10.0.0.2", 4, "10.0.0.1", "10.0.0.3").Links[2:], got.Links[1:]); diff != "" {
		t.Fatalf("links mismatch (-want +got):\n%s", diff)
	}

	assert.True(t, d.Remove("10.0.0.2"))
	assert.False(t, d.Remove("10.0.0.2"))
	_, ok := d.Get("10.0.0.2")
	assert.False(t, ok)
}

func TestLSDUpsertOwnLink(t *testing.T) {
	d := NewLinkStateDatabase("10.0.0.1")
	ld := state.LinkDesc{Neighbor: "10.0.0.2", Port: 0, Weight: 4}
	first := d.UpsertOwnLink(ld)
	second := d.UpsertOwnLink(state.LinkDesc{Neighbor: "10.0.0.2", Port: 2, Weight: 4})

	// same content, new seqno
	assert.Equal(t, first.Seqno+1, second.Seqno)
	require.Len(t, second.Links, 2)
	assert.Equal(t, int32(2), second.Links[1].Port)
	assert.Equal(t, second, d.Own())
}

func TestLSDBumpOwnAboveMax(t *testing.T) {
	d := NewLinkStateDatabase("10.0.0.1")
	d.Put(lsaOf("10.0.0.2", 40))
	d.Put(lsaOf("10.0.0.3", 7))
	assert.Equal(t, int32(41), d.BumpOwnAboveMax())
	assert.Equal(t, int32(41), d.Own().Seqno)
	assert.Equal(t, int32(41), d.maxSeqno())

	// the own entry is rebuilt if it went missing
	d.Remove("10.0.0.1")
	assert.Equal(t, int32(42), d.BumpOwnAboveMax())
	assert.Equal(t, state.NodeId("10.0.0.1"), d.Own().Origin)
}

func TestLSDReoriginate(t *testing.T) {
	d := NewLinkStateDatabase("10.0.0.1")
	own := d.UpsertOwnLink(state.LinkDesc{Neighbor: "10.0.0.2", Port: 0, Weight: 1})

	_, ok := d.Reoriginate(own.Seqno)
	assert.False(t, ok)
	_, ok = d.Reoriginate(own.Seqno - 3)
	assert.False(t, ok)
	assert.Equal(t, own, d.Own())

	next, ok := d.Reoriginate(own.Seqno + 9)
	require.True(t, ok)
	assert.Equal(t, own.Seqno+10, next.Seqno)
	assert.Equal(t, own.Links, next.Links)
	assert.Equal(t, next, d.Own())
}
