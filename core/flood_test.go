package core

import (
	"testing"

	"github.com/encodeous/sospf/protocol"
	"github.com/encodeous/sospf/state"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestHandleUpdateDropsStale(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t)
	defer h.Stop()
	r := h.router("10.0.0.1")
	p := newRecorder(t, h.net, "10.0.0.2")
	defer p.Close()
	q := newRecorder(t, h.net, "10.0.0.3")
	defer q.Close()
	twoWay(t, r, p, 1)
	twoWay(t, r, q, 1)

	batch := []state.LSA{lsaOf("10.0.0.9", 5, "10.0.0.2")}
	r.HandleUpdate("10.0.0.2", batch)

	got := q.next(t)
	assert.Equal(t, protocol.TypeLSUpdate, got.Type)
	assert.Equal(t, state.NodeId("10.0.0.1"), got.SrcId)
	assert.Equal(t, state.NodeId("10.0.0.3"), got.DstId)
	if diff := cmp.Diff(batch, got.Lsas); diff != "" {
		t.Fatalf("reflooded batch mismatch (-want +got):\n%s", diff)
	}
	p.quiet(t)

	// equal and older seqnos change nothing and go nowhere
	r.HandleUpdate("10.0.0.3", []state.LSA{lsaOf("10.0.0.9", 5)})
	r.HandleUpdate("10.0.0.3", []state.LSA{lsaOf("10.0.0.9", 4)})
	p.quiet(t)
	q.quiet(t)
	stored, ok := r.Lsd.Get("10.0.0.9")
	require.True(t, ok)
	assert.Equal(t, batch[0], stored)
}

func TestHandleUpdateWithdrawal(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t)
	defer h.Stop()
	r := h.router("10.0.0.1")
	p := newRecorder(t, h.net, "10.0.0.2")
	defer p.Close()
	q := newRecorder(t, h.net, "10.0.0.3")
	defer q.Close()
	twoWay(t, r, p, 2)
	twoWay(t, r, q, 1)

	r.Lsd.Put(state.LSA{Origin: "10.0.0.2", Seqno: 10, Links: []state.LinkDesc{
		{Neighbor: "10.0.0.2", Port: state.SelfPort},
		{Neighbor: "10.0.0.1", Port: 0, Weight: 2},
	}})
	unlinked := state.LSA{Origin: "10.0.0.2", Seqno: 11, Links: []state.LinkDesc{
		{Neighbor: "10.0.0.2", Port: state.SelfPort},
	}}
	r.HandleUpdate("10.0.0.2", []state.LSA{unlinked})

	// the withdrawal is acknowledged, then the batch is reflooded as usual
	var ack, reflood *protocol.Packet
	for range 2 {
		got := q.next(t)
		require.Len(t, got.Lsas, 1)
		if got.Lsas[0].WithdrawalAck {
			ack = got
		} else {
			reflood = got
		}
	}
	require.NotNil(t, ack)
	require.NotNil(t, reflood)
	assert.Equal(t, state.NodeId("10.0.0.1"), ack.Lsas[0].Origin)
	assert.False(t, containsLink(ack.Lsas[0], "10.0.0.2"))
	assert.True(t, containsLink(ack.Lsas[0], "10.0.0.3"))
	assert.Equal(t, unlinked, reflood.Lsas[0])
	p.quiet(t)

	ports := r.ListPorts()
	require.Len(t, ports, 1)
	assert.Equal(t, state.NodeId("10.0.0.3"), ports[0].Link.Remote.Id)
	_, ok := r.Lsd.Get("10.0.0.2")
	assert.False(t, ok)
	assert.False(t, containsLink(r.Lsd.Own(), "10.0.0.2"))
}

func TestWithdrawalAckIsStored(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t)
	defer h.Stop()
	r := h.router("10.0.0.1")
	q := newRecorder(t, h.net, "10.0.0.3")
	defer q.Close()
	twoWay(t, r, q, 1)
	own := r.Lsd.Own()

	r.Lsd.Put(lsaOf("10.0.0.2", 3, "10.0.0.1"))
	ack := lsaOf("10.0.0.2", 4)
	ack.WithdrawalAck = true
	r.HandleUpdate("10.0.0.3", []state.LSA{ack})

	got, ok := r.Lsd.Get("10.0.0.2")
	require.True(t, ok)
	assert.Equal(t, ack, got)
	assert.Equal(t, own, r.Lsd.Own())
	q.quiet(t)
}

func TestMultiLinkRemovalIsStored(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t)
	defer h.Stop()
	r := h.router("10.0.0.1")
	p := newRecorder(t, h.net, "10.0.0.2")
	defer p.Close()
	twoWay(t, r, p, 1)

	r.Lsd.Put(lsaOf("10.0.0.2", 3, "10.0.0.1", "10.0.0.4"))
	next := lsaOf("10.0.0.2", 4)
	r.HandleUpdate("10.0.0.2", []state.LSA{next})

	got, ok := r.Lsd.Get("10.0.0.2")
	require.True(t, ok)
	assert.Equal(t, next, got)
	assert.Len(t, r.ListPorts(), 1)
	assert.True(t, containsLink(r.Lsd.Own(), "10.0.0.2"))
}

func TestHandleUpdateReoriginatesOwnLSA(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t)
	defer h.Stop()
	r := h.router("10.0.0.1")
	p := newRecorder(t, h.net, "10.0.0.2")
	defer p.Close()
	q := newRecorder(t, h.net, "10.0.0.3")
	defer q.Close()
	twoWay(t, r, p, 1)
	twoWay(t, r, q, 1)
	own := r.Lsd.Own()

	// an echo of the current own LSA is ignored
	r.HandleUpdate("10.0.0.2", []state.LSA{own})
	p.quiet(t)
	q.quiet(t)

	// a copy from an earlier run never replaces the live links
	stale := lsaOf("10.0.0.1", own.Seqno+5)
	r.HandleUpdate("10.0.0.2", []state.LSA{stale})
	next := r.Lsd.Own()
	assert.Equal(t, own.Seqno+6, next.Seqno)
	assert.Equal(t, own.Links, next.Links)

	for _, rec := range []*recorder{p, q} {
		got := rec.next(t)
		assert.Equal(t, protocol.TypeLSUpdate, got.Type)
		require.Len(t, got.Lsas, 1)
		assert.Equal(t, next, got.Lsas[0])
	}
	p.quiet(t)
	q.quiet(t)
}

func TestFloodTerminatesOnLoop(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t)
	defer h.Stop()
	a := h.router("10.0.0.1")
	b := h.router("10.0.0.2")
	c := h.router("10.0.0.3")
	d := h.router("10.0.0.4")

	connect(t, a, b, 1)
	connect(t, b, c, 1)
	connect(t, c, d, 1)
	connect(t, d, a, 1)
	connect(t, a, c, 1)

	all := []*Router{a, b, c, d}
	converged := func() bool {
		want := lsdOf(a)
		if len(want) != len(all) {
			return false
		}
		for _, r := range all[1:] {
			if !cmp.Equal(want, lsdOf(r)) {
				return false
			}
		}
		return true
	}
	require.Eventually(t, converged, waitFor, tick)
	h.settle()

	before := h.net.Dials()
	require.NoError(t, a.announce().Wait())
	h.settle()
	require.True(t, converged())

	// every router forwards the new LSA at most once to each neighbour
	sent := h.net.Dials() - before
	assert.Positive(t, sent)
	assert.LessOrEqual(t, sent, 2*5)
	own := a.Lsd.Own().Seqno
	for _, r := range all {
		assert.Equal(t, own, lsdOf(r)["10.0.0.1"])
	}
}

func containsLink(lsa state.LSA, neighbour state.NodeId) bool {
	for _, ld := range lsa.Links {
		if ld.Neighbor == neighbour {
			return true
		}
	}
	return false
}
