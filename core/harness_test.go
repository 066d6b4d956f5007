package core

import (
	"context"
	"log/slog"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/encodeous/sospf/mock"
	"github.com/encodeous/sospf/protocol"
	"github.com/encodeous/sospf/state"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 5 * time.Second
	tick    = 10 * time.Millisecond
)

var loopback = netip.MustParseAddr("127.0.0.1")

// harness runs routers in-process over one mock network
type harness struct {
	t       *testing.T
	net     *mock.Network
	states  []*state.State
	routers map[state.NodeId]*Router
}

func newHarness(t *testing.T) *harness {
	return &harness{
		t:       t,
		net:     mock.NewNetwork(),
		routers: make(map[state.NodeId]*Router),
	}
}

func (h *harness) router(id state.NodeId) *Router {
	h.t.Helper()
	ctx, cancel := context.WithCancelCause(context.Background())
	s := &state.State{
		Modules: make(map[string]state.NyModule),
		Env: &state.Env{
			DispatchChannel: make(chan func(*state.State) error, 128),
			LocalCfg:        state.LocalCfg{Id: id, Addr: loopback},
			Context:         ctx,
			Cancel:          cancel,
			Log:             slog.New(slog.DiscardHandler),
			AuxConfig:       map[string]any{AuxTransport: h.net},
		},
	}
	r := &Router{}
	s.Modules["*core.Router"] = r
	require.NoError(h.t, r.Init(s))
	h.states = append(h.states, s)
	h.routers[id] = r
	return r
}

// Stop shuts every router down, it must run before leak checks
func (h *harness) Stop() {
	for _, s := range h.states {
		Stop(s)
	}
}

// settle waits until no router has dialed anyone for a while
func (h *harness) settle() {
	h.t.Helper()
	last, stable := -1, 0
	require.Eventually(h.t, func() bool {
		d := h.net.Dials()
		if d == last {
			stable++
		} else {
			last, stable = d, 0
		}
		return stable >= 5
	}, waitFor, 20*time.Millisecond)
}

func attach(t *testing.T, a, b *Router, weight int) int {
	t.Helper()
	port, err := a.Attach(b.Self.Addr.Addr().String(), int(b.Self.Addr.Port()), b.Self.Id, weight)
	require.NoError(t, err)
	return port
}

func connect(t *testing.T, a, b *Router, weight int) {
	t.Helper()
	require.NoError(t, a.Connect(b.Self.Addr.Addr().String(), int(b.Self.Addr.Port()), b.Self.Id, weight))
}

// recorder is a fake peer that stores every packet it receives
type recorder struct {
	desc    state.RouterDesc
	l       protocol.Listener
	packets chan *protocol.Packet
	wg      sync.WaitGroup
}

func newRecorder(t *testing.T, n *mock.Network, id state.NodeId) *recorder {
	t.Helper()
	l, err := n.Listen(context.Background(), netip.AddrPortFrom(loopback, 0))
	require.NoError(t, err)
	rec := &recorder{
		desc:    state.RouterDesc{Addr: l.Addr(), Id: id, Status: state.StatusTwoWay},
		l:       l,
		packets: make(chan *protocol.Packet, 64),
	}
	rec.wg.Go(func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			rec.wg.Go(func() {
				defer c.Close()
				for {
					p, err := c.Receive()
					if err != nil {
						return
					}
					rec.packets <- p
				}
			})
		}
	})
	return rec
}

func (rec *recorder) Close() {
	rec.l.Close()
	rec.wg.Wait()
}

func (rec *recorder) next(t *testing.T) *protocol.Packet {
	t.Helper()
	select {
	case p := <-rec.packets:
		return p
	case <-time.After(waitFor):
		t.Fatalf("%s received nothing", rec.desc.Id)
		return nil
	}
}

func (rec *recorder) quiet(t *testing.T) {
	t.Helper()
	select {
	case p := <-rec.packets:
		t.Fatalf("%s unexpectedly received %s from %s", rec.desc.Id, p.Type, p.SrcId)
	case <-time.After(100 * time.Millisecond):
	}
}

// twoWay puts rec into r's port table as if the handshake had completed
func twoWay(t *testing.T, r *Router, rec *recorder, weight uint16) int {
	t.Helper()
	link := state.Link{Local: r.Self, Remote: rec.desc, Weight: weight}
	port, err := r.Ports.Add(link)
	require.NoError(t, err)
	r.updateOwnLSA(port, link)
	return port
}

func lsdOf(r *Router) map[state.NodeId]int32 {
	out := make(map[state.NodeId]int32)
	for _, lsa := range r.DumpLSD() {
		out[lsa.Origin] = lsa.Seqno
	}
	return out
}

// advertises reports whether r holds an LSA from origin that lists neighbour
func advertises(r *Router, origin, neighbour state.NodeId) bool {
	lsa, ok := r.Lsd.Get(origin)
	if !ok {
		return false
	}
	for _, ld := range lsa.Links {
		if ld.Neighbor == neighbour {
			return true
		}
	}
	return false
}
