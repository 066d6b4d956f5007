package core

import (
	"errors"
	"syscall"

	"github.com/encodeous/sospf/perf"
	"github.com/encodeous/sospf/protocol"
	"github.com/encodeous/sospf/state"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/errgroup"
)

// HandleUpdate applies an LS_UPDATE batch that arrived from neighbour from
func (r *Router) HandleUpdate(from state.NodeId, batch []state.LSA) {
	perf.RecvsPerSecond.Add(1)
	fresh := false
	for _, lsa := range batch {
		if lsa.Origin == r.Self.Id {
			r.reoriginate(from, lsa.Seqno)
			continue
		}
		prev, existed, accepted := r.Lsd.Accept(lsa)
		if !accepted {
			perf.LsaDropped.Add(1)
			continue
		}
		perf.LsaAccepted.Add(1)
		fresh = true
		r.Log.Debug("accepted lsa", "origin", lsa.Origin, "seqno", lsa.Seqno, "from", from)

		if !existed || lsa.WithdrawalAck {
			continue
		}
		// a single missing link that names us means the origin has unlinked us
		removed := state.RemovedLinks(prev, lsa)
		if len(removed) == 1 && removed[0].Neighbor == r.Self.Id {
			r.withdraw(from, lsa.Origin, removed[0].Weight)
		}
	}
	if !fresh {
		return
	}
	r.broadcast(except(r.Ports.TwoWay(), from), batch)
}

// reoriginate handles a copy of our own LSA. Only this router writes its entry, so a copy newer
// than the own entry is a leftover from an earlier run and gets superseded by a fresh announcement.
func (r *Router) reoriginate(from state.NodeId, seqno int32) {
	perf.LsaDropped.Add(1)
	own, ok := r.Lsd.Reoriginate(seqno)
	if !ok {
		return
	}
	r.Log.Info("own lsa seen with a newer seqno, reoriginating", "seqno", seqno, "from", from)
	r.broadcast(r.Ports.TwoWay(), []state.LSA{own})
}

// withdraw tears down the link to origin after origin withdrew it, acknowledging to every other port first
func (r *Router) withdraw(from, origin state.NodeId, weight uint16) {
	entry, ok := r.Ports.Find(func(l state.Link) bool {
		return l.Remote.Id == origin && l.Weight == weight
	})
	r.Lsd.RemoveLink(r.Self.Id, state.LinkDesc{Neighbor: origin, Weight: weight})

	ack := r.Lsd.Own()
	ack.WithdrawalAck = true
	if err := r.broadcast(except(r.Ports.Links(), from), []state.LSA{ack}).Wait(); err != nil {
		r.Log.Warn("withdrawal acknowledgement was not delivered to every neighbour", "origin", origin, "err", err)
	}

	if ok {
		r.Ports.RemoveLink(entry.Link)
	}
	r.Lsd.Remove(origin)
	r.Log.Info("link withdrawn by neighbour", "peer", origin, "port", entry.Port, "known", ok)
}

func except(entries []PortEntry, id state.NodeId) []PortEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.Link.Remote.Id != id {
			out = append(out, e)
		}
	}
	return out
}

// broadcast sends batch to every destination in its own task. Failures are logged per destination.
func (r *Router) broadcast(dsts []PortEntry, batch []state.LSA) *errgroup.Group {
	g := &errgroup.Group{}
	if len(dsts) == 0 {
		return g
	}
	perf.FloodBatchSize.Add(float64(len(batch)))
	for _, dst := range dsts {
		if !r.track() {
			break
		}
		g.Go(func() error {
			defer r.tasks.Done()
			err := r.sendUpdate(dst.Link.Remote, batch)
			if err != nil {
				r.peerDown(dst.Link.Remote, err)
			}
			return err
		})
	}
	return g
}

func (r *Router) sendUpdate(dst state.RouterDesc, batch []state.LSA) error {
	conn, err := r.dial(r.Context, dst.Addr)
	if err != nil {
		return err
	}
	defer r.release(conn)
	err = conn.Send(protocol.NewLSUpdate(r.Self, dst.Id, batch))
	if err != nil {
		return err
	}
	perf.UpdatesPerSecond.Add(1)
	r.unreachable.Delete(dst.Addr)
	return nil
}

// peerDown reports a failed send, at most once per peer every state.PeerDownTTL
func (r *Router) peerDown(dst state.RouterDesc, err error) {
	perf.SendFailures.Add(1)
	if r.Context.Err() != nil {
		return
	}
	if r.unreachable.Has(dst.Addr) {
		r.Log.Debug("peer still unreachable", "peer", dst, "err", err)
		return
	}
	r.unreachable.Set(dst.Addr, struct{}{}, ttlcache.DefaultTTL)
	if errors.Is(err, syscall.ECONNREFUSED) {
		r.Log.Warn("host down", "peer", dst)
		return
	}
	r.Log.Warn("failed to send update", "peer", dst, "err", err)
}

// announce advances the own seqno past every known seqno and sends the whole database to every TWO_WAY neighbour
func (r *Router) announce() *errgroup.Group {
	seqno := r.Lsd.BumpOwnAboveMax()
	r.Log.Debug("announcing", "seqno", seqno)
	return r.broadcast(r.Ports.TwoWay(), r.Lsd.All())
}
