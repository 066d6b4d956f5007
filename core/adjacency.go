package core

import (
	"context"
	"fmt"

	"github.com/encodeous/sospf/perf"
	"github.com/encodeous/sospf/protocol"
	"github.com/encodeous/sospf/state"
)

// initiate runs the local side of the HELLO exchange over link and returns the port the peer is now TWO_WAY on
func (r *Router) initiate(ctx context.Context, link state.Link) (int, error) {
	conn, err := r.dial(ctx, link.Remote.Addr)
	if err != nil {
		return -1, err
	}
	defer r.release(conn)

	err = conn.Send(protocol.NewHello(r.Self, link.Remote.Id, link.Weight))
	if err != nil {
		return -1, err
	}
	reply, err := conn.Receive()
	if err != nil {
		return -1, err
	}
	if reply.Type != protocol.TypeHello {
		return -1, fmt.Errorf("%w: expected HELLO from %s, got %s", state.ErrUnexpectedPacket, link.Remote.Id, reply.Type)
	}
	r.Log.Info("received HELLO from "+string(reply.SrcId), "conn", conn.Id())

	port, err := r.Ports.SetStatus(link, state.StatusTwoWay)
	if err != nil {
		return -1, err
	}
	r.Log.Info("set "+string(link.Remote.Id)+" to TWO_WAY", "port", port)

	err = conn.Send(protocol.NewHello(r.Self, link.Remote.Id, link.Weight))
	if err != nil {
		return -1, err
	}
	perf.Handshakes.Add(1)
	return port, nil
}

func validateHello(p *protocol.Packet) error {
	if !p.SrcAddr.IsValid() {
		return fmt.Errorf("%w: HELLO without a source address", state.ErrInvalidArgument)
	}
	return state.IPv4Validator(string(p.SrcId))
}

// helloExchange is the remote side of one handshake, driven by the HELLOs that arrive on a single connection
type helloExchange struct {
	link *state.Link
}

func (r *Router) handleHello(conn protocol.Conn, ex *helloExchange, p *protocol.Packet) error {
	if ex.link == nil {
		return r.firstHello(conn, ex, p)
	}
	return r.confirmHello(ex, p)
}

func (r *Router) firstHello(conn protocol.Conn, ex *helloExchange, p *protocol.Packet) error {
	if err := validateHello(p); err != nil {
		return err
	}
	r.Log.Info("received HELLO from "+string(p.SrcId), "conn", conn.Id())

	link := state.Link{
		Local:  r.Self,
		Remote: state.RouterDesc{Addr: p.SrcAddr, Id: p.SrcId, Status: state.StatusInit},
		Weight: p.Weight,
	}
	port, added, err := r.Ports.AddOrInit(link)
	if err != nil {
		r.Log.Error("corrupted state, abandoning handshake", "peer", link.Remote, "err", err)
		return err
	}
	r.Log.Info("set "+string(p.SrcId)+" to INIT", "port", port)
	if added {
		r.updateOwnLSA(port, link)
	}
	ex.link = &link
	return conn.Send(protocol.NewHello(r.Self, p.SrcId, p.Weight))
}

func (r *Router) confirmHello(ex *helloExchange, p *protocol.Packet) error {
	if p.SrcId != ex.link.Remote.Id {
		return fmt.Errorf("%w: confirmation from %s during handshake with %s", state.ErrUnexpectedPacket, p.SrcId, ex.link.Remote.Id)
	}
	r.Log.Info("received HELLO from "+string(p.SrcId), "confirm", true)
	port, err := r.Ports.SetStatus(*ex.link, state.StatusTwoWay)
	if err != nil {
		return err
	}
	r.Log.Info("set "+string(p.SrcId)+" to TWO_WAY", "port", port)
	r.updateOwnLSA(port, *ex.link)
	perf.Handshakes.Add(1)
	// the exchange is over once the new adjacency has been announced
	_ = r.broadcast(r.Ports.TwoWay(), r.Lsd.All()).Wait()
	ex.link = nil
	return nil
}

// updateOwnLSA advertises link on port in the router's own LSA
func (r *Router) updateOwnLSA(port int, link state.Link) {
	lsa := r.Lsd.UpsertOwnLink(state.LinkDesc{
		Neighbor: link.Remote.Id,
		Port:     int32(port),
		Weight:   link.Weight,
	})
	r.Log.Debug("updated own lsa", "seqno", lsa.Seqno, "links", len(lsa.Links))
}
