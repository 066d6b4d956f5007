package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"

	"github.com/encodeous/sospf/protocol"
)

func (r *Router) acceptLoop() {
	for r.Context.Err() == nil {
		conn, err := r.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || r.Context.Err() != nil {
				return
			}
			r.Log.Warn("failed to accept connection", "err", err)
			continue
		}
		if err := r.trackConn(conn); err != nil {
			conn.Close()
			return
		}
		if !r.spawn(func() { r.serve(conn) }) {
			r.release(conn)
			return
		}
	}
}

// serve handles every packet a peer sends on conn until it hangs up
func (r *Router) serve(conn protocol.Conn) {
	defer r.release(conn)
	ex := &helloExchange{}
	for {
		p, err := conn.Receive()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && r.Context.Err() == nil {
				r.Log.Warn("failed to read packet", "conn", conn.Id(), "err", err)
			}
			return
		}
		switch p.Type {
		case protocol.TypeHello:
			err = r.handleHello(conn, ex, p)
		case protocol.TypeLSUpdate:
			r.HandleUpdate(p.SrcId, p.Lsas)
		}
		if err != nil {
			r.Log.Warn("dropping connection", "conn", conn.Id(), "from", p.SrcId, "type", p.Type, "err", err)
			return
		}
	}
}

func (r *Router) trackConn(conn protocol.Conn) error {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	if r.conns == nil {
		return net.ErrClosed
	}
	r.conns[conn.Id()] = conn
	return nil
}

func (r *Router) release(conn protocol.Conn) {
	r.connMu.Lock()
	delete(r.conns, conn.Id())
	r.connMu.Unlock()
	_ = conn.Close()
}

func (r *Router) dial(ctx context.Context, addr netip.AddrPort) (protocol.Conn, error) {
	conn, err := r.transport.Connect(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	if err := r.trackConn(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func (r *Router) closeConns() {
	r.connMu.Lock()
	conns := r.conns
	r.conns = nil
	r.connMu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}
