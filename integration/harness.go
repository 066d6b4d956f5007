//go:build integration

package integration

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"runtime/pprof"
	"time"

	"github.com/encodeous/sospf/core"
	"github.com/encodeous/sospf/state"
)

type Signal chan bool

func NewSignal() Signal {
	return make(chan bool)
}
func (s Signal) Trigger() {
	select {
	case <-s:
	default:
		close(s)
	}
}
func (s Signal) Triggered() bool {
	select {
	case <-s:
		return true
	default:
		return false
	}
}
func (s Signal) Wait() {
	<-s
}

// Harness runs real routers on loopback TCP, each on an ephemeral port
type Harness struct {
	Local  []state.LocalCfg
	States []*state.State
	ready  []Signal
}

func (h *Harness) IndexOf(id state.NodeId) int {
	for i, cfg := range h.Local {
		if cfg.Id == id {
			return i
		}
	}
	return -1
}

func (h *Harness) NewNode(id state.NodeId) {
	h.Local = append(h.Local, state.LocalCfg{
		Id:   id,
		Addr: netip.MustParseAddr("127.0.0.1"),
	})
}

func (h *Harness) Start() chan error {
	errChan := make(chan error, 128)
	h.States = make([]*state.State, len(h.Local))
	h.ready = make([]Signal, len(h.Local))
	for idx, cfg := range h.Local {
		h.ready[idx] = NewSignal()
		go func() {
			labels := pprof.Labels("sospf node", string(cfg.Id))
			pprof.Do(context.Background(), labels, func(_ context.Context) {
				err := core.Start(cfg, slog.LevelDebug, nil, func(s *state.State) {
					h.States[idx] = s
					h.ready[idx].Trigger()
				})
				if err != nil {
					errChan <- err
				}
			})
		}()
	}
	timeout := time.After(10 * time.Second)
	for idx := range h.Local {
		select {
		case <-h.ready[idx]:
		case err := <-errChan:
			errChan <- err
			return errChan
		case <-timeout:
			errChan <- fmt.Errorf("router %s did not start", h.Local[idx].Id)
			return errChan
		}
	}
	// onInit runs just before the main loop
	for _, s := range h.States {
		for !s.Started.Load() {
			time.Sleep(10 * time.Millisecond)
		}
	}
	return errChan
}

// Exec runs fun against a router on its main loop
func (h *Harness) Exec(id state.NodeId, fun func(r *core.Router) (any, error)) (any, error) {
	s := h.States[h.IndexOf(id)]
	return s.DispatchWait(func(s *state.State) (any, error) {
		return fun(core.Get[*core.Router](s))
	})
}

// Addr is where the router id accepts connections
func (h *Harness) Addr(id state.NodeId) netip.AddrPort {
	res, err := h.Exec(id, func(r *core.Router) (any, error) {
		return r.Self.Addr, nil
	})
	if err != nil {
		panic(err)
	}
	return res.(netip.AddrPort)
}

// Connect links from to to with weight
func (h *Harness) Connect(from, to state.NodeId, weight int) error {
	addr := h.Addr(to)
	_, err := h.Exec(from, func(r *core.Router) (any, error) {
		return nil, r.Connect(addr.Addr().String(), int(addr.Port()), to, weight)
	})
	return err
}

func (h *Harness) Detect(from, to state.NodeId) (string, error) {
	res, err := h.Exec(from, func(r *core.Router) (any, error) {
		p, err := r.Detect(to)
		return p.String(), err
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (h *Harness) Stop() {
	for _, s := range h.States {
		if s != nil {
			s.Cancel(fmt.Errorf("stopping harness"))
		}
	}
	for _, s := range h.States {
		if s != nil {
			core.Stop(s)
		}
	}
}
