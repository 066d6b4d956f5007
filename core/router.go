package core

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"

	"github.com/encodeous/sospf/impl"
	"github.com/encodeous/sospf/protocol"
	"github.com/encodeous/sospf/state"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/errgroup"
)

// AuxTransport is the AuxConfig key of a protocol.Transport that replaces TCP
const AuxTransport = "transport"

// Router is the link-state routing engine of one simulated router
type Router struct {
	*state.Env
	Self  state.RouterDesc
	Ports *PortTable
	Lsd   *LinkStateDatabase

	transport   protocol.Transport
	listener    protocol.Listener
	unreachable *ttlcache.Cache[netip.AddrPort, struct{}]

	closeMu sync.RWMutex
	closed  bool
	tasks   sync.WaitGroup

	connMu sync.Mutex
	conns  map[uuid.UUID]protocol.Conn
}

func (r *Router) Init(s *state.State) error {
	r.Env = s.Env
	r.Ports = &PortTable{}
	r.Lsd = NewLinkStateDatabase(s.Id)
	r.conns = make(map[uuid.UUID]protocol.Conn)

	if t, ok := state.Aux[protocol.Transport](s.Env, AuxTransport); ok {
		r.transport = t
	} else {
		r.transport = &impl.TCPTransport{}
	}

	listener, err := r.transport.Listen(s.Context, s.ListenAddr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.ListenAddr(), err)
	}
	r.listener = listener
	r.unreachable = ttlcache.New[netip.AddrPort, struct{}](
		ttlcache.WithTTL[netip.AddrPort, struct{}](state.PeerDownTTL),
		ttlcache.WithDisableTouchOnHit[netip.AddrPort, struct{}](),
	)
	go r.unreachable.Start()

	r.Self = state.RouterDesc{Addr: listener.Addr(), Id: s.Id}
	r.Log.Info("router listening", "id", r.Self.Id, "addr", r.Self.Addr)
	r.spawn(r.acceptLoop)

	for _, n := range s.Neighbours {
		if _, err := r.Attach(n.Addr.String(), int(n.Port), n.Id, int(n.Weight)); err != nil {
			return err
		}
	}
	if s.AutoStart {
		r.spawn(func() {
			if err := r.Start(); err != nil {
				r.Log.Warn("auto start did not reach every neighbour", "err", err)
			}
		})
	}
	return nil
}

func (r *Router) Cleanup(s *state.State) error {
	r.closeMu.Lock()
	if r.closed {
		r.closeMu.Unlock()
		return nil
	}
	r.closed = true
	r.closeMu.Unlock()
	if r.listener == nil {
		return nil
	}

	err := r.listener.Close()
	r.closeConns()
	r.tasks.Wait()
	r.unreachable.Stop()
	return err
}

// track registers a task with the router, it fails once the router is shutting down
func (r *Router) track() bool {
	r.closeMu.RLock()
	defer r.closeMu.RUnlock()
	if r.closed {
		return false
	}
	r.tasks.Add(1)
	return true
}

func (r *Router) spawn(fun func()) bool {
	if !r.track() {
		return false
	}
	go func() {
		defer r.tasks.Done()
		fun()
	}()
	return true
}

// Attach adds a link to the port table without contacting the peer
func (r *Router) Attach(addr string, port int, id state.NodeId, weight int) (int, error) {
	if err := state.IPv4Validator(addr); err != nil {
		return -1, err
	}
	if err := state.PortValidator(port); err != nil {
		return -1, err
	}
	if err := state.IPv4Validator(string(id)); err != nil {
		return -1, err
	}
	if err := state.WeightValidator(weight); err != nil {
		return -1, err
	}
	if id == r.Self.Id {
		return -1, fmt.Errorf("%w: cannot attach to self", state.ErrInvalidArgument)
	}
	link := state.Link{
		Local: r.Self,
		Remote: state.RouterDesc{
			Addr:   netip.AddrPortFrom(netip.MustParseAddr(addr), uint16(port)),
			Id:     id,
			Status: state.StatusDown,
		},
		Weight: uint16(weight),
	}
	idx, err := r.Ports.Add(link)
	if err != nil {
		return -1, err
	}
	r.Log.Info("attached", "port", idx, "peer", link.Remote, "weight", weight)
	return idx, nil
}

// Start runs the handshake on every link that is not TWO_WAY yet, then announces the database.
// The announcement goes out even if some handshakes failed, the first failure is returned.
func (r *Router) Start() error {
	var g errgroup.Group
	for _, e := range r.Ports.Links() {
		if e.Link.Remote.Status == state.StatusTwoWay {
			continue
		}
		g.Go(func() error {
			port, err := r.initiate(r.Context, e.Link)
			if err != nil {
				r.Log.Warn("handshake failed", "port", e.Port, "peer", e.Link.Remote, "err", err)
				return err
			}
			r.updateOwnLSA(port, e.Link)
			return nil
		})
	}
	err := g.Wait()
	r.announce()
	return err
}

// Connect attaches a link and immediately starts it
func (r *Router) Connect(addr string, port int, id state.NodeId, weight int) error {
	idx, err := r.Attach(addr, port, id, weight)
	if err != nil {
		return err
	}
	link, ok := r.Ports.Get(idx)
	if !ok {
		return fmt.Errorf("%w: port %d", state.ErrLinkNotAvailable, idx)
	}
	p, err := r.initiate(r.Context, link)
	if err != nil {
		r.Log.Warn("handshake failed", "port", idx, "peer", link.Remote, "err", err)
	} else {
		r.updateOwnLSA(p, link)
	}
	r.announce()
	return err
}

// Disconnect withdraws the link on port, tells every TWO_WAY neighbour and frees the port
func (r *Router) Disconnect(port int) error {
	link, ok := r.Ports.Get(port)
	if !ok {
		if port < 0 || port >= state.MaxPorts {
			return fmt.Errorf("%w: port %d is outside [0, %d)", state.ErrInvalidArgument, port, state.MaxPorts)
		}
		return fmt.Errorf("%w: port %d is empty", state.ErrLinkNotAvailable, port)
	}
	r.Lsd.RemoveLink(r.Self.Id, state.LinkDesc{Neighbor: link.Remote.Id, Weight: link.Weight})
	r.Lsd.Remove(link.Remote.Id)
	if err := r.announce().Wait(); err != nil {
		r.Log.Warn("withdrawal was not delivered to every neighbour", "port", port, "err", err)
	}
	r.Ports.RemoveLink(link)
	r.Log.Info("disconnected", "port", port, "peer", link.Remote)
	return nil
}

// Neighbors lists the ids of TWO_WAY neighbours in port order
func (r *Router) Neighbors() []state.NodeId {
	var ids []state.NodeId
	for _, e := range r.Ports.TwoWay() {
		ids = append(ids, e.Link.Remote.Id)
	}
	return ids
}

// Detect computes the shortest path from this router to dst over the current database.
// Any id the database does not know, well formed or not, has no path.
func (r *Router) Detect(dst state.NodeId) (Path, error) {
	return Dijkstra(NewGraph(r.Lsd.All()), r.Self.Id).PathTo(dst)
}

// Quit disconnects every port, each with its own withdrawal, then stops the router
func (r *Router) Quit() error {
	var errs []error
	for _, e := range r.Ports.Links() {
		if err := r.Disconnect(e.Port); err != nil {
			errs = append(errs, err)
		}
	}
	r.Cancel(errors.New("quit"))
	return errors.Join(errs...)
}

func (r *Router) ListPorts() []PortEntry {
	return r.Ports.Links()
}

func (r *Router) DumpLSD() []state.LSA {
	return r.Lsd.All()
}

// ForceRemovePort frees a port without telling anyone
func (r *Router) ForceRemovePort(port int) (state.Link, error) {
	return r.Ports.Remove(port)
}
