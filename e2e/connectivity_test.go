//go:build e2e

package e2e

import (
	"net/netip"
	"testing"

	"github.com/encodeous/sospf/state"
)

func neighbour(ip string, id state.NodeId, weight uint16) state.NeighbourCfg {
	return state.NeighbourCfg{
		Addr:   netip.MustParseAddr(ip),
		Port:   uint16(state.DefaultPort),
		Id:     id,
		Weight: weight,
	}
}

func node(id state.NodeId, ip string, neighbours ...state.NeighbourCfg) state.LocalCfg {
	return state.LocalCfg{
		Id:         id,
		Addr:       netip.MustParseAddr(ip),
		Port:       uint16(state.DefaultPort),
		Neighbours: neighbours,
		AutoStart:  true,
	}
}

// a line of three containers, only the middle one knows both ends
func TestLineFlooding(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	t.Parallel()

	h := NewHarness(t)
	dir := h.SetupTestDir()
	ip1, ip2, ip3 := h.IP(10), h.IP(11), h.IP(12)

	n1 := h.WriteConfig(dir, "node1.yaml", node("10.0.0.1", ip1))
	n2 := h.WriteConfig(dir, "node2.yaml", node("10.0.0.2", ip2,
		neighbour(ip1, "10.0.0.1", 1),
		neighbour(ip3, "10.0.0.3", 2),
	))
	n3 := h.WriteConfig(dir, "node3.yaml", node("10.0.0.3", ip3))

	// the ends must be listening before the middle starts
	h.StartNodes(
		NodeSpec{Name: "node1", IP: ip1, NodeConfigPath: n1},
		NodeSpec{Name: "node3", IP: ip3, NodeConfigPath: n3},
	)
	h.StartNode("node2", ip2, n2)

	h.WaitForLog("node2", "set 10.0.0.1 to TWO_WAY")
	h.WaitForLog("node2", "set 10.0.0.3 to TWO_WAY")
	h.WaitForLog("node1", "set 10.0.0.2 to TWO_WAY")

	// each end learns about the other through the middle
	h.WaitForLog("node1", "accepted lsa origin=10.0.0.3")
	h.WaitForLog("node3", "accepted lsa origin=10.0.0.1")
}

// killing a router is not a withdrawal, its neighbours only notice when they next flood
func TestHostDown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	t.Parallel()

	h := NewHarness(t)
	dir := h.SetupTestDir()
	ip1, ip2, ip3 := h.IP(10), h.IP(11), h.IP(12)

	n1 := h.WriteConfig(dir, "node1.yaml", node("10.0.0.1", ip1))
	n3 := h.WriteConfig(dir, "node3.yaml", node("10.0.0.3", ip3))
	n2 := h.WriteConfig(dir, "node2.yaml", node("10.0.0.2", ip2,
		neighbour(ip1, "10.0.0.1", 1),
		neighbour(ip3, "10.0.0.3", 1),
	))
	h.StartNodes(
		NodeSpec{Name: "node1", IP: ip1, NodeConfigPath: n1},
		NodeSpec{Name: "node3", IP: ip3, NodeConfigPath: n3},
	)
	h.StartNode("node2", ip2, n2)
	h.WaitForLog("node1", "accepted lsa origin=10.0.0.3")

	h.Stop("node3")
	// a new neighbour makes node2 flood towards the dead peer
	h.StartNode("node4", h.IP(13), h.WriteConfig(dir, "node4.yaml", node("10.0.0.4", h.IP(13),
		neighbour(ip2, "10.0.0.2", 1),
	)))
	h.WaitForMatch("node2", `(host down|failed to send update).*10\.0\.0\.3`)
}
