package state

import (
	"fmt"
	"net/netip"
	"os"
	"path"
	"path/filepath"
)

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

// IPv4Validator accepts dotted quads only, both simulated ids and transport addresses use them
func IPv4Validator(s string) error {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return fmt.Errorf("%w: %s is not a valid IPv4 address", ErrInvalidArgument, s)
	}
	if !addr.Is4() {
		return fmt.Errorf("%w: %s is not an IPv4 address", ErrInvalidArgument, s)
	}
	return nil
}

func PortValidator(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%w: port %d is out of range", ErrInvalidArgument, port)
	}
	return nil
}

func WeightValidator(weight int) error {
	if weight < 0 || weight > 65535 {
		return fmt.Errorf("%w: weight %d is out of range", ErrInvalidArgument, weight)
	}
	return nil
}

func NeighbourValidator(n *NeighbourCfg) error {
	if !n.Addr.Is4() {
		return fmt.Errorf("%w: neighbour %s has invalid address %s", ErrInvalidArgument, n.Id, n.Addr)
	}
	if err := PortValidator(int(n.Port)); err != nil {
		return err
	}
	return IPv4Validator(string(n.Id))
}

func NodeConfigValidator(cfg *LocalCfg) error {
	err := IPv4Validator(string(cfg.Id))
	if err != nil {
		return err
	}
	if !cfg.Addr.Is4() {
		return fmt.Errorf("%w: cfg.Addr is invalid", ErrInvalidArgument)
	}
	if len(cfg.Neighbours) > MaxPorts {
		return fmt.Errorf("%w: %d neighbours configured", ErrRouterPortsFull, len(cfg.Neighbours))
	}
	seen := make(map[NodeId]struct{})
	for _, n := range cfg.Neighbours {
		if err := NeighbourValidator(&n); err != nil {
			return err
		}
		if n.Id == cfg.Id {
			return fmt.Errorf("%w: router %s cannot neighbour itself", ErrInvalidArgument, n.Id)
		}
		if _, ok := seen[n.Id]; ok {
			return fmt.Errorf("%w: neighbour %s listed twice", ErrDuplicatedLink, n.Id)
		}
		seen[n.Id] = struct{}{}
	}
	if cfg.LogPath != "" {
		return PathValidator(cfg.LogPath)
	}
	return nil
}
