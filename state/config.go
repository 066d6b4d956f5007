package state

import (
	"bytes"
	"net/netip"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
)

// NeighbourCfg is a link attached when the router boots
type NeighbourCfg struct {
	Addr   netip.Addr `yaml:"addr" toml:"addr"`
	Port   uint16     `yaml:"port" toml:"port"`
	Id     NodeId     `yaml:"id" toml:"id"`
	Weight uint16     `yaml:"weight" toml:"weight"`
}

// LocalCfg represents local router-level configuration
type LocalCfg struct {
	// simulated address of this router
	Id NodeId `yaml:"id" toml:"id"`
	// address the transport listens on, port 0 picks a free port
	Addr    netip.Addr `yaml:"addr" toml:"addr"`
	Port    uint16     `yaml:"port" toml:"port"`
	LogPath string     `yaml:"log_path,omitempty" toml:"log_path,omitempty"`
	// attached in order at startup
	Neighbours []NeighbourCfg `yaml:"neighbours,omitempty" toml:"neighbours,omitempty"`
	// run start once the listener is up
	AutoStart bool `yaml:"auto_start,omitempty" toml:"auto_start,omitempty"`
}

func (c *LocalCfg) ListenAddr() netip.AddrPort {
	return netip.AddrPortFrom(c.Addr, c.Port)
}

func isToml(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func ReadLocalCfg(path string) (*LocalCfg, error) {
	var cfg LocalCfg
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isToml(path) {
		err = toml.Unmarshal(file, &cfg)
	} else {
		err = yaml.Unmarshal(file, &cfg)
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func WriteLocalCfg(path string, cfg *LocalCfg) error {
	var out []byte
	if isToml(path) {
		buf := bytes.Buffer{}
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		out = buf.Bytes()
	} else {
		var err error
		out, err = yaml.Marshal(cfg)
		if err != nil {
			return err
		}
	}
	return os.WriteFile(path, out, 0600)
}
