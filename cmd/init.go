package cmd

import (
	"fmt"
	"net/netip"
	"strconv"

	"github.com/encodeous/sospf/state"
	"github.com/spf13/cobra"
)

func netipAddr(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return addr, fmt.Errorf("%w: %s", state.ErrInvalidArgument, err)
	}
	return addr, nil
}

// interactiveCfg walks the operator through a config, starting from the flag values
func interactiveCfg(cfg *state.LocalCfg) error {
	id, err := promptDefaultStr("simulated id", string(cfg.Id), state.IPv4Validator)
	if err != nil {
		return err
	}
	cfg.Id = state.NodeId(id)
	addr, err := promptDefaultStr("listen address", cfg.Addr.String(), state.IPv4Validator)
	if err != nil {
		return err
	}
	if cfg.Addr, err = netipAddr(addr); err != nil {
		return err
	}
	port, err := promptInt("listen port", int(cfg.Port), func(p int) error {
		if p == 0 {
			return nil
		}
		return state.PortValidator(p)
	})
	if err != nil {
		return err
	}
	cfg.Port = uint16(port)
	for len(cfg.Neighbours) < state.MaxPorts && promptYN("Attach a neighbour at startup?", false) {
		n, err := promptNeighbour()
		if err != nil {
			return err
		}
		cfg.Neighbours = append(cfg.Neighbours, n)
	}
	if len(cfg.Neighbours) > 0 {
		cfg.AutoStart = promptYN("Start the neighbours once the router is up?", true)
	}
	path, err := safeSaveFile(nodeConfigPath, "router config")
	if err != nil {
		return err
	}
	nodeConfigPath = path
	return nil
}

var initCmd = &cobra.Command{
	Use:   "init [simulated id]",
	Short: "Create a router configuration",
	Long:  `Writes a router configuration. Without a simulated id, every value is prompted for.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := strconv.Atoi(cmd.Flag("port").Value.String())
		if err != nil {
			return err
		}
		if port != 0 {
			if err := state.PortValidator(port); err != nil {
				return err
			}
		}
		addr, err := netipAddr(cmd.Flag("addr").Value.String())
		if err != nil {
			return err
		}

		nodeCfg := state.LocalCfg{
			Addr: addr,
			Port: uint16(port),
		}
		if len(args) == 1 {
			nodeCfg.Id = state.NodeId(args[0])
		} else if err := interactiveCfg(&nodeCfg); err != nil {
			return err
		}
		err = state.NodeConfigValidator(&nodeCfg)
		if err != nil {
			return err
		}

		err = state.WriteLocalCfg(nodeConfigPath, &nodeCfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", nodeConfigPath)
		return nil
	},
	GroupID: "init",
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Uint16P("port", "p", uint16(state.DefaultPort), "Port the router listens on, 0 picks one")
	initCmd.Flags().StringP("addr", "a", "127.0.0.1", "Address the router listens on")
}
