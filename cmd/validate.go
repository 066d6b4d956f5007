package cmd

import (
	"fmt"

	"github.com/encodeous/sospf/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Checks the node config and prints what the router will use",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := state.ReadLocalCfg(nodeConfigPath)
		if err != nil {
			return err
		}
		err = state.NodeConfigValidator(cfg)
		if err != nil {
			return err
		}

		cfgYaml, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Config is valid")
		fmt.Fprintln(cmd.OutOrStdout(), string(cfgYaml))
		return nil
	},
	GroupID: "init",
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
