package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var nodeConfigPath = "node.yaml"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sospf",
	Short: "Simulated OSPF link-state router",
	Long: `sospf runs one simulated router of a link-state network.
Routers exchange HELLOs over their links, flood link-state advertisements and compute shortest paths with Dijkstra.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "init",
		Title: "Configure a Router",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "ny",
		Title: "Router Commands",
	})
	rootCmd.PersistentFlags().StringVarP(&nodeConfigPath, "node-config", "n", nodeConfigPath, "router config, .yaml or .toml")
}
