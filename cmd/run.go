package cmd

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/encodeous/sospf/core"
	"github.com/encodeous/sospf/state"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a router",
	Long:  `This will run the router described by the node config and read operator commands from stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := state.ReadLocalCfg(nodeConfigPath)
		if err != nil {
			return err
		}
		if logPath, _ := cmd.Flags().GetString("log"); logPath != "" {
			cfg.LogPath = logPath
		}
		err = state.NodeConfigValidator(cfg)
		if err != nil {
			return err
		}

		level := slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}

		if addr, _ := cmd.Flags().GetString("debug-addr"); addr != "" {
			go func() {
				slog.Warn("debug server stopped", "err", http.ListenAndServe(addr, nil))
			}()
		}

		headless, _ := cmd.Flags().GetBool("headless")
		return core.Start(*cfg, level, nil, func(s *state.State) {
			if headless {
				return
			}
			go func() {
				_ = NewConsole(s.Env, os.Stdout).Run(os.Stdin)
			}()
		})
	},
	SilenceUsage: true,
	GroupID:      "ny",
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().String("log", "", "Also write logs to this file")
	runCmd.Flags().String("debug-addr", "", "Serve /debug/metrics and /debug/vars on this address")
	runCmd.Flags().Bool("headless", false, "Do not read commands from stdin")
}
