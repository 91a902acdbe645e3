package cmd

import (
	"fmt"
	"os"

	"github.com/CyanoKobalamyne/msgstore/cmd/bench"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "msgstore",
		Short: "concurrent message store benchmark",
		Long: fmt.Sprintf(`msgstore (v%s)

A concurrent multi-channel message store with optimistic two-phase
POST/FETCH operations, driven by a pipelining workload dispatcher.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of msgstore",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("msgstore v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(bench.BenchCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
