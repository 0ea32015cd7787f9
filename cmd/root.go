package cmd

import (
	"fmt"
	"github.com/ValentinKolb/skv/cmd/bench"
	"github.com/ValentinKolb/skv/cmd/kv"
	"github.com/ValentinKolb/skv/cmd/serve"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "skv",
		Short: "single-threaded key-value server and latency benchmark",
		Long: fmt.Sprintf(`skv (v%s)

An in-memory key-value server speaking a line protocol over TCP, served by a
single event loop, together with a benchmark that measures its request latency.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of skv",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("skv v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(bench.BenchCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
