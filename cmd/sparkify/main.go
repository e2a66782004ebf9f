// Command sparkify runs the Sparkify warehouse pipeline: stage event logs and
// song metadata from S3 into Redshift, load the songplays fact table and its
// dimensions, and check the result.
//
//	sparkify run --config configs/sparkify.yaml --run-date 2018-11-01
//	sparkify schedule --config configs/sparkify.yaml
//	sparkify create-tables --drop
//	sparkify counts
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFile    string
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "sparkify",
		Short:         "Load Sparkify listening data into the warehouse star schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "pipeline config (.yaml or .json); empty uses the built-in Sparkify pipeline")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "debug, info, warn or error")
	root.PersistentFlags().StringVar(&g.logFile, "log-file", os.Getenv("LOG_PATH"), "also write logs to this file, rotated")

	root.AddCommand(
		newRunCommand(g),
		newScheduleCommand(g),
		newValidateCommand(g),
		newGraphCommand(g),
		newCreateTablesCommand(g),
		newCountsCommand(g),
	)
	return root
}
