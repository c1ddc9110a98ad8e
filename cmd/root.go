package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/simlink/simlink/cmd/control"
	"github.com/simlink/simlink/cmd/scenario"
	"github.com/simlink/simlink/cmd/util"
	"github.com/simlink/simlink/cmd/vehicle"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "simlink",
		Short: "remote control for a running simulator",
		Long: fmt.Sprintf(`simlink (v%s)

A remote-control client for a running physics simulator, speaking its
binary TCP protocol: scenario lifecycle, simulation stepping and
per-vehicle control and sensor channels.`, Version),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level, err := logrus.ParseLevel(cmd.Flag("log-level").Value.String())
			if err != nil {
				level = logrus.WarnLevel
			}
			logrus.SetLevel(level)
		},
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of simlink",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("simlink v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(scenario.ScenarioCommands)
	RootCmd.AddCommand(control.ControlCommands)
	RootCmd.AddCommand(vehicle.VehicleCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	RootCmd.PersistentFlags().String("log-level", "warn", util.WrapString("log level (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
