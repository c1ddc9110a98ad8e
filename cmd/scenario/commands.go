package scenario

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simlink/simlink/cmd/util"
)

var (
	loadCmd = &cobra.Command{
		Use:   "load [path]",
		Short: "Loads the scenario at the given simulator-side path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := util.OpTimeout()
			defer cancel()
			if err := sim.LoadScenario(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println("scenario loaded")
			return nil
		},
	}
	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Starts the loaded scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := util.OpTimeout()
			defer cancel()
			if err := sim.StartScenario(ctx); err != nil {
				return err
			}
			fmt.Println("scenario started")
			return nil
		},
	}
	restartCmd = &cobra.Command{
		Use:   "restart",
		Short: "Restarts the running scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := util.OpTimeout()
			defer cancel()
			if err := sim.RestartScenario(ctx); err != nil {
				return err
			}
			fmt.Println("scenario restarted")
			return nil
		},
	}
	stopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Stops the running scenario and returns to the main menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := util.OpTimeout()
			defer cancel()
			if err := sim.StopScenario(ctx); err != nil {
				return err
			}
			fmt.Println("scenario stopped")
			return nil
		},
	}
	levelsCmd = &cobra.Command{
		Use:   "levels",
		Short: "Lists the levels installed in the simulator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := util.OpTimeout()
			defer cancel()
			levels, err := sim.Levels(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%v\n", levels)
			return nil
		},
	}
	listCmd = &cobra.Command{
		Use:   "list [level]...",
		Short: "Lists the scenarios available for the given levels (all levels if none given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := util.OpTimeout()
			defer cancel()
			scenarios, err := sim.Scenarios(ctx, args...)
			if err != nil {
				return err
			}
			fmt.Printf("%v\n", scenarios)
			return nil
		},
	}
)
