package control

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/simlink/simlink/cmd/util"
)

var (
	stepCmd = &cobra.Command{
		Use:   "step [ticks]",
		Short: "Advances the simulation by the given number of physics ticks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticks, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("ticks must be a number: %w", err)
			}
			ctx, cancel := util.OpTimeout()
			defer cancel()
			if err := sim.Step(ctx, ticks); err != nil {
				return err
			}
			fmt.Printf("stepped %d ticks\n", ticks)
			return nil
		},
	}
	pauseCmd = &cobra.Command{
		Use:   "pause",
		Short: "Pauses the simulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := util.OpTimeout()
			defer cancel()
			if err := sim.Pause(ctx); err != nil {
				return err
			}
			fmt.Println("paused")
			return nil
		},
	}
	resumeCmd = &cobra.Command{
		Use:   "resume",
		Short: "Resumes a paused simulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := util.OpTimeout()
			defer cancel()
			if err := sim.Resume(ctx); err != nil {
				return err
			}
			fmt.Println("resumed")
			return nil
		},
	}
	stateCmd = &cobra.Command{
		Use:   "state",
		Short: "Prints the simulator's current game state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := util.OpTimeout()
			defer cancel()
			state, err := sim.GameState(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("state: %s\n", state.String("state"))
			if scenario := state.String("scenario"); scenario != "" {
				fmt.Printf("scenario: %s\n", scenario)
			}
			return nil
		},
	}
	quitCmd = &cobra.Command{
		Use:   "quit",
		Short: "Shuts the simulator process down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := util.OpTimeout()
			defer cancel()
			if err := sim.Quit(ctx); err != nil {
				return err
			}
			fmt.Println("simulator shut down")
			return nil
		},
	}
)
