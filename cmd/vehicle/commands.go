package vehicle

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simlink/simlink/client"
	"github.com/simlink/simlink/cmd/util"
)

var (
	stateCmd = &cobra.Command{
		Use:   "state [vehicle-id]",
		Short: "Prints the kinematic state of a vehicle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := util.OpTimeout()
			defer cancel()

			veh, err := sim.Vehicle(ctx, args[0])
			if err != nil {
				return err
			}
			defer veh.Close()

			state, err := veh.State(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("position:  %.3f %.3f %.3f\n", state.Position[0], state.Position[1], state.Position[2])
			fmt.Printf("velocity:  %.3f %.3f %.3f\n", state.Velocity[0], state.Velocity[1], state.Velocity[2])
			fmt.Printf("direction: %.3f %.3f %.3f\n", state.Direction[0], state.Direction[1], state.Direction[2])
			return nil
		},
	}
	controlCmd = &cobra.Command{
		Use:   "control [vehicle-id]",
		Short: "Applies one frame of driving inputs to a vehicle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			throttle, _ := cmd.Flags().GetFloat64("throttle")
			steering, _ := cmd.Flags().GetFloat64("steering")
			brake, _ := cmd.Flags().GetFloat64("brake")
			gear, _ := cmd.Flags().GetInt("gear")

			ctx, cancel := util.OpTimeout()
			defer cancel()

			veh, err := sim.Vehicle(ctx, args[0])
			if err != nil {
				return err
			}
			defer veh.Close()

			if err := veh.Apply(ctx, client.Control{
				Throttle: throttle,
				Steering: steering,
				Brake:    brake,
				Gear:     gear,
			}); err != nil {
				return err
			}
			fmt.Println("control applied")
			return nil
		},
	}
)

func init() {
	controlCmd.Flags().Float64("throttle", 0, util.WrapString("Throttle input between 0 and 1"))
	controlCmd.Flags().Float64("steering", 0, util.WrapString("Steering input between -1 (left) and 1 (right)"))
	controlCmd.Flags().Float64("brake", 0, util.WrapString("Brake input between 0 and 1"))
	controlCmd.Flags().Int("gear", 1, util.WrapString("Gear to engage (-1 reverse, 0 neutral)"))
}
