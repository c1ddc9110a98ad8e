package vehicle

import (
	"github.com/spf13/cobra"

	"github.com/simlink/simlink/client"
	"github.com/simlink/simlink/cmd/util"
)

var (
	sim *client.Simulator

	// VehicleCommands represents the vehicle command group
	VehicleCommands = &cobra.Command{
		Use:               "vehicle",
		Short:             "Query and control individual vehicles",
		PersistentPreRunE: setupClient,
		PersistentPostRun: teardownClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common connection flags to the vehicle command
	util.SetupClientFlags(VehicleCommands)

	// Add subcommands
	VehicleCommands.AddCommand(stateCmd)
	VehicleCommands.AddCommand(controlCmd)
}

// setupClient connects to the simulator
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	sim, err = util.Connect()
	return err
}

func teardownClient(_ *cobra.Command, _ []string) {
	if sim != nil {
		sim.Close()
	}
}
