package scenario

import (
	"github.com/spf13/cobra"

	"github.com/simlink/simlink/client"
	"github.com/simlink/simlink/cmd/util"
)

var (
	sim *client.Simulator

	// ScenarioCommands represents the scenario command group
	ScenarioCommands = &cobra.Command{
		Use:               "scenario",
		Short:             "Load, start, restart and stop scenarios",
		PersistentPreRunE: setupClient,
		PersistentPostRun: teardownClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common connection flags to the scenario command
	util.SetupClientFlags(ScenarioCommands)

	// Add subcommands
	ScenarioCommands.AddCommand(loadCmd)
	ScenarioCommands.AddCommand(startCmd)
	ScenarioCommands.AddCommand(restartCmd)
	ScenarioCommands.AddCommand(stopCmd)
	ScenarioCommands.AddCommand(levelsCmd)
	ScenarioCommands.AddCommand(listCmd)
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
