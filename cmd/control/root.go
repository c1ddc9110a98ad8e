package control

import (
	"github.com/spf13/cobra"

	"github.com/simlink/simlink/client"
	"github.com/simlink/simlink/cmd/util"
)

var (
	sim *client.Simulator

	// ControlCommands represents the simulation control command group
	ControlCommands = &cobra.Command{
		Use:               "control",
		Short:             "Step, pause and resume the simulation",
		PersistentPreRunE: setupClient,
		PersistentPostRun: teardownClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common connection flags to the control command
	util.SetupClientFlags(ControlCommands)

	// Add subcommands
	ControlCommands.AddCommand(stepCmd)
	ControlCommands.AddCommand(pauseCmd)
	ControlCommands.AddCommand(resumeCmd)
	ControlCommands.AddCommand(stateCmd)
	ControlCommands.AddCommand(quitCmd)
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
