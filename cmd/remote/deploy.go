package remote

import (
	"context"
	"fmt"

	"clara-keeper/internal/models"
	"clara-keeper/services"

	"github.com/spf13/cobra"
)

var optHardware string

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy ClaraCore to the remote host",
	Long:  "Runs the connectivity test and then deploys the hardware-matched ClaraCore container. Re-running replaces an existing deployment",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDeploy(context.Background()); err != nil {
			fmt.Println(err)
		}
	},
}

func runDeploy(ctx context.Context) error {
	creds, err := resolveCredentials()
	if err != nil {
		return err
	}

	keeper := services.GetKeeper()
	test, err := keeper.Remote.TestSetup(ctx, creds)
	if err != nil {
		return err
	}
	if !test.Success || !test.Hardware.Deployable() {
		for _, entry := range keeper.Remote.State().Logs {
			fmt.Printf("[%s] %s\n", entry.Type, entry.Message)
		}
		return fmt.Errorf("host is not deployable")
	}

	result, err := keeper.Remote.Deploy(ctx, creds, models.HardwareType(optHardware))
	if err != nil {
		return err
	}
	for _, entry := range keeper.Remote.State().Logs {
		fmt.Printf("[%s] %s\n", entry.Type, entry.Message)
	}
	if !result.Success {
		return fmt.Errorf("deployment failed: %s", result.Message)
	}
	fmt.Printf("\nClaraCore deployed at %s (%s)\n", result.ServiceURL, result.HardwareType)
	return nil
}

func init() {
	remoteCmd.AddCommand(deployCmd)

	deployCmd.Flags().StringVar(&optHardware, "hardware", "", "override detected hardware type (cuda/rocm/strix/cpu)")
	deployCmd.Example = `  clara-keeper remote deploy
  clara-keeper remote deploy --hardware cpu`
}
