package remote

import (
	"context"
	"fmt"

	"clara-keeper/services"

	"github.com/spf13/cobra"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test SSH connectivity and detect remote hardware",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runTest(context.Background()); err != nil {
			fmt.Println(err)
		}
	},
}

func runTest(ctx context.Context) error {
	creds, err := resolveCredentials()
	if err != nil {
		return err
	}

	keeper := services.GetKeeper()
	result, err := keeper.Remote.TestSetup(ctx, creds)
	if err != nil {
		return err
	}

	for _, entry := range keeper.Remote.State().Logs {
		fmt.Printf("[%s] %s\n", entry.Type, entry.Message)
	}
	if result.Success && result.Hardware.Deployable() {
		fmt.Printf("\nHost is deployable: %s (confidence %s)\n",
			result.Hardware.Detected, result.Hardware.Confidence)
	} else if result.Message != "" {
		fmt.Printf("\nNot deployable: %s\n", result.Message)
	}
	return nil
}

func init() {
	remoteCmd.AddCommand(testCmd)

	testCmd.Example = `  clara-keeper remote test --host 192.168.1.100 -u ubuntu -p secret`
}
