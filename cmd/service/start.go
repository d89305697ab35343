package service

import (
	"context"
	"fmt"

	"clara-keeper/services"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start <service>",
	Short: "Start a managed service",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runAction(context.Background(), args[0], services.ActionStart); err != nil {
			fmt.Println(err)
		}
	},
}

// runAction dispatches a lifecycle verb and prints the outcome. Shared by
// the start/stop/restart subcommands.
func runAction(ctx context.Context, serviceID string, action services.ServiceAction) error {
	keeper := services.GetKeeper()
	if err := keeper.Manager.PerformAction(ctx, serviceID, action); err != nil {
		return fmt.Errorf("%s %s: %v", action, serviceID, err)
	}
	fmt.Printf("%s %s: ok\n", action, serviceID)
	return nil
}

func init() {
	serviceCmd.AddCommand(startCmd)

	startCmd.Example = `  clara-keeper service start claracore`
}
