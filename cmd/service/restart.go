package service

import (
	"context"
	"fmt"

	"clara-keeper/services"

	"github.com/spf13/cobra"
)

var restartCmd = &cobra.Command{
	Use:   "restart <service>",
	Short: "Restart a managed service",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runAction(context.Background(), args[0], services.ActionRestart); err != nil {
			fmt.Println(err)
		}
	},
}

func init() {
	serviceCmd.AddCommand(restartCmd)

	restartCmd.Example = `  clara-keeper service restart python-backend`
}
