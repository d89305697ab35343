package service

import (
	"context"
	"fmt"

	"clara-keeper/services"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop <service>",
	Short: "Stop a managed service",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runAction(context.Background(), args[0], services.ActionStop); err != nil {
			fmt.Println(err)
		}
	},
}

func init() {
	serviceCmd.AddCommand(stopCmd)

	stopCmd.Example = `  clara-keeper service stop n8n`
}
