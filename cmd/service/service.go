package service

import (
	"clara-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Service operations (list/start/stop/restart/status)",
	Long:  `Service operations (list/start/stop/restart/status)`,
}

const serviceExample = `  # start a service
  clara-keeper service start claracore`

func init() {
	root.RootCmd.AddCommand(serviceCmd)

	serviceCmd.Example = serviceExample
}
