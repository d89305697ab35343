package mode

import (
	"clara-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var modeCmd = &cobra.Command{
	Use:   "mode",
	Short: "Deployment mode operations (get/switch)",
	Long:  `Inspect or switch the deployment mode (local/docker/manual/remote) of a managed service`,
}

func init() {
	root.RootCmd.AddCommand(modeCmd)

	modeCmd.Example = `  clara-keeper mode get claracore
  clara-keeper mode switch claracore docker`
}
