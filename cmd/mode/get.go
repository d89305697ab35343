package mode

import (
	"fmt"
	"runtime"

	"clara-keeper/services"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <service>",
	Short: "Show the current deployment mode of a service",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := showMode(args[0]); err != nil {
			fmt.Println(err)
		}
	},
}

func showMode(serviceID string) error {
	keeper := services.GetKeeper()
	desc := keeper.Registry.Get(serviceID)
	if desc == nil {
		return fmt.Errorf("unknown service: %s", serviceID)
	}
	cfg := keeper.Store.GetConfig(serviceID)
	fmt.Printf("Service: %s\n", serviceID)
	fmt.Printf("Mode: %s\n", cfg.Mode)
	if cfg.URL != "" {
		fmt.Printf("URL: %s\n", cfg.URL)
	}
	fmt.Printf("Supported modes: %v\n", desc.SupportedModes(runtime.GOOS))
	return nil
}

func init() {
	modeCmd.AddCommand(getCmd)

	getCmd.Example = `  clara-keeper mode get n8n`
}
