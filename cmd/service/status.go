package service

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"clara-keeper/services"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [service]",
	Short: "Show service health status",
	Long:  "Probes one service (or all) and prints the fresh health status",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := showStatus(context.Background(), args); err != nil {
			fmt.Println(err)
		}
	},
}

func showStatus(ctx context.Context, args []string) error {
	keeper := services.GetKeeper()

	ids := make([]string, 0, 4)
	if len(args) == 1 {
		if keeper.Registry.Get(args[0]) == nil {
			return fmt.Errorf("unknown service: %s", args[0])
		}
		ids = append(ids, args[0])
	} else {
		for _, desc := range keeper.Registry.All() {
			ids = append(ids, desc.ID)
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODE\tRUNNING\tURL\tERROR")
	for _, id := range ids {
		status := keeper.Monitor.CheckStatus(ctx, id)
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\n",
			id, status.Mode, status.Running, status.ServiceURL, status.Error)
	}
	return w.Flush()
}

func init() {
	serviceCmd.AddCommand(statusCmd)

	statusCmd.Example = `  clara-keeper service status
  clara-keeper service status comfyui`
}
