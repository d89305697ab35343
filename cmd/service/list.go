package service

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"text/tabwriter"

	"clara-keeper/services"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all managed services",
	Long:  "Lists every managed service with its deployment mode, endpoint and current health",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := listServices(context.Background()); err != nil {
			fmt.Println(err)
		}
	},
}

func listServices(ctx context.Context) error {
	keeper := services.GetKeeper()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMODE\tURL\tRUNNING\tSUPPORTED MODES")
	for _, desc := range keeper.Registry.All() {
		detail, err := keeper.Manager.GetDetail(ctx, desc.ID)
		if err != nil {
			return fmt.Errorf("get %s detail: %v", desc.ID, err)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%v\n",
			detail.ID, detail.DisplayName, detail.Mode, detail.URL,
			detail.Status.Running, desc.SupportedModes(runtime.GOOS))
	}
	return w.Flush()
}

func init() {
	serviceCmd.AddCommand(listCmd)

	listCmd.Example = `  clara-keeper service list`
}
