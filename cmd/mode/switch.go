package mode

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"clara-keeper/internal/config"
	"clara-keeper/internal/models"
	"clara-keeper/services"

	"github.com/spf13/cobra"
)

var (
	optURL string
	optYes bool
)

var switchCmd = &cobra.Command{
	Use:   "switch <service> <mode>",
	Short: "Switch a service to another deployment mode",
	Long:  "Stops the old deployment, persists the new mode and endpoint, and for ClaraCore restarts it in the new mode",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := switchMode(context.Background(), args[0], models.DeployMode(args[1])); err != nil {
			fmt.Println(err)
		}
	},
}

func switchMode(ctx context.Context, serviceID string, newMode models.DeployMode) error {
	keeper := services.GetKeeper()
	desc := keeper.Registry.Get(serviceID)
	if desc == nil {
		return fmt.Errorf("unknown service: %s", serviceID)
	}
	if !desc.Supports(newMode, runtime.GOOS) {
		return fmt.Errorf("mode %s is not supported for %s on this platform", newMode, serviceID)
	}

	url := optURL
	if newMode == models.ModeRemote && url == "" {
		resolved, err := remoteURLFor(serviceID)
		if err != nil {
			return err
		}
		if resolved == "" {
			return fmt.Errorf("service %s has no remote deployment; run 'clara-keeper remote deploy' first", serviceID)
		}
		url = resolved
	}

	current := keeper.Store.GetConfig(serviceID)
	if serviceID == models.ServiceClaraCore && current.Mode != newMode && !optYes {
		if !promptYesNo(fmt.Sprintf("Switching ClaraCore to %s restarts it immediately. Continue? [y/N] ", newMode)) {
			return fmt.Errorf("aborted")
		}
	}

	if err := keeper.Switcher.SwitchMode(ctx, serviceID, newMode, url); err != nil {
		return fmt.Errorf("switch %s to %s: %v", serviceID, newMode, err)
	}
	fmt.Printf("switched %s to %s\n", serviceID, newMode)
	return nil
}

func remoteURLFor(serviceID string) (string, error) {
	if serviceID == models.ServiceClaraCore {
		core, err := config.LoadClaraCoreRemoteConfig()
		if err != nil {
			return "", err
		}
		if core.Deployed {
			return core.URL, nil
		}
	}
	server, err := config.LoadRemoteServerConfig()
	if err != nil {
		return "", err
	}
	return server.Services[serviceID].URL, nil
}

func promptYesNo(message string) bool {
	fmt.Print(message)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	modeCmd.AddCommand(switchCmd)

	switchCmd.Flags().StringVar(&optURL, "url", "", "endpoint URL for manual/remote mode")
	switchCmd.Flags().BoolVarP(&optYes, "yes", "y", false, "skip the ClaraCore restart confirmation")
	switchCmd.Example = `  clara-keeper mode switch claracore docker --yes
  clara-keeper mode switch python-backend manual --url http://192.168.1.50:5001`
}
