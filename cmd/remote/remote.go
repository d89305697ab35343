package remote

import (
	"fmt"

	"clara-keeper/cmd/root"
	"clara-keeper/internal/config"
	"clara-keeper/internal/models"

	"github.com/spf13/cobra"
)

var (
	optHost     string
	optPort     int
	optUsername string
	optPassword string
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Remote deployment operations (test/deploy)",
	Long:  `Test a remote host over SSH and deploy the hardware-matched ClaraCore container to it`,
}

// resolveCredentials merges command-line flags over the stored server
// record. Flags win field by field.
func resolveCredentials() (models.SSHCredentials, error) {
	stored, err := config.LoadRemoteServerConfig()
	if err != nil {
		return models.SSHCredentials{}, err
	}
	creds := stored.Credentials()
	if optHost != "" {
		creds.Host = optHost
	}
	if optPort != 0 {
		creds.Port = optPort
	}
	if optUsername != "" {
		creds.Username = optUsername
	}
	if optPassword != "" {
		creds.Password = optPassword
	}
	if creds.Host == "" {
		return models.SSHCredentials{}, fmt.Errorf("no remote host configured; pass --host or save a server record first")
	}
	return creds, nil
}

func init() {
	root.RootCmd.AddCommand(remoteCmd)

	remoteCmd.PersistentFlags().StringVar(&optHost, "host", "", "SSH host")
	remoteCmd.PersistentFlags().IntVar(&optPort, "port", 0, "SSH port (default 22)")
	remoteCmd.PersistentFlags().StringVarP(&optUsername, "username", "u", "", "SSH username")
	remoteCmd.PersistentFlags().StringVarP(&optPassword, "password", "p", "", "SSH password")
	remoteCmd.Example = `  clara-keeper remote test --host 192.168.1.100 -u ubuntu -p secret
  clara-keeper remote deploy`
}
