package hardware

import (
	"context"
	"fmt"

	"clara-keeper/cmd/root"
	"clara-keeper/internal/sshx"
	"clara-keeper/services"

	"github.com/spf13/cobra"
)

var hardwareCmd = &cobra.Command{
	Use:   "hardware",
	Short: "Probe this machine for deployable hardware",
	Long:  "Runs the same probe the remote setup runs, against the local machine: architecture, docker, NVIDIA/ROCm/Strix accelerators",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := probeLocal(context.Background()); err != nil {
			fmt.Println(err)
		}
	},
}

func probeLocal(ctx context.Context) error {
	runner := sshx.NewLocalRunner()
	defer runner.Close()

	result := services.DetectHardware(ctx, runner)
	if result.Error != "" {
		return fmt.Errorf("probe failed: %s", result.Error)
	}

	fmt.Printf("Architecture: %s\n", result.Details.Architecture)
	if result.Details.DockerPresent {
		fmt.Printf("Docker: %s\n", result.Details.DockerVersion)
	} else {
		fmt.Println("Docker: not found")
	}
	if result.Details.GPUName != "" {
		fmt.Printf("GPU: %s\n", result.Details.GPUName)
	}
	if result.Details.CPUModel != "" {
		fmt.Printf("CPU: %s\n", result.Details.CPUModel)
	}
	fmt.Printf("Detected: %s (confidence %s)\n", result.Detected, result.Confidence)
	if result.UnsupportedReason != "" {
		fmt.Printf("Not deployable: %s\n", result.UnsupportedReason)
	}
	return nil
}

func init() {
	root.RootCmd.AddCommand(hardwareCmd)

	hardwareCmd.Example = `  clara-keeper hardware`
}
