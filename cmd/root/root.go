package root

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "clara-keeper",
	Short: "ClaraVerse service keeper",
	Long:  `clara-keeper manages the lifecycle, deployment mode and health of the ClaraVerse backend services (ClaraCore, Python backend, N8N, ComfyUI), locally and on remote hosts`,
}
