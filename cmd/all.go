package cmd

import (
	_ "clara-keeper/cmd/hardware"
	_ "clara-keeper/cmd/mode"
	_ "clara-keeper/cmd/remote"
	_ "clara-keeper/cmd/root"
	_ "clara-keeper/cmd/server"
	_ "clara-keeper/cmd/service"
)
