package main

import (
	"os"

	"github.com/soyeahso/agentdash/internal/cli"
	"github.com/tillberg/autorestart"
)

func main() {
	if os.Getenv("AGENTDASH_DEV") != "" {
		go autorestart.RestartOnChange()
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
