package main

import (
	"os"

	"github.com/goliatone/go-settings/cmd/settingsctl/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
