package main

import (
	"os"

	"github.com/uivision/bot/cmd/visionctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
