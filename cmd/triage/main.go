package main

import (
	"os"

	"github.com/kapu/nyaay-triage-go/cmd/triage/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
