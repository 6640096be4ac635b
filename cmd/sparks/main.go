package main

import (
	"os"

	"github.com/bbq191/sparks-go/cmd/sparks/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
