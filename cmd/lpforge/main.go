package main

import (
	"os"

	"github.com/lpforge/lpforge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
