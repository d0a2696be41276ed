package main

import (
	"os"
	_ "time/tzdata"

	"github.com/example/lingoleague/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
