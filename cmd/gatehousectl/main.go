package main

import (
	"os"

	"github.com/ferryhill/gatehouse/internal/gatehouse/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
