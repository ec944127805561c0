package main

import (
	"os"

	"github.com/pharmachat/pharmachat/cli"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
