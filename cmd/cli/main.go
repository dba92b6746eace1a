package main

import (
	"os"

	"github.com/dvloznov/expense-inbox/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
