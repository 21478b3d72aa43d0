package main

import (
	"os"

	"github.com/kasefra/landing/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
