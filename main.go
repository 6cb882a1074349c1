package main

import (
	"os"

	"github.com/spigell/self-interview/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
