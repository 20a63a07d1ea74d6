package main

import (
	"os"

	"github.com/ent0n29/birthdaybot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
