package main

import (
	"os"

	"github.com/monotask/mono/internal/cmd"
	"github.com/monotask/mono/internal/config"
)

func main() {
	os.Exit(cmd.RunWithArgs(os.Args[1:], config.Version))
}
