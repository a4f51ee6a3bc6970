package main

import (
	"os"

	"astcensus/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
