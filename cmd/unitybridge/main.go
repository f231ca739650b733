package main

import (
	"os"

	"github.com/unitybridge/unitybridge/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
