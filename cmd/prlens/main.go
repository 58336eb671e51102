package main

import (
	"os"

	"github.com/dshills/prlens/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
