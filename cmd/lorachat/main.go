package main

import (
	"os"

	"lorachat/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
