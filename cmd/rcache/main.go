package main

import (
	"os"

	"github.com/dl-alexandre/rcache/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
