package main

import (
	"os"

	"github.com/egtbills/tbill-yields/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
