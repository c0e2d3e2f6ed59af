package main

import (
	"os"

	"github.com/shahbajlive/caseval/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
