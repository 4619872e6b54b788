package main

import (
	"os"

	ocgocmder "github.com/papercomputeco/opencode-go/cmd/ocgo"
)

func main() {
	cmd := ocgocmder.NewOcgoCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
