package main

import (
	"os"

	"github.com/zdk-labs/docchat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
