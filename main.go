package main

import (
	"os"

	"github.com/eculver/aws-idp-token/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
