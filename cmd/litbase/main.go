package main

import (
	"os"

	"github.com/policyatlas/litbase/cmd/litbase/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
