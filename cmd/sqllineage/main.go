// Package main provides the sqllineage command.
package main

import (
	"os"

	"github.com/shaweiguo/datahub/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
