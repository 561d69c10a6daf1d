package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/swarm-hug/swarm-hug/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	err := cli.Execute()
	if err == nil {
		return 0
	}

	fmt.Fprintf(os.Stderr, "Error: %s\n", err)

	var usageErr *cli.UsageError
	var shutdownErr *cli.ShutdownError
	var timeoutErr *cli.TimeoutError
	switch {
	case errors.As(err, &usageErr):
		return 2
	case errors.As(err, &shutdownErr):
		return 130
	case errors.As(err, &timeoutErr):
		return 124
	default:
		return 1
	}
}
