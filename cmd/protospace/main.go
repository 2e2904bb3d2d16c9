package main

import (
	"fmt"
	"io"
	"os"

	"protospace/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run(os.Stderr))
}

func run(stderr io.Writer) int {
	cfg, err := config.Load()
	if err == nil {
		err = newRootCmd(cfg).Execute()
	}
	if err == nil {
		return 0
	}
	for _, line := range formatCLIError(err) {
		fmt.Fprintln(stderr, line)
	}
	return 1
}
