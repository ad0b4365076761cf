package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/webmproject/presubmit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		if !errors.Is(err, cli.ErrFailed) {
			fmt.Fprintln(os.Stderr, "presubmit:", err)
		}
		os.Exit(1)
	}
}
