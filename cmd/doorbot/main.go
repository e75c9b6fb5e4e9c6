// Command doorbot is the door access controller.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/doorbot/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		code := cli.GetExitCode(err)
		if code != cli.ExitRestart {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(code)
	}
}
