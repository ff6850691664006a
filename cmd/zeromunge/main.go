package main

import (
	"os"

	"github.com/Iron-Ham/zeromunge/internal/cmd"
)

func main() {
	os.Exit(cmd.ExitCode(cmd.Execute()))
}
