package main

import (
	"os"

	"github.com/moocmirror/mooc-mirror/cmd/mooc-mirror/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
