// Package main is the entry point of the pathtrace command.
package main

import (
	"github.com/tebeka/atexit"

	"github.com/sarchlab/pathtrace/pathtrace/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
