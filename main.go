// main is the entry point for the gatekeeper CLI.
package main

import (
	"github.com/huangsam/gatekeeper/cmd"
	"github.com/huangsam/gatekeeper/internal/contract"
)

func main() {
	if err := cmd.Execute(); err != nil {
		contract.LogFatal("error", err)
	}
}
