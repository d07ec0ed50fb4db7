// Command agentctl lists, monitors and controls launchd agents.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
