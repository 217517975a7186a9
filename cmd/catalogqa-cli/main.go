// Command catalogqa-cli asks catalog questions from the terminal and runs the
// classifier and filter synthesizer offline.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
