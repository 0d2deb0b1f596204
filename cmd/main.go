package main

// Entry point of readme-image
// Executes the cobra root command and maps any error to exit status 1

import (
	"fmt"
	"os"

	"readme-image/cmd/commands"
	"readme-image/internal/infra/log"
)

func main() {
	err := commands.Execute()
	// flush before os.Exit, failed runs included
	log.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
