package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/san-kum/flightlab/cmd/flightlab/cmd"
)

func main() {
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
