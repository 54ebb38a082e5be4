package main

import (
	"os"

	"github.com/MrSnakeDoc/endpointd/cmd/endpointctl/cmd"
)

func main() {
	if err := cmd.New().Execute(); err != nil {
		os.Exit(1)
	}
}
