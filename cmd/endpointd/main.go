package main

import (
	"log"

	"github.com/MrSnakeDoc/endpointd/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("endpointd failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("endpointd stopped with error: %v", err)
	}
}
