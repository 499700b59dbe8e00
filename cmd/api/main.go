package main

import (
	"log"

	"github.com/ayo6706/ledger-engine/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatalf("ledger-engine: %v", err)
	}
}
