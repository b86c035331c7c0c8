package main

import (
	"log"

	"github.com/netstar-dev/advisor/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ advisor failed to start: %v", err)
	}
}
