package main

import (
	"os"

	"giftlist/cmd/internal/app"
)

func main() {
	// cobra has already printed the error.
	if err := app.Execute(); err != nil {
		os.Exit(1)
	}
}
