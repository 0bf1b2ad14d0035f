package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/thaiesports/ticketbot/pkg/logging"
)

func main() {
	// Load .env before anything reads the environment; a missing file is fine.
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", slog.String(logging.KeyError, err.Error()))
	}

	a, err := InitializeApp()
	if err != nil {
		log.Fatalln(err)
	}
	parseConfig()
	a.Info("Starting application")
	if err := a.Run(); err != nil {
		a.Error("Error running application", slog.String(logging.KeyError, err.Error()))
		os.Exit(1)
	}
}
