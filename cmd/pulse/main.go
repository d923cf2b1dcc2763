package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"servicepulse/internal/app"
	"servicepulse/internal/config"
	"servicepulse/pkg/contracts"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file (defaults to PULSE_CONFIG_FILE or config.yaml)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	var cfg *config.Config
	if *configFile != "" {
		loaded, err := config.LoadFrom(*configFile)
		if err != nil {
			slog.Error("Failed to load configuration", slog.String("error", err.Error()))
			os.Exit(1)
		}
		cfg = loaded
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
