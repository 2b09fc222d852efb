package main

import (
	"flag"
	"log"

	"hjs-skeleton/internal/app"
)

func main() {
	var options app.Options
	flag.StringVar(&options.ConfigPath, "config", "", "YAML configuration file, reloaded when it changes")
	flag.StringVar(&options.InputPath, "input", "", "image to open at startup")
	flag.StringVar(&options.LogLevel, "log-level", "", "debug|info|warning|error")
	flag.Parse()

	application, err := app.NewApplication(options)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}
