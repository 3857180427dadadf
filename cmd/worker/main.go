package main

import (
	"os"

	"github.com/DRSN-tech/photo-pipeline/internal/app"
	config "github.com/DRSN-tech/photo-pipeline/internal/cfg"
	"github.com/DRSN-tech/photo-pipeline/pkg/logger"
)

func main() {
	log := logger.NewSlogLogger()

	cfg, err := config.Load(log)
	if err != nil {
		log.Errorf(err, "failed to load config")
		os.Exit(1)
	}

	if err := app.NewWorker(cfg, log).Run(); err != nil {
		os.Exit(1)
	}
}
