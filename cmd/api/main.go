package main

import (
	"os"

	"github.com/DRSN-tech/photo-pipeline/internal/app"
	config "github.com/DRSN-tech/photo-pipeline/internal/cfg"
	"github.com/DRSN-tech/photo-pipeline/pkg/logger"
)

// @title			Photo Pipeline API
// @version		1.0
// @description	Приём фотографий, карточки и отдача медиа.
// @BasePath		/
func main() {
	log := logger.NewSlogLogger()

	cfg, err := config.Load(log)
	if err != nil {
		log.Errorf(err, "failed to load config")
		os.Exit(1)
	}

	if err := app.NewAPI(cfg, log).Run(); err != nil {
		os.Exit(1)
	}
}
