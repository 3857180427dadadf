package http

import (
	"context"
	"net/http"
	"time"

	_ "github.com/DRSN-tech/photo-pipeline/docs" // Импорт сгенерированных файлов
	"github.com/DRSN-tech/photo-pipeline/internal/cfg"
	"github.com/DRSN-tech/photo-pipeline/internal/usecase"
	"github.com/DRSN-tech/photo-pipeline/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck проверяет доступность зависимости.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(photoUC usecase.PhotoUC, uploadCfg *cfg.UploadCfg, checks ...HealthCheck) {
	r.router.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.router.NotFound(WriteNotFound)

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.router.Get("/healthz", healthHandler(checks))

	photoHandler := NewPhotoHandler(photoUC, uploadCfg, r.logger)
	registerPhotoRoutes(r.router, photoHandler)

	mediaHandler := NewMediaHandler(photoUC, r.logger)
	registerMediaRoutes(r.router, mediaHandler)
}

func registerPhotoRoutes(router chi.Router, photoHandler *PhotoHandler) {
	router.Route("/photos", func(ph chi.Router) {
		ph.Post("/", photoHandler.uploadPhoto)
		ph.Get("/{id}", photoHandler.getPhoto)
	})
	router.Get("/businesses/{businessId}/photos", photoHandler.listBusinessPhotos)
}

func registerMediaRoutes(router chi.Router, mediaHandler *MediaHandler) {
	router.Route("/media", func(md chi.Router) {
		md.Get("/photos/{id}", mediaHandler.servePhoto)
		md.Get("/thumbs/{id}", mediaHandler.serveThumbnail)
	})
}

// healthHandler
//
//	@Summary	Проверка готовности
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Failure	503	{object}	HealthResponse
//	@Router		/healthz [get]
func healthHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				WriteSuccess(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Failed: c.Name})
				return
			}
		}

		WriteSuccess(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}
