package http

import (
	"github.com/go-chi/chi/v5"
	_ "github.com/manvue/go-backend/docs" // Импорт сгенерированных файлов
	"github.com/manvue/go-backend/internal/usecase"
	"github.com/manvue/go-backend/pkg/logger"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(searchUC usecase.SearchUC, outfitUC usecase.OutfitUC, ingestUC usecase.IngestUC, catalogReady func() (bool, int)) {
	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"), // ссылка на JSON
	))

	r.router.Route("/api/v1", func(v1 chi.Router) {
		searchHandler := NewSearchHandler(searchUC, catalogReady, r.logger)
		outfitHandler := NewOutfitHandler(outfitUC, r.logger)
		ingestHandler := NewIngestHandler(ingestUC, r.logger)

		registerSearchRoutes(v1, searchHandler)
		registerOutfitRoutes(v1, outfitHandler)
		registerIngestRoutes(v1, ingestHandler)
	})
}

func registerSearchRoutes(router chi.Router, h *SearchHandler) {
	router.Route("/search", func(s chi.Router) {
		s.Post("/visual", h.searchVisual)
		s.Post("/analyze", h.analyze)
		s.Get("/health", h.health)
	})
}

func registerOutfitRoutes(router chi.Router, h *OutfitHandler) {
	router.Route("/outfits", func(o chi.Router) {
		o.Get("/categories", h.categories)
		o.Post("/{productID}", h.generateOutfits)
	})
}

func registerIngestRoutes(router chi.Router, h *IngestHandler) {
	router.Post("/products/{productID}/embeddings", h.ingestProduct)
	router.Post("/index/rebuild", h.rebuildIndex)
}
