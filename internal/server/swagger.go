package server

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/raysh454/courtfetch/internal/server/docs" // registers the OpenAPI document
)

//go:generate swag init -g internal/server/server.go -o internal/server/docs

// @title CourtFetch API
// @version 0.1
// @description Case-status lookups against a court portal: request a challenge, answer it with the case details, read the record back.
// @contact.name CourtFetch Maintainers
// @contact.url https://github.com/raysh454/courtfetch
// @BasePath /

func (s *Server) swaggerRoutes(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
