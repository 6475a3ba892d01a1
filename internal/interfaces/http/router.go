package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-sifen/pkg/logger"
)

// Roles con permiso de emitir; las consultas quedan abiertas a cualquier
// usuario autenticado.
var emitRoles = []string{"admin", "cajero"}

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Emitter   Emitter
	Artifacts ArtifactReader
	Status    StatusQuerier
	Geo       LocationSearcher
	Logger    *logger.Logger
	JWTSecret string
	JWTIssuer string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	fiscalGroup := api.Group("/fiscal", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))
	h := NewFiscalHandler(deps.Emitter, deps.Artifacts, deps.Status, deps.Geo, deps.Logger)

	ventas := fiscalGroup.Group("/ventas", RequireRole(emitRoles...))
	ventas.Post("/:saleId/emitir", h.Emit)
	ventas.Post("/:saleId/regenerar", h.Regenerate)

	docs := fiscalGroup.Group("/documentos")
	docs.Get("/:id/artefactos", h.Artifacts)
	docs.Get("/:id/xml", h.DownloadXML)
	docs.Get("/:id/pdf", h.DownloadPDF)
	docs.Get("/:id/estado", h.Status)

	fiscalGroup.Get("/geo", h.SearchLocations)
}
