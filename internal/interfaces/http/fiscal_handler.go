package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-sifen/internal/application/dto"
	"github.com/jhoicas/facturacion-sifen/internal/application/fiscal"
	"github.com/jhoicas/facturacion-sifen/internal/domain"
	"github.com/jhoicas/facturacion-sifen/internal/domain/entity"
	"github.com/jhoicas/facturacion-sifen/internal/domain/geo"
	infrasifen "github.com/jhoicas/facturacion-sifen/internal/infrastructure/sifen"
	"github.com/jhoicas/facturacion-sifen/pkg/logger"
)

// Emitter lo implementa *fiscal.Orchestrator.
type Emitter interface {
	Emit(ctx context.Context, saleID string) (*entity.FiscalDocument, error)
	Regenerate(ctx context.Context, saleID string) (*entity.FiscalDocument, error)
}

// ArtifactReader lo implementa *fiscal.ArtifactsUseCase.
type ArtifactReader interface {
	GetDocumentArtifacts(ctx context.Context, documentID string) (entity.Artifacts, error)
	Open(ctx context.Context, documentID string, kind fiscal.ArtifactKind) ([]byte, string, error)
}

// StatusQuerier lo implementa *fiscal.StatusUseCase.
type StatusQuerier interface {
	QueryStatus(ctx context.Context, documentID string) (*entity.FiscalDocument, *infrasifen.Result, error)
}

// LocationSearcher lo implementa *geo.Resolver.
type LocationSearcher interface {
	Search(text string, limit int) []geo.Location
}

// FiscalHandler emisión y consulta de documentos electrónicos (protegido).
type FiscalHandler struct {
	emitter   Emitter
	artifacts ArtifactReader
	status    StatusQuerier
	geo       LocationSearcher
	log       *logger.Logger
}

// NewFiscalHandler construye el handler.
func NewFiscalHandler(emitter Emitter, artifacts ArtifactReader, status StatusQuerier, geo LocationSearcher, log *logger.Logger) *FiscalHandler {
	return &FiscalHandler{emitter: emitter, artifacts: artifacts, status: status, geo: geo, log: log.Component("http.fiscal")}
}

// Emit godoc
// @Summary      Emitir el documento electrónico de una venta
// @Description  Crea (o reutiliza) el documento fiscal de la venta, lo firma, genera el KuDE y lo envía a SIFEN.
// @Description  Si SIFEN no responde el documento queda PENDIENTE y la respuesta sigue siendo 200.
// @Tags         fiscal
// @Produce      json
// @Security     BearerAuth
// @Param        saleId  path      string  true  "ID de la venta"
// @Success      200     {object}  dto.FiscalDocumentResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Failure      409     {object}  dto.ErrorResponse
// @Failure      422     {object}  dto.ErrorResponse
// @Failure      500     {object}  dto.ErrorResponse
// @Router       /api/fiscal/ventas/{saleId}/emitir [post]
func (h *FiscalHandler) Emit(c *fiber.Ctx) error {
	saleID := c.Params("saleId")
	if saleID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "saleId requerido"})
	}
	doc, err := h.emitter.Emit(c.UserContext(), saleID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(dto.FiscalDocumentFromEntity(doc))
}

// Regenerate godoc
// @Summary      Regenerar artefactos sin enviar
// @Description  Vuelve a armar, firmar y renderizar el documento. Si la venta está anulada el KuDE lleva la marca ANULADA.
// @Tags         fiscal
// @Produce      json
// @Security     BearerAuth
// @Param        saleId  path      string  true  "ID de la venta"
// @Success      200     {object}  dto.FiscalDocumentResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Failure      500     {object}  dto.ErrorResponse
// @Router       /api/fiscal/ventas/{saleId}/regenerar [post]
func (h *FiscalHandler) Regenerate(c *fiber.Ctx) error {
	doc, err := h.emitter.Regenerate(c.UserContext(), c.Params("saleId"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(dto.FiscalDocumentFromEntity(doc))
}

// Artifacts godoc
// @Summary      Rutas de los artefactos
// @Tags         fiscal
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "ID del documento fiscal"
// @Success      200  {object}  dto.ArtifactsResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/fiscal/documentos/{id}/artefactos [get]
func (h *FiscalHandler) Artifacts(c *fiber.Ctx) error {
	id := c.Params("id")
	a, err := h.artifacts.GetDocumentArtifacts(c.UserContext(), id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(dto.ArtifactsFromEntity(id, a))
}

// DownloadXML godoc
// @Summary      Descargar el XML
// @Description  Por defecto el XML firmado con el QR; tipo=sin_firmar devuelve el XML previo a la firma.
// @Tags         fiscal
// @Produce      application/xml
// @Security     BearerAuth
// @Param        id    path   string  true   "ID del documento fiscal"
// @Param        tipo  query  string  false  "firmado | sin_firmar"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/fiscal/documentos/{id}/xml [get]
func (h *FiscalHandler) DownloadXML(c *fiber.Ctx) error {
	kind := fiscal.ArtifactSignedXML
	switch c.Query("tipo") {
	case "", "firmado":
	case "sin_firmar":
		kind = fiscal.ArtifactXML
	default:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "tipo debe ser firmado o sin_firmar"})
	}
	return h.download(c, kind, "application/xml; charset=utf-8")
}

// DownloadPDF godoc
// @Summary      Descargar el KuDE
// @Description  Verifica el SHA-256 registrado antes de entregar el archivo.
// @Tags         fiscal
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id   path  string  true  "ID del documento fiscal"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/fiscal/documentos/{id}/pdf [get]
func (h *FiscalHandler) DownloadPDF(c *fiber.Ctx) error {
	return h.download(c, fiscal.ArtifactPDF, "application/pdf")
}

func (h *FiscalHandler) download(c *fiber.Ctx, kind fiscal.ArtifactKind, contentType string) error {
	data, name, err := h.artifacts.Open(c.UserContext(), c.Params("id"), kind)
	if err != nil {
		return h.writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Send(data)
}

// Status godoc
// @Summary      Consultar el documento en SIFEN por CDC
// @Description  Consulta en el ambiente en que se envió el documento. El estado local no cambia.
// @Tags         fiscal
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "ID del documento fiscal"
// @Success      200  {object}  dto.StatusResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/fiscal/documentos/{id}/estado [get]
func (h *FiscalHandler) Status(c *fiber.Ctx) error {
	doc, res, err := h.status.QueryStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(dto.StatusResponse{
		DocumentID: doc.ID,
		CDC:        doc.CDC,
		OK:         res.OK,
		HTTPStatus: res.HTTPStatus,
		Response:   res.RawBody,
	})
}

// SearchLocations godoc
// @Summary      Buscar ciudades del catálogo geográfico
// @Tags         fiscal
// @Produce      json
// @Security     BearerAuth
// @Param        q      query     string  true   "texto a buscar"
// @Param        limit  query     int     false  "máximo de resultados (defecto 20)"
// @Success      200    {array}   dto.LocationResponse
// @Router       /api/fiscal/geo [get]
func (h *FiscalHandler) SearchLocations(c *fiber.Ctx) error {
	var req dto.SearchRequest
	if err := c.QueryParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "parámetros de búsqueda inválidos"})
	}
	if len([]rune(req.Q)) < 2 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "q requiere al menos 2 caracteres"})
	}
	req.DefaultLimit()
	return c.JSON(dto.LocationsFromGeo(h.geo.Search(req.Q, req.Limit)))
}

// writeError traduce la taxonomía de errores a HTTP.
func (h *FiscalHandler) writeError(c *fiber.Ctx, err error) error {
	status, code := classify(err)
	if status >= fiber.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Path()).Msg("operación fiscal fallida")
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}

func classify(err error) (int, string) {
	var (
		persistence *domain.PersistenceError
		signing     *domain.SigningError
		transport   *domain.TransportError
	)
	if code, ok := domain.TimbradoCode(err); ok {
		return fiber.StatusUnprocessableEntity, code
	}
	switch {
	case domain.IsValidation(err), errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.As(err, &persistence):
		return fiber.StatusInternalServerError, "PERSISTENCIA"
	case errors.As(err, &signing):
		return fiber.StatusInternalServerError, "FIRMA"
	case errors.As(err, &transport):
		return fiber.StatusBadGateway, "TRANSPORTE"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrIntegrity):
		return fiber.StatusConflict, "INTEGRIDAD"
	case errors.Is(err, domain.ErrLocked):
		return fiber.StatusConflict, "EN_PROCESO"
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "CONFLICTO"
	}
	return fiber.StatusInternalServerError, "INTERNAL"
}
