package dto

import (
	"time"

	"github.com/jhoicas/facturacion-sifen/internal/domain/entity"
	"github.com/jhoicas/facturacion-sifen/internal/domain/geo"
)

// FiscalDocumentResponse documento fiscal expuesto por la API.
type FiscalDocumentResponse struct {
	ID             string           `json:"id"`
	SaleID         string           `json:"sale_id"`
	DocumentNumber string           `json:"numero"`
	Timbrado       string           `json:"timbrado"`
	CDC            string           `json:"cdc"`
	IssuedAt       time.Time        `json:"fecha_emision"`
	Total          string           `json:"total"`
	TotalVat       string           `json:"total_iva"`
	State          string           `json:"estado"`
	Attempts       int              `json:"intentos"`
	Environment    string           `json:"ambiente"`
	LastHTTPStatus int              `json:"ultimo_http_status,omitempty"`
	LastResponse   string           `json:"ultima_respuesta,omitempty"`
	SentAt         *time.Time       `json:"enviado_en,omitempty"`
	QR             entity.QRPayload `json:"qr"`
	QRURL          string           `json:"qr_url,omitempty"`
}

// ArtifactsResponse rutas de los archivos generados.
type ArtifactsResponse struct {
	DocumentID    string `json:"documento_id"`
	XMLPath       string `json:"xml"`
	SignedXMLPath string `json:"xml_firmado"`
	PDFPath       string `json:"pdf"`
	PDFHash       string `json:"pdf_sha256"`
}

// StatusResponse resultado de la consulta por CDC. La respuesta de SIFEN se
// devuelve cruda.
type StatusResponse struct {
	DocumentID string `json:"documento_id"`
	CDC        string `json:"cdc"`
	OK         bool   `json:"ok"`
	HTTPStatus int    `json:"http_status"`
	Response   string `json:"respuesta"`
}

// LocationResponse fila del catálogo geográfico.
type LocationResponse struct {
	DepartmentCode int    `json:"departamento_codigo"`
	Department     string `json:"departamento"`
	DistrictCode   int    `json:"distrito_codigo"`
	District       string `json:"distrito"`
	CityCode       int    `json:"ciudad_codigo"`
	City           string `json:"ciudad"`
}

// FiscalDocumentFromEntity arma la respuesta desde la entidad.
func FiscalDocumentFromEntity(d *entity.FiscalDocument) FiscalDocumentResponse {
	return FiscalDocumentResponse{
		ID:             d.ID,
		SaleID:         d.SaleID,
		DocumentNumber: d.DocumentNumber,
		Timbrado:       d.TimbradoNumber,
		CDC:            d.CDC,
		IssuedAt:       d.IssuedAt,
		Total:          d.Total.String(),
		TotalVat:       d.TotalVat.String(),
		State:          d.State,
		Attempts:       d.Attempts,
		Environment:    d.Environment,
		LastHTTPStatus: d.LastHTTPStatus,
		LastResponse:   d.LastResponse,
		SentAt:         d.SentAt,
		QR:             d.QR,
		QRURL:          d.QRURL,
	}
}

// ArtifactsFromEntity arma la respuesta de artefactos.
func ArtifactsFromEntity(documentID string, a entity.Artifacts) ArtifactsResponse {
	return ArtifactsResponse{
		DocumentID:    documentID,
		XMLPath:       a.XMLPath,
		SignedXMLPath: a.SignedXMLPath,
		PDFPath:       a.PDFPath,
		PDFHash:       a.PDFHash,
	}
}

// LocationsFromGeo convierte resultados del catálogo.
func LocationsFromGeo(list []geo.Location) []LocationResponse {
	out := make([]LocationResponse, 0, len(list))
	for _, l := range list {
		out = append(out, LocationResponse{
			DepartmentCode: l.DepartmentCode,
			Department:     l.DepartmentName,
			DistrictCode:   l.DistrictCode,
			District:       l.DistrictName,
			CityCode:       l.CityCode,
			City:           l.CityName,
		})
	}
	return out
}
