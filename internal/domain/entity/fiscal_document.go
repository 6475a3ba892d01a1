package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del documento fiscal.
const (
	FiscalStatePending = "PENDIENTE" // Creado; aún sin respuesta exitosa de SIFEN
	FiscalStateSent    = "ENVIADA"   // SIFEN respondió 2xx
	FiscalStateError   = "ERROR"     // Admitido por el esquema; la emisión no lo asigna
)

// FiscalDocument documento electrónico asociado a una venta (uno por venta).
// Número, código de seguridad, fecha de emisión y CDC no cambian después de creado.
type FiscalDocument struct {
	ID             string
	SaleID         string
	DocumentType   int
	TimbradoNumber string
	TimbradoFrom   time.Time
	TimbradoTo     time.Time
	Establishment  string
	PointOfSale    string
	Sequence       int64
	DocumentNumber string // EEE-PPP-NNNNNNN
	SecurityCode   string
	CDC            string
	IssuedAt       time.Time
	Total          decimal.Decimal
	TotalVat       decimal.Decimal

	XMLPath       string
	SignedXMLPath string
	PDFPath       string
	PDFHash       string // SHA-256 hex del PDF

	QR    QRPayload
	QRURL string

	State          string
	Attempts       int
	Environment    string
	LastHTTPStatus int
	LastResponse   string // respuesta cruda truncada
	LastQuery      string // última respuesta de consulta por CDC
	CertSerial     string
	SentAt         *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// QRPayload datos estructurados que acompañan al QR, guardados como JSON.
type QRPayload struct {
	Timbrado       string `json:"timbrado"`
	DocumentNumber string `json:"numero"`
	IssuerRUC      string `json:"ruc_emisor"`
	Total          string `json:"total"`
	Date           string `json:"fecha"`
	CustomerRUC    string `json:"ruc_cliente"`
}

// Artifacts rutas de los archivos generados.
type Artifacts struct {
	XMLPath       string
	SignedXMLPath string
	PDFPath       string
	PDFHash       string
}

// Artifacts devuelve las rutas registradas.
func (d *FiscalDocument) Artifacts() Artifacts {
	return Artifacts{
		XMLPath:       d.XMLPath,
		SignedXMLPath: d.SignedXMLPath,
		PDFPath:       d.PDFPath,
		PDFHash:       d.PDFHash,
	}
}
