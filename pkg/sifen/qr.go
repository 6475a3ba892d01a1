package sifen

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// URLs base de consulta pública del QR.
const (
	QRBaseURLTest       = "https://ekuatia.set.gov.py/consultas-test/qr?"
	QRBaseURLProduction = "https://ekuatia.set.gov.py/consultas/qr?"
)

// QRParams datos del código QR del KuDE.
type QRParams struct {
	Version     string
	CDC         string
	IssuedAt    time.Time
	ReceiverRUC string // sin DV; vacío cuando el receptor no es contribuyente
	ReceiverID  string // documento del receptor no contribuyente
	Total       decimal.Decimal
	TotalVat    decimal.Decimal
	Items       int
	DigestValue string // DigestValue de la firma, en base64
	CSCID       string
	CSC         string
	Production  bool
}

// BuildQRURL arma la URL oficial del QR con su cHashQR:
// SHA-256 en hexadecimal de la cadena de parámetros concatenada con el CSC.
func BuildQRURL(p QRParams) string {
	version := p.Version
	if version == "" {
		version = DefaultVersion
	}
	var b strings.Builder
	b.WriteString("nVersion=" + version)
	b.WriteString("&Id=" + p.CDC)
	b.WriteString("&dFeEmiDE=" + hex.EncodeToString([]byte(FormatDateTime(p.IssuedAt))))
	if p.ReceiverRUC != "" {
		b.WriteString("&dRucRec=" + p.ReceiverRUC)
	} else {
		id := p.ReceiverID
		if id == "" {
			id = GenericIDNumber
		}
		b.WriteString("&dNumIDRec=" + id)
	}
	b.WriteString("&dTotGralOpe=" + FormatAmount(p.Total))
	b.WriteString("&dTotIVA=" + FormatAmount(p.TotalVat))
	b.WriteString("&cItems=" + strconv.Itoa(p.Items))
	b.WriteString("&DigestValue=" + hex.EncodeToString([]byte(p.DigestValue)))
	b.WriteString("&IdCSC=" + p.CSCID)

	params := b.String()
	sum := sha256.Sum256([]byte(params + p.CSC))

	base := QRBaseURLTest
	if p.Production {
		base = QRBaseURLProduction
	}
	return base + params + "&cHashQR=" + hex.EncodeToString(sum[:])
}

// FormatDateTime formato de fecha y hora de los campos dFe* del DE.
func FormatDateTime(t time.Time) string {
	return t.Format("2006-01-02T15:04:05")
}

// FormatDate formato de fecha de los campos de fecha simple del DE.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatAmount redondea a 2 decimales y omite ceros a la derecha.
func FormatAmount(d decimal.Decimal) string {
	return d.Round(2).String()
}
