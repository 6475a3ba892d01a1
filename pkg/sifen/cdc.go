package sifen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// CDCLength longitud del Código de Control del documento electrónico.
const CDCLength = 44

// CDCParams datos que componen el CDC, en el orden del manual técnico:
// iTiDE(2) + RUC(8) + DV(1) + establecimiento(3) + punto(3) + número(7) +
// tipo contribuyente(1) + fecha AAAAMMDD(8) + tipo emisión(1) + código de
// seguridad(9) + DV del CDC(1).
type CDCParams struct {
	DocumentType  int
	RUC           string // sin DV
	DV            string
	Establishment string
	PointOfSale   string
	Number        int64
	TaxpayerType  int
	IssuedAt      time.Time
	EmissionType  int
	SecurityCode  string
}

// BuildCDC arma el CDC de 44 dígitos.
func BuildCDC(p CDCParams) (string, error) {
	ruc := strings.TrimSpace(p.RUC)
	if ruc == "" || len(ruc) > 8 || !allDigits(ruc) {
		return "", fmt.Errorf("sifen: RUC %q no válido para CDC", p.RUC)
	}
	if len(p.DV) != 1 || !allDigits(p.DV) {
		return "", fmt.Errorf("sifen: DV %q no válido para CDC", p.DV)
	}
	est, err := padCode(p.Establishment, 3)
	if err != nil {
		return "", fmt.Errorf("sifen: establecimiento: %w", err)
	}
	pto, err := padCode(p.PointOfSale, 3)
	if err != nil {
		return "", fmt.Errorf("sifen: punto de expedición: %w", err)
	}
	if p.Number <= 0 || p.Number > 9999999 {
		return "", fmt.Errorf("sifen: número de documento fuera de rango: %d", p.Number)
	}
	if p.DocumentType <= 0 || p.DocumentType > 99 {
		return "", fmt.Errorf("sifen: tipo de documento inválido: %d", p.DocumentType)
	}
	if p.TaxpayerType < 1 || p.TaxpayerType > 9 || p.EmissionType < 1 || p.EmissionType > 9 {
		return "", fmt.Errorf("sifen: tipo de contribuyente o de emisión inválido")
	}
	code, err := padCode(p.SecurityCode, 9)
	if err != nil {
		return "", fmt.Errorf("sifen: código de seguridad: %w", err)
	}
	if p.IssuedAt.IsZero() {
		return "", fmt.Errorf("sifen: fecha de emisión obligatoria")
	}

	var b strings.Builder
	b.Grow(CDCLength)
	fmt.Fprintf(&b, "%02d", p.DocumentType)
	b.WriteString(strings.Repeat("0", 8-len(ruc)) + ruc)
	b.WriteString(p.DV)
	b.WriteString(est)
	b.WriteString(pto)
	fmt.Fprintf(&b, "%07d", p.Number)
	b.WriteString(strconv.Itoa(p.TaxpayerType))
	b.WriteString(p.IssuedAt.Format("20060102"))
	b.WriteString(strconv.Itoa(p.EmissionType))
	b.WriteString(code)
	base := b.String()
	return base + strconv.Itoa(CheckDigit(base)), nil
}

// ValidateCDC comprueba longitud y dígito verificador.
func ValidateCDC(cdc string) error {
	if len(cdc) != CDCLength || !allDigits(cdc) {
		return fmt.Errorf("sifen: el CDC debe tener %d dígitos", CDCLength)
	}
	expected := strconv.Itoa(CheckDigit(cdc[:CDCLength-1]))
	if cdc[CDCLength-1:] != expected {
		return fmt.Errorf("sifen: dígito verificador del CDC inválido: esperado %s", expected)
	}
	return nil
}

// FormatDocumentNumber devuelve EEE-PPP-NNNNNNN.
func FormatDocumentNumber(establishment, pointOfSale string, number int64) string {
	est, _ := padCode(establishment, 3)
	pto, _ := padCode(pointOfSale, 3)
	return fmt.Sprintf("%s-%s-%07d", est, pto, number)
}

// NewSecurityCode genera el código de seguridad de 6 dígitos aleatorios.
func NewSecurityCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("sifen: generar código de seguridad: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func padCode(s string, width int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > width || !allDigits(s) {
		return "", fmt.Errorf("valor %q no es numérico de hasta %d dígitos", s, width)
	}
	return strings.Repeat("0", width-len(s)) + s, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return false
		}
	}
	return s != ""
}
