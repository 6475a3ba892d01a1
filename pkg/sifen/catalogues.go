// Package sifen contiene catálogos y reglas de formato alineados al Manual
// Técnico del Sistema Integrado de Facturación Electrónica Nacional (SIFEN,
// Paraguay) versión 150.
package sifen

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Namespace del esquema de documentos electrónicos.
const (
	NamespaceSIFEN   = "http://ekuatia.set.gov.py/sifen/xsd"
	NamespaceXSI     = "http://www.w3.org/2001/XMLSchema-instance"
	SchemaLocationDE = "http://ekuatia.set.gov.py/sifen/xsd siRecepDE_v150.xsd"
	DefaultVersion   = "150"
)

// =============================================================================
// Tipos de documento electrónico (iTiDE)
// =============================================================================

const (
	DocTypeInvoice     = 1 // Factura electrónica
	DocTypeExport      = 2 // Factura electrónica de exportación
	DocTypeImport      = 3 // Factura electrónica de importación
	DocTypeSelfInvoice = 4 // Autofactura electrónica
	DocTypeCreditNote  = 5 // Nota de crédito electrónica
	DocTypeDebitNote   = 6 // Nota de débito electrónica
	DocTypeRemission   = 7 // Nota de remisión electrónica
)

// DocTypeDescriptions descripción oficial de cada tipo de documento (dDesTiDE).
var DocTypeDescriptions = map[int]string{
	DocTypeInvoice:     "Factura electrónica",
	DocTypeExport:      "Factura electrónica de exportación",
	DocTypeImport:      "Factura electrónica de importación",
	DocTypeSelfInvoice: "Autofactura electrónica",
	DocTypeCreditNote:  "Nota de crédito electrónica",
	DocTypeDebitNote:   "Nota de débito electrónica",
	DocTypeRemission:   "Nota de remisión electrónica",
}

// =============================================================================
// Tipo de emisión (iTipEmi)
// =============================================================================

const (
	EmissionNormal      = 1
	EmissionContingency = 2
)

var EmissionDescriptions = map[int]string{
	EmissionNormal:      "Normal",
	EmissionContingency: "Contingencia",
}

// =============================================================================
// Tipo de contribuyente (iTipCont) y naturaleza del receptor (iNatRec)
// =============================================================================

const (
	TaxpayerPhysical = 1 // Persona física
	TaxpayerLegal    = 2 // Persona jurídica

	ReceiverTaxpayer    = 1 // Contribuyente
	ReceiverNonTaxpayer = 2 // No contribuyente

	OperationB2B = 1
	OperationB2C = 2
	OperationB2G = 3
	OperationB2F = 4
)

// Consumidor final genérico (RUC innominado).
const (
	GenericRUC       = "44444401"
	GenericRUCDV     = "7"
	GenericName      = "Sin Nombre"
	GenericIDType    = 5 // Innominado
	GenericIDTypeDes = "Innominado"
	GenericIDNumber  = "0"
)

// Tipo de documento del receptor no contribuyente (iTipIDRec).
const (
	IDTypeCedula     = 1
	IDTypeCedulaDesc = "Cédula paraguaya"
)

// =============================================================================
// Tipo de transacción (iTipTra) e impuesto afectado (iTImp)
// =============================================================================

const (
	TransactionGoodsSale   = 1 // Venta de mercadería
	TransactionServiceSale = 2 // Prestación de servicios
	TransactionMixed       = 3 // Mixto

	TaxIVA = 1
)

var TransactionDescriptions = map[int]string{
	TransactionGoodsSale:   "Venta de mercadería",
	TransactionServiceSale: "Prestación de servicios",
	TransactionMixed:       "Mixto (Venta de mercadería y servicios)",
}

// =============================================================================
// Afectación IVA por ítem (iAfecIVA)
// =============================================================================

const (
	VatTaxed  = 1 // Gravado IVA
	VatExempt = 3 // Exento
)

var VatAffectationDescriptions = map[int]string{
	VatTaxed:  "Gravado IVA",
	VatExempt: "Exento",
}

// =============================================================================
// Condición de la operación y tipos de pago
// =============================================================================

const (
	ConditionCash   = 1 // Contado
	ConditionCredit = 2 // Crédito

	PaymentCash     = 1 // Efectivo
	PaymentCheck    = 2 // Cheque
	PaymentCredit   = 3 // Tarjeta de crédito
	PaymentDebit    = 4 // Tarjeta de débito
	PaymentTransfer = 5 // Transferencia
)

var ConditionDescriptions = map[int]string{
	ConditionCash:   "Contado",
	ConditionCredit: "Crédito",
}

var PaymentDescriptions = map[int]string{
	PaymentCash:     "Efectivo",
	PaymentCheck:    "Cheque",
	PaymentCredit:   "Tarjeta de crédito",
	PaymentDebit:    "Tarjeta de débito",
	PaymentTransfer: "Transferencia",
}

// Indicador de presencia (iIndPres).
const (
	PresenceInPerson    = 1
	PresenceDescription = "Operación presencial"
)

// =============================================================================
// Monedas
// =============================================================================

const CurrencyPYG = "PYG"

var CurrencyDescriptions = map[string]string{
	"PYG": "Guarani",
	"USD": "US Dollar",
	"BRL": "Real",
	"ARS": "Argentine Peso",
	"EUR": "Euro",
}

// =============================================================================
// Unidades de medida (cUniMed)
// =============================================================================

const (
	UnitUnit     = 77 // Unidad
	UnitKilogram = 6  // Kilogramo
	UnitLitre    = 7  // Litro
	UnitHour     = 96 // Hora
	UnitMetre    = 87 // Metro
	UnitGram     = 10 // Gramo
)

var UnitDescriptions = map[int]string{
	UnitUnit:     "UNI",
	UnitKilogram: "kg",
	UnitLitre:    "l",
	UnitHour:     "h",
	UnitMetre:    "m",
	UnitGram:     "g",
}

// unitVocabulary palabras aceptadas en la venta, ya normalizadas.
var unitVocabulary = map[string]int{
	"unidad":     UnitUnit,
	"unidades":   UnitUnit,
	"uni":        UnitUnit,
	"un":         UnitUnit,
	"kg":         UnitKilogram,
	"kilo":       UnitKilogram,
	"kilogramo":  UnitKilogram,
	"kilogramos": UnitKilogram,
	"l":          UnitLitre,
	"lt":         UnitLitre,
	"litro":      UnitLitre,
	"litros":     UnitLitre,
	"hora":       UnitHour,
	"horas":      UnitHour,
	"h":          UnitHour,
	"metro":      UnitMetre,
	"metros":     UnitMetre,
	"gramo":      UnitGram,
	"gramos":     UnitGram,
}

// UnitCode resuelve el código SIFEN de la unidad de medida. Un código
// numérico explícito y conocido tiene prioridad; después se busca la palabra
// en el vocabulario; por defecto se usa Unidad (77).
func UnitCode(explicit int, word string) int {
	if explicit > 0 {
		if _, ok := UnitDescriptions[explicit]; ok {
			return explicit
		}
	}
	if code, ok := unitVocabulary[Normalize(word)]; ok {
		return code
	}
	return UnitUnit
}

// UnitDescription devuelve la abreviatura oficial de la unidad.
func UnitDescription(code int) string {
	if d, ok := UnitDescriptions[code]; ok {
		return d
	}
	return UnitDescriptions[UnitUnit]
}

// Normalize pasa a minúsculas, quita tildes y colapsa espacios.
// La cadena de transformación tiene estado, por eso se crea en cada llamada.
func Normalize(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(fold, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}
