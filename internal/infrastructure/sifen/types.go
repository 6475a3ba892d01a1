// Package sifen serializa el Documento Electrónico (DE) al XML del esquema
// SIFEN v150 y lo entrega a los servicios web de la SET.
package sifen

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentPayload todo lo necesario para escribir el rDE, ya resuelto por el
// constructor de documentos. El codec no toma decisiones de negocio.
type DocumentPayload struct {
	Version      string
	CDC          string
	SecurityCode string // 6 dígitos; se escribe con 9 en dCodSeg
	IssuedAt     time.Time
	SignedAt     time.Time // dFecFirma
	SystemCode   int       // dSisFact: 1 = sistema del contribuyente

	DocumentType int
	EmissionType int
	Timbrado     TimbradoData
	Operation    OperationData
	Issuer       IssuerData
	Receiver     ReceiverData
	Payment      PaymentData
	Items        []ItemData
	Totals       TotalsData
}

// TimbradoData grupo gTimb.
type TimbradoData struct {
	Number        string
	ValidFrom     time.Time
	Establishment string
	PointOfSale   string
	Sequence      int64
}

// OperationData grupo gOpeCom.
type OperationData struct {
	TransactionType int
	Currency        string
	ExchangeRate    decimal.NullDecimal // solo para moneda distinta de PYG
}

// IssuerData grupo gEmis.
type IssuerData struct {
	RUC          string
	DV           string
	TaxpayerType int
	RegimeType   int
	Name         string
	TradeName    string
	Address      string
	HouseNumber  string
	Location     LocationData
	Phone        string
	Email        string
	Activities   []ActivityData
}

// ActivityData grupo gActEco.
type ActivityData struct {
	Code        string
	Description string
}

// LocationData códigos y descripciones geográficas.
type LocationData struct {
	DepartmentCode int
	DepartmentName string
	DistrictCode   int
	DistrictName   string
	CityCode       int
	CityName       string
}

// ReceiverData grupo gDatRec.
type ReceiverData struct {
	Taxpayer      bool // iNatRec 1 = contribuyente
	OperationType int  // iTiOpe
	Country       string
	TaxpayerType  int
	RUC           string
	DV            string
	IDType        int // iTipIDRec, solo no contribuyente
	IDTypeDesc    string
	IDNumber      string
	Name          string
	Address       string
	HouseNumber   string
	Location      *LocationData // nil = sin dirección informada
	Phone         string
	Email         string
}

// PaymentData grupo gCamCond.
type PaymentData struct {
	Condition int // 1 contado, 2 crédito
	Type      int // iTiPago (contado)
	Amount    decimal.Decimal
}

// ItemData grupo gCamItem.
type ItemData struct {
	Code           string
	Description    string
	UnitCode       int
	Quantity       decimal.Decimal
	UnitPrice      decimal.Decimal
	Total          decimal.Decimal // cantidad × precio, IVA incluido
	VatAffectation int             // 1 gravado, 3 exento
	VatRate        int             // 0, 5, 10
	Base           decimal.Decimal // dBasGravIVA
	Vat            decimal.Decimal // dLiqIVAItem
	ExemptBase     decimal.Decimal // dBasExe
}

// TotalsData grupo gTotSub.
type TotalsData struct {
	Exempt    decimal.Decimal
	TaxedAt5  decimal.Decimal
	TaxedAt10 decimal.Decimal
	Total     decimal.Decimal
	VatAt5    decimal.Decimal
	VatAt10   decimal.Decimal
	TotalVat  decimal.Decimal
	BaseAt5   decimal.Decimal
	BaseAt10  decimal.Decimal
	BaseTotal decimal.Decimal
	TotalPYG  decimal.NullDecimal // dTotalGs, solo en moneda extranjera
}
