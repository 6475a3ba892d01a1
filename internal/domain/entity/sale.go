package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de la venta (subsistema de ventas).
const (
	SaleStatusActive    = "ACTIVA"
	SaleStatusCancelled = "ANULADA"
)

// Sale venta registrada en caja. Es la entrada del documento fiscal.
type Sale struct {
	ID             string
	CustomerID     string // vacío = consumidor final
	Currency       string // ISO 4217; vacío = PYG
	ExchangeRate   decimal.NullDecimal
	DefaultVatRate int // 5 o 10
	CreditSale     bool
	PaymentMethod  int // código SIFEN de tipo de pago; 0 = efectivo
	Status         string
	Items          []SaleItem
	CreatedAt      time.Time
}

// IsCancelled indica si la venta fue anulada.
func (s *Sale) IsCancelled() bool { return s.Status == SaleStatusCancelled }

// SaleItem línea de la venta.
type SaleItem struct {
	ID          string
	ProductID   string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.NullDecimal // inválido = usar el precio del producto
	Subtotal    decimal.NullDecimal // inválido = cantidad × precio
	VatRate     *int
	UnitMeasure string
	UnitCode    int
}
