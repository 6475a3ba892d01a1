package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product producto del catálogo de ventas. Solo se lee para completar el DE.
type Product struct {
	ID          string
	Code        string // código interno (dCodInt)
	Name        string
	Price       decimal.NullDecimal // precio de venta; inválido = sin precio cargado
	VatRate     *int                // 0 (exento), 5 o 10; nil = usa la tasa de la venta
	UnitMeasure string              // UNIDAD, KG, L, HORA...
	UnitCode    int                 // código SIFEN explícito, 0 = derivar de UnitMeasure
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
