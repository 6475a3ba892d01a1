// Package sifen reglas puras del documento electrónico: liquidación del IVA,
// vigencia del timbrado y validación de la venta antes de armar el DE.
package sifen

import "github.com/shopspring/decimal"

// Tasas de IVA vigentes en Paraguay.
const (
	VatRate5  = 5
	VatRate10 = 10
)

var (
	divisor10 = decimal.NewFromInt(11) // IVA incluido 10%: precio / 11
	divisor5  = decimal.NewFromInt(21) // IVA incluido 5%: precio / 21
)

// TaxLine subtotal de una línea (IVA incluido) con su tasa efectiva.
type TaxLine struct {
	Subtotal decimal.Decimal
	VatRate  int
}

// Breakdown liquidación agregada del IVA. Los montos gravados incluyen el impuesto.
type Breakdown struct {
	Exempt    decimal.Decimal
	TaxedAt5  decimal.Decimal
	VatAt5    decimal.Decimal
	TaxedAt10 decimal.Decimal
	VatAt10   decimal.Decimal
}

// BaseAt5 base imponible del 5% (gravado menos impuesto).
func (b Breakdown) BaseAt5() decimal.Decimal { return b.TaxedAt5.Sub(b.VatAt5) }

// BaseAt10 base imponible del 10%.
func (b Breakdown) BaseAt10() decimal.Decimal { return b.TaxedAt10.Sub(b.VatAt10) }

// TotalVat IVA total.
func (b Breakdown) TotalVat() decimal.Decimal { return b.VatAt5.Add(b.VatAt10) }

// Total total de la operación.
func (b Breakdown) Total() decimal.Decimal { return b.Exempt.Add(b.TaxedAt5).Add(b.TaxedAt10) }

// NormalizeDefaultVatRate la tasa por defecto de la venta solo puede ser 5 o 10.
func NormalizeDefaultVatRate(rate int) int {
	if rate == VatRate5 {
		return VatRate5
	}
	return VatRate10
}

// ResolveVatRate tasa efectiva de una línea: la del ítem, la del producto o
// la tasa por defecto de la venta, en ese orden.
func ResolveVatRate(itemRate, productRate *int, defaultRate int) int {
	if itemRate != nil {
		return *itemRate
	}
	if productRate != nil {
		return *productRate
	}
	return NormalizeDefaultVatRate(defaultRate)
}

// IsTaxed indica si la tasa genera IVA.
func IsTaxed(rate int) bool {
	return rate == VatRate5 || rate == VatRate10
}

// SplitLine separa un subtotal con IVA incluido en base e impuesto, sin
// redondear. Cualquier tasa distinta de 5 o 10 es exenta.
func SplitLine(subtotal decimal.Decimal, rate int) (base, vat decimal.Decimal) {
	switch rate {
	case VatRate10:
		vat = subtotal.Div(divisor10)
	case VatRate5:
		vat = subtotal.Div(divisor5)
	default:
		return subtotal, decimal.Zero
	}
	return subtotal.Sub(vat), vat
}

// ComputeBreakdown acumula las líneas sin redondear y redondea a 2 decimales
// (mitad hacia arriba) al final.
// Exempt + TaxedAt5 + TaxedAt10 es igual a la suma de los subtotales.
func ComputeBreakdown(lines []TaxLine) Breakdown {
	var b Breakdown
	for _, l := range lines {
		_, vat := SplitLine(l.Subtotal, l.VatRate)
		switch l.VatRate {
		case VatRate10:
			b.TaxedAt10 = b.TaxedAt10.Add(l.Subtotal)
			b.VatAt10 = b.VatAt10.Add(vat)
		case VatRate5:
			b.TaxedAt5 = b.TaxedAt5.Add(l.Subtotal)
			b.VatAt5 = b.VatAt5.Add(vat)
		default:
			b.Exempt = b.Exempt.Add(l.Subtotal)
		}
	}
	b.Exempt = b.Exempt.Round(2)
	b.TaxedAt5 = b.TaxedAt5.Round(2)
	b.VatAt5 = b.VatAt5.Round(2)
	b.TaxedAt10 = b.TaxedAt10.Round(2)
	b.VatAt10 = b.VatAt10.Round(2)
	return b
}
