package sifen_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/facturacion-sifen/internal/domain/sifen"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func rate(v int) *int { return &v }

// ─────────────────────────────────────────────────────────────────────────────
// Ejemplo de referencia: 2 × 50.000 al 10% y 1 × 21.000 al 5%.
//   gravado 10% = 100.000, IVA 10% = 100.000 / 11 = 9.090,91
//   gravado 5%  =  21.000, IVA 5%  =  21.000 / 21 = 1.000
//   total       = 121.000
// ─────────────────────────────────────────────────────────────────────────────

func TestComputeBreakdown_EjemploMixto(t *testing.T) {
	b := sifen.ComputeBreakdown([]sifen.TaxLine{
		{Subtotal: d("100000"), VatRate: 10},
		{Subtotal: d("21000"), VatRate: 5},
	})

	assert.True(t, b.TaxedAt10.Equal(d("100000")), "gravado 10: %s", b.TaxedAt10)
	assert.True(t, b.VatAt10.Equal(d("9090.91")), "iva 10: %s", b.VatAt10)
	assert.True(t, b.TaxedAt5.Equal(d("21000")), "gravado 5: %s", b.TaxedAt5)
	assert.True(t, b.VatAt5.Equal(d("1000")), "iva 5: %s", b.VatAt5)
	assert.True(t, b.Exempt.IsZero())
	assert.True(t, b.Total().Equal(d("121000")))
	assert.True(t, b.TotalVat().Equal(d("10090.91")))
	assert.True(t, b.BaseAt10().Equal(d("90909.09")))
	assert.True(t, b.BaseAt5().Equal(d("20000")))
}

func TestComputeBreakdown_TasaDesconocidaEsExenta(t *testing.T) {
	b := sifen.ComputeBreakdown([]sifen.TaxLine{
		{Subtotal: d("5000"), VatRate: 0},
		{Subtotal: d("7000"), VatRate: 19},
	})
	assert.True(t, b.Exempt.Equal(d("12000")))
	assert.True(t, b.TotalVat().IsZero())
}

func TestComputeBreakdown_RedondeoAlAgregar(t *testing.T) {
	// Tres líneas de 10 al 10%: 0,909090... × 3 = 2,7272... → 2,73.
	// Redondear por línea daría 0,91 × 3 = 2,73 también; con 7 líneas difiere:
	// 6,3636... → 6,36 contra 0,91 × 7 = 6,37.
	lines := make([]sifen.TaxLine, 7)
	for i := range lines {
		lines[i] = sifen.TaxLine{Subtotal: d("10"), VatRate: 10}
	}
	b := sifen.ComputeBreakdown(lines)
	assert.True(t, b.VatAt10.Equal(d("6.36")), "iva: %s", b.VatAt10)
}

func TestComputeBreakdown_InvarianteSumaDeSubtotales(t *testing.T) {
	lines := []sifen.TaxLine{
		{Subtotal: d("1234.56"), VatRate: 10},
		{Subtotal: d("0.01"), VatRate: 5},
		{Subtotal: d("999.99"), VatRate: 0},
		{Subtotal: d("15750"), VatRate: 5},
		{Subtotal: d("33"), VatRate: 10},
	}
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal)
	}
	b := sifen.ComputeBreakdown(lines)
	assert.True(t, b.Exempt.Add(b.TaxedAt5).Add(b.TaxedAt10).Equal(sum))
}

func TestSplitLine_UnaLineaCoincideConElDivisor(t *testing.T) {
	for _, s := range []string{"1", "11", "21", "999.99", "123456.78"} {
		sub := d(s)
		_, vat10 := sifen.SplitLine(sub, 10)
		assert.True(t, vat10.Round(2).Equal(sub.Div(decimal.NewFromInt(11)).Round(2)))
		_, vat5 := sifen.SplitLine(sub, 5)
		assert.True(t, vat5.Round(2).Equal(sub.Div(decimal.NewFromInt(21)).Round(2)))
		base, vat0 := sifen.SplitLine(sub, 0)
		assert.True(t, vat0.IsZero())
		assert.True(t, base.Equal(sub))
	}
}

func TestResolveVatRate_Precedencia(t *testing.T) {
	assert.Equal(t, 0, sifen.ResolveVatRate(rate(0), rate(5), 10), "la del ítem gana")
	assert.Equal(t, 5, sifen.ResolveVatRate(nil, rate(5), 10), "luego la del producto")
	assert.Equal(t, 5, sifen.ResolveVatRate(nil, nil, 5))
	assert.Equal(t, 10, sifen.ResolveVatRate(nil, nil, 10))
	assert.Equal(t, 10, sifen.ResolveVatRate(nil, nil, 7), "default inválido cae a 10")
	assert.Equal(t, 10, sifen.ResolveVatRate(nil, nil, 0))
}
