// Package pdf genera el KuDE, la representación gráfica del Documento
// Electrónico SIFEN.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Razón social + RUC  │  Timbrado + N° + Fecha        │
//	│  EMISOR: Dirección / Tel / Email / Actividad                 │
//	│  RECEPTOR: Nombre + RUC o documento + condición              │
//	│  TABLA: Cant | Descripción | P.Unit | IVA | Subtotal         │
//	│  TOTALES: Subtotal / Liquidación IVA 5% y 10% / TOTAL        │
//	│  PIE: QR + CDC en grupos de 4 + leyenda de consulta          │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sifen/internal/application/fiscal"
	infrasifen "github.com/jhoicas/facturacion-sifen/internal/infrastructure/sifen"
	"github.com/jhoicas/facturacion-sifen/pkg/sifen"
)

const consultaURL = "https://ekuatia.set.gov.py/consultas/"

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 56, Blue: 147}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorRed     = &props.Color{Red: 200, Green: 16, Blue: 46}
)

// ── Renderer ──────────────────────────────────────────────────────────────────

var _ fiscal.KuDERenderer = (*KuDERenderer)(nil)

// KuDERenderer implementa fiscal.KuDERenderer con Maroto v2.
type KuDERenderer struct{}

// NewKuDERenderer construye el generador.
func NewKuDERenderer() *KuDERenderer { return &KuDERenderer{} }

// Render genera el PDF y devuelve sus bytes.
func (g *KuDERenderer) Render(_ context.Context, k *fiscal.KuDE) ([]byte, error) {
	if k == nil || k.Payload == nil || k.Document == nil {
		return nil, fmt.Errorf("pdf: KuDE sin datos")
	}
	p := k.Payload

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("KuDE "+k.Document.DocumentNumber, true).
		WithAuthor(p.Issuer.Name, true).
		Build()

	m := maroto.New(cfg)

	if k.Cancelled {
		m.AddRows(bannerRow("ANULADA", colorRed, 22))
	}
	if k.Test {
		m.AddRows(bannerRow("DOCUMENTO ELECTRÓNICO SIN VALOR COMERCIAL NI FISCAL - GENERADO EN AMBIENTE DE PRUEBA", colorRed, 8))
	}

	m.AddRows(headerRow(k))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(issuerRow(p))
	m.AddRows(receiverRow(p))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(itemRows(p)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(p))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRows(k)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar KuDE: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func bannerRow(label string, color *props.Color, size float64) core.Row {
	return row.New(size*0.6 + 4).Add(col.New(12).Add(
		text.New(label, props.Text{
			Style: fontstyle.Bold, Size: size, Align: align.Center, Color: color, Top: 1,
		}),
	))
}

// headerRow: emisor (izq) y timbrado, número y fecha (der).
func headerRow(k *fiscal.KuDE) core.Row {
	p := k.Payload
	return row.New(24).Add(
		col.New(7).Add(
			text.New(p.Issuer.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(p.Issuer.TradeName, ""), props.Text{
				Size: 9, Top: 8, Color: colorGray,
			}),
			text.New("RUC: "+p.Issuer.RUC+"-"+p.Issuer.DV, props.Text{
				Size: 9, Top: 13, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("Timbrado N° "+p.Timbrado.Number, props.Text{
				Size: 8, Align: align.Right, Top: 1, Color: colorGray,
			}),
			text.New("Inicio de vigencia: "+p.Timbrado.ValidFrom.Format("02/01/2006"), props.Text{
				Size: 8, Align: align.Right, Top: 5, Color: colorGray,
			}),
			text.New(strings.ToUpper(nonEmpty(sifen.DocTypeDescriptions[p.DocumentType], "Factura electrónica")), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Color: colorPrimary, Top: 10,
			}),
			text.New(k.Document.DocumentNumber, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 14,
			}),
		),
	)
}

func issuerRow(p *infrasifen.DocumentPayload) core.Row {
	activity := ""
	if len(p.Issuer.Activities) > 0 {
		activity = p.Issuer.Activities[0].Description
	}
	return row.New(16).Add(
		col.New(12).Add(
			text.New(fmt.Sprintf("Dirección: %s %s, %s   |   Tel: %s   |   Email: %s",
				nonEmpty(p.Issuer.Address, "-"), p.Issuer.HouseNumber, p.Issuer.Location.CityName,
				nonEmpty(p.Issuer.Phone, "-"),
				nonEmpty(p.Issuer.Email, "-"),
			), props.Text{Size: 8, Top: 1, Color: colorGray}),
			text.New("Actividad económica: "+nonEmpty(activity, "-"), props.Text{Size: 8, Top: 6, Color: colorGray}),
			text.New("Fecha de emisión: "+p.IssuedAt.Format("02/01/2006 15:04:05"), props.Text{Size: 8, Top: 11}),
		),
	)
}

func receiverRow(p *infrasifen.DocumentPayload) core.Row {
	r := p.Receiver
	id := "RUC: " + r.RUC + "-" + r.DV
	if !r.Taxpayer {
		id = nonEmpty(r.IDTypeDesc, "Documento") + ": " + r.IDNumber
	}
	condition := "Contado"
	if p.Payment.Condition == sifen.ConditionCredit {
		condition = "Crédito"
	}
	return row.New(18).Add(
		col.New(12).Add(
			text.New("RECEPTOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(r.Name, props.Text{Style: fontstyle.Bold, Size: 10, Top: 5}),
			text.New(fmt.Sprintf("%s   |   Condición de venta: %s   |   Moneda: %s",
				id, condition, p.Operation.Currency,
			), props.Text{Size: 8, Top: 11, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Descripción", 5, align.Left),
		h("Precio Unit.", 2, align.Right),
		h("IVA", 1, align.Center),
		h("Subtotal", 3, align.Right),
	)
}

func itemRows(p *infrasifen.DocumentPayload) []core.Row {
	cur := p.Operation.Currency
	rows := make([]core.Row, 0, len(p.Items))
	for _, it := range p.Items {
		rate := "Exenta"
		if it.VatRate > 0 {
			rate = fmt.Sprintf("%d%%", it.VatRate)
		}
		rows = append(rows, row.New(7).Add(
			col.New(1).Add(text.New(it.Quantity.String(), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(5).Add(text.New(it.Description, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(formatAmount(it.UnitPrice, cur), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(1).Add(text.New(rate, props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(3).Add(text.New(formatAmount(it.Total, cur), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return rows
}

// totalsRow: subtotales por tasa, liquidación del IVA y total general.
func totalsRow(p *infrasifen.DocumentPayload) core.Row {
	t := p.Totals
	cur := p.Operation.Currency
	label := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Right: 2, Top: top})
	}
	value := func(d decimal.Decimal, top float64) core.Component {
		return text.New(formatAmount(d, cur), props.Text{Size: 8, Align: align.Right, Right: 1, Top: top})
	}

	labels := col.New(4).Add(
		label("Exentas:", 0), label("Gravadas 5%:", 5), label("Gravadas 10%:", 10),
		label("Liquidación IVA 5%:", 15), label("Liquidación IVA 10%:", 20), label("Total IVA:", 25),
	)
	values := col.New(3).Add(
		value(t.Exempt, 0), value(t.TaxedAt5, 5), value(t.TaxedAt10, 10),
		value(t.VatAt5, 15), value(t.VatAt10, 20), value(t.TotalVat, 25),
	)
	grand := col.New(5).Add(
		text.New("TOTAL A PAGAR", props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Top: 4}),
		text.New(cur+" "+formatAmount(t.Total, cur), props.Text{Style: fontstyle.Bold, Size: 13, Align: align.Right, Color: colorPrimary, Top: 10}),
	)
	if t.TotalPYG.Valid {
		grand.Add(text.New("Total en guaraníes: "+formatAmount(t.TotalPYG.Decimal, sifen.CurrencyPYG), props.Text{Size: 8, Align: align.Right, Top: 19, Color: colorGray}))
	}
	return row.New(32).Add(labels, values, grand)
}

// footerRows: QR, CDC y leyenda de consulta.
func footerRows(k *fiscal.KuDE) []core.Row {
	cdc := GroupCDC(k.Document.CDC)
	legend := "Consulte la validez de esta Factura Electrónica con el número de CDC impreso abajo en:\n" + consultaURL
	info := col.New(8).Add(
		text.New(legend, props.Text{Size: 8, Top: 4, Left: 3, Color: colorGray}),
		text.New("CDC: "+cdc, props.Text{Style: fontstyle.Bold, Size: 10, Top: 18, Left: 3}),
		text.New("ESTE DOCUMENTO ES UNA REPRESENTACIÓN GRÁFICA DE UN DOCUMENTO ELECTRÓNICO (XML)", props.Text{
			Size: 7, Top: 28, Left: 3, Color: colorPrimary,
		}),
	)
	if k.QRURL == "" {
		return []core.Row{row.New(40).Add(col.New(4), info)}
	}
	return []core.Row{row.New(50).Add(
		col.New(4).Add(code.NewQr(k.QRURL, props.Rect{Percent: 95, Center: true})),
		info,
	)}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// GroupCDC separa el CDC en grupos de 4 dígitos para su lectura.
func GroupCDC(cdc string) string {
	return strings.Join(splitEvery(cdc, 4), " ")
}

// formatAmount guaraníes sin decimales; otras monedas con 2. Separador de
// miles "." y decimal ",".
func formatAmount(d decimal.Decimal, currency string) string {
	places := int32(2)
	if currency == "" || currency == sifen.CurrencyPYG {
		places = 0
	}
	s := d.Abs().StringFixed(places)
	intPart, frac, _ := strings.Cut(s, ".")
	out := formatMoney(intPart)
	if frac != "" {
		out += "," + frac
	}
	if d.IsNegative() {
		out = "-" + out
	}
	return out
}

// formatMoney inserta puntos de miles en un string numérico sin decimales.
// Ej: "25000" → "25.000", "1000000" → "1.000.000"
func formatMoney(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}

func splitEvery(s string, n int) []string {
	var parts []string
	for len(s) > n {
		parts = append(parts, s[:n])
		s = s[n:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}
