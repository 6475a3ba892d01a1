package sifen

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/ucarion/c14n"

	"github.com/jhoicas/facturacion-sifen/pkg/sifen"
)

// XMLCodec escribe el rDE (sin firma) a partir de un DocumentPayload.
type XMLCodec struct{}

// NewXMLCodec crea el codec.
func NewXMLCodec() *XMLCodec {
	return &XMLCodec{}
}

// Encode genera el rDE y lo devuelve en forma canónica (C14N 1.0). Si el
// canonicalizador no puede procesar el documento se devuelve la salida del
// encoder tal cual; ambas representan el mismo árbol.
func (c *XMLCodec) Encode(p *DocumentPayload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("sifen: payload nulo")
	}
	if p.CDC == "" {
		return nil, fmt.Errorf("sifen: el payload no tiene CDC")
	}
	if len(p.Items) == 0 {
		return nil, fmt.Errorf("sifen: el payload no tiene ítems")
	}

	var buf bytes.Buffer
	w := &xmlWriter{enc: xml.NewEncoder(&buf)}

	version := p.Version
	if version == "" {
		version = sifen.DefaultVersion
	}

	w.start("rDE",
		attr("xmlns", sifen.NamespaceSIFEN),
		attr("xmlns:xsi", sifen.NamespaceXSI),
		attr("xsi:schemaLocation", sifen.SchemaLocationDE),
	)
	w.field("dVerFor", version)

	w.start("DE", attr("Id", p.CDC))
	w.field("dDVId", p.CDC[len(p.CDC)-1:])
	signedAt := p.SignedAt
	if signedAt.IsZero() {
		signedAt = p.IssuedAt
	}
	w.field("dFecFirma", sifen.FormatDateTime(signedAt))
	w.field("dSisFact", strconv.Itoa(max(p.SystemCode, 1)))

	// ---- gOpeDE
	w.start("gOpeDE")
	w.field("iTipEmi", strconv.Itoa(p.EmissionType))
	w.field("dDesTipEmi", sifen.EmissionDescriptions[p.EmissionType])
	w.field("dCodSeg", leftPad(p.SecurityCode, 9))
	w.end("gOpeDE")

	// ---- gTimb
	w.start("gTimb")
	w.field("iTiDE", strconv.Itoa(p.DocumentType))
	w.field("dDesTiDE", sifen.DocTypeDescriptions[p.DocumentType])
	w.field("dNumTim", p.Timbrado.Number)
	w.field("dEst", p.Timbrado.Establishment)
	w.field("dPunExp", p.Timbrado.PointOfSale)
	w.field("dNumDoc", fmt.Sprintf("%07d", p.Timbrado.Sequence))
	if !p.Timbrado.ValidFrom.IsZero() {
		w.field("dFeIniT", sifen.FormatDate(p.Timbrado.ValidFrom))
	}
	w.end("gTimb")

	// ---- gDatGralOpe
	w.start("gDatGralOpe")
	w.field("dFeEmiDE", sifen.FormatDateTime(p.IssuedAt))
	c.writeOperation(w, p.Operation)
	c.writeIssuer(w, p.Issuer)
	c.writeReceiver(w, p.Receiver)
	w.end("gDatGralOpe")

	// ---- gDtipDE
	w.start("gDtipDE")
	w.start("gCamFE")
	w.field("iIndPres", strconv.Itoa(sifen.PresenceInPerson))
	w.field("dDesIndPres", sifen.PresenceDescription)
	w.end("gCamFE")
	c.writePayment(w, p.Payment, p.Operation.Currency)
	for _, it := range p.Items {
		c.writeItem(w, it)
	}
	w.end("gDtipDE")

	c.writeTotals(w, p.Totals)

	w.end("DE")
	w.end("rDE")

	if w.err != nil {
		return nil, fmt.Errorf("sifen: escribir XML: %w", w.err)
	}
	if err := w.enc.Flush(); err != nil {
		return nil, fmt.Errorf("sifen: escribir XML: %w", err)
	}

	canonical, err := canonicalize(buf.Bytes())
	if err != nil {
		return buf.Bytes(), nil
	}
	return canonical, nil
}

func (c *XMLCodec) writeOperation(w *xmlWriter, op OperationData) {
	currency := op.Currency
	if currency == "" {
		currency = sifen.CurrencyPYG
	}
	w.start("gOpeCom")
	w.field("iTipTra", strconv.Itoa(op.TransactionType))
	w.field("dDesTipTra", sifen.TransactionDescriptions[op.TransactionType])
	w.field("iTImp", strconv.Itoa(sifen.TaxIVA))
	w.field("dDesTImp", "IVA")
	w.field("cMoneOpe", currency)
	w.field("dDesMoneOpe", currencyDescription(currency))
	if currency != sifen.CurrencyPYG && op.ExchangeRate.Valid {
		w.field("dCondTiCam", "1")
		w.field("dTiCam", sifen.FormatAmount(op.ExchangeRate.Decimal))
	}
	w.end("gOpeCom")
}

func (c *XMLCodec) writeIssuer(w *xmlWriter, is IssuerData) {
	w.start("gEmis")
	w.field("dRucEm", is.RUC)
	w.field("dDVEmi", is.DV)
	w.field("iTipCont", strconv.Itoa(is.TaxpayerType))
	if is.RegimeType > 0 {
		w.field("cTipReg", strconv.Itoa(is.RegimeType))
	}
	w.field("dNomEmi", is.Name)
	w.optional("dNomFanEmi", is.TradeName)
	w.field("dDirEmi", is.Address)
	w.field("dNumCas", orZero(is.HouseNumber))
	w.field("cDepEmi", strconv.Itoa(is.Location.DepartmentCode))
	w.field("dDesDepEmi", is.Location.DepartmentName)
	if is.Location.DistrictCode > 0 {
		w.field("cDisEmi", strconv.Itoa(is.Location.DistrictCode))
		w.field("dDesDisEmi", is.Location.DistrictName)
	}
	w.field("cCiuEmi", strconv.Itoa(is.Location.CityCode))
	w.field("dDesCiuEmi", is.Location.CityName)
	w.field("dTelEmi", is.Phone)
	w.field("dEmailE", is.Email)
	for _, a := range is.Activities {
		w.start("gActEco")
		w.field("cActEco", a.Code)
		w.field("dDesActEco", a.Description)
		w.end("gActEco")
	}
	w.end("gEmis")
}

func (c *XMLCodec) writeReceiver(w *xmlWriter, r ReceiverData) {
	country := r.Country
	if country == "" {
		country = "PRY"
	}
	w.start("gDatRec")
	if r.Taxpayer {
		w.field("iNatRec", strconv.Itoa(sifen.ReceiverTaxpayer))
	} else {
		w.field("iNatRec", strconv.Itoa(sifen.ReceiverNonTaxpayer))
	}
	w.field("iTiOpe", strconv.Itoa(r.OperationType))
	w.field("cPaisRec", country)
	w.field("dDesPaisRe", countryDescription(country))
	if r.Taxpayer {
		if r.TaxpayerType > 0 {
			w.field("iTiContRec", strconv.Itoa(r.TaxpayerType))
		}
		w.field("dRucRec", r.RUC)
		w.field("dDVRec", r.DV)
	} else {
		w.field("iTipIDRec", strconv.Itoa(r.IDType))
		w.field("dDTipIDRec", r.IDTypeDesc)
		w.field("dNumIDRec", r.IDNumber)
	}
	w.field("dNomRec", r.Name)
	if r.Location != nil && r.Address != "" {
		w.field("dDirRec", r.Address)
		w.field("dNumCasRec", orZero(r.HouseNumber))
		w.field("cDepRec", strconv.Itoa(r.Location.DepartmentCode))
		w.field("dDesDepRec", r.Location.DepartmentName)
		if r.Location.DistrictCode > 0 {
			w.field("cDisRec", strconv.Itoa(r.Location.DistrictCode))
			w.field("dDesDisRec", r.Location.DistrictName)
		}
		w.field("cCiuRec", strconv.Itoa(r.Location.CityCode))
		w.field("dDesCiuRec", r.Location.CityName)
	}
	w.optional("dTelRec", r.Phone)
	w.optional("dEmailRec", r.Email)
	w.end("gDatRec")
}

func (c *XMLCodec) writePayment(w *xmlWriter, pay PaymentData, currency string) {
	if currency == "" {
		currency = sifen.CurrencyPYG
	}
	condition := pay.Condition
	if condition == 0 {
		condition = sifen.ConditionCash
	}
	w.start("gCamCond")
	w.field("iCondOpe", strconv.Itoa(condition))
	w.field("dDCondOpe", sifen.ConditionDescriptions[condition])
	if condition == sifen.ConditionCash {
		typ := pay.Type
		if _, ok := sifen.PaymentDescriptions[typ]; !ok {
			typ = sifen.PaymentCash
		}
		w.start("gPaConEIni")
		w.field("iTiPago", strconv.Itoa(typ))
		w.field("dDesTiPag", sifen.PaymentDescriptions[typ])
		w.field("dMonTiPag", sifen.FormatAmount(pay.Amount))
		w.field("cMoneTiPag", currency)
		w.field("dDMoneTiPag", currencyDescription(currency))
		w.end("gPaConEIni")
	} else {
		w.start("gPagCred")
		w.field("iCondCred", "1")
		w.field("dDCondCred", "Plazo")
		w.field("dPlazoCre", "30 días")
		w.end("gPagCred")
	}
	w.end("gCamCond")
}

func (c *XMLCodec) writeItem(w *xmlWriter, it ItemData) {
	w.start("gCamItem")
	w.field("dCodInt", it.Code)
	w.field("dDesProSer", it.Description)
	w.field("cUniMed", strconv.Itoa(it.UnitCode))
	w.field("dDesUniMed", sifen.UnitDescription(it.UnitCode))
	w.field("dCantProSer", it.Quantity.String())

	w.start("gValorItem")
	w.field("dPUniProSer", sifen.FormatAmount(it.UnitPrice))
	w.field("dTotBruOpeItem", sifen.FormatAmount(it.Total))
	w.start("gValorRestaItem")
	w.field("dDescItem", "0")
	w.field("dTotOpeItem", sifen.FormatAmount(it.Total))
	w.end("gValorRestaItem")
	w.end("gValorItem")

	w.start("gCamIVA")
	w.field("iAfecIVA", strconv.Itoa(it.VatAffectation))
	w.field("dDesAfecIVA", sifen.VatAffectationDescriptions[it.VatAffectation])
	if it.VatAffectation == sifen.VatTaxed {
		w.field("dPropIVA", "100")
	} else {
		w.field("dPropIVA", "0")
	}
	w.field("dTasaIVA", strconv.Itoa(it.VatRate))
	w.field("dBasGravIVA", sifen.FormatAmount(it.Base))
	w.field("dLiqIVAItem", sifen.FormatAmount(it.Vat))
	w.field("dBasExe", sifen.FormatAmount(it.ExemptBase))
	w.end("gCamIVA")
	w.end("gCamItem")
}

func (c *XMLCodec) writeTotals(w *xmlWriter, t TotalsData) {
	w.start("gTotSub")
	w.field("dSubExe", sifen.FormatAmount(t.Exempt))
	w.field("dSubExo", "0")
	w.field("dSub5", sifen.FormatAmount(t.TaxedAt5))
	w.field("dSub10", sifen.FormatAmount(t.TaxedAt10))
	w.field("dTotOpe", sifen.FormatAmount(t.Total))
	w.field("dTotDesc", "0")
	w.field("dTotDescGlotem", "0")
	w.field("dTotAntItem", "0")
	w.field("dTotAnt", "0")
	w.field("dPorcDescTotal", "0")
	w.field("dDescTotal", "0")
	w.field("dAnticipo", "0")
	w.field("dRedon", "0")
	w.field("dTotGralOpe", sifen.FormatAmount(t.Total))
	w.field("dIVA5", sifen.FormatAmount(t.VatAt5))
	w.field("dIVA10", sifen.FormatAmount(t.VatAt10))
	w.field("dTotIVA", sifen.FormatAmount(t.TotalVat))
	w.field("dBaseGrav5", sifen.FormatAmount(t.BaseAt5))
	w.field("dBaseGrav10", sifen.FormatAmount(t.BaseAt10))
	w.field("dTBasGraIVA", sifen.FormatAmount(t.BaseTotal))
	if t.TotalPYG.Valid {
		w.field("dTotalGs", sifen.FormatAmount(t.TotalPYG.Decimal))
	}
	w.end("gTotSub")
}

// xmlWriter envuelve el encoder y conserva el primer error.
type xmlWriter struct {
	enc *xml.Encoder
	err error
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func (w *xmlWriter) token(t xml.Token) {
	if w.err != nil {
		return
	}
	w.err = w.enc.EncodeToken(t)
}

func (w *xmlWriter) start(local string, attrs ...xml.Attr) {
	w.token(xml.StartElement{Name: xml.Name{Local: local}, Attr: attrs})
}

func (w *xmlWriter) end(local string) {
	w.token(xml.EndElement{Name: xml.Name{Local: local}})
}

func (w *xmlWriter) field(local, value string) {
	w.start(local)
	w.token(xml.CharData(value))
	w.end(local)
}

func (w *xmlWriter) optional(local, value string) {
	if value != "" {
		w.field(local, value)
	}
}

func canonicalize(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

func currencyDescription(code string) string {
	if d, ok := sifen.CurrencyDescriptions[code]; ok {
		return d
	}
	return code
}

func countryDescription(code string) string {
	if code == "PRY" {
		return "Paraguay"
	}
	return code
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func leftPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
