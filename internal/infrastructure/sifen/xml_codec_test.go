package sifen_test

import (
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sifen/internal/infrastructure/sifen"
)

func samplePayload() *sifen.DocumentPayload {
	d := decimal.RequireFromString
	return &sifen.DocumentPayload{
		Version:      "150",
		CDC:          testCDC,
		SecurityCode: "654321",
		IssuedAt:     time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC),
		DocumentType: 1,
		EmissionType: 1,
		Timbrado: sifen.TimbradoData{
			Number: "12560693", ValidFrom: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
			Establishment: "002", PointOfSale: "003", Sequence: 15,
		},
		Operation: sifen.OperationData{TransactionType: 1, Currency: "PYG"},
		Issuer: sifen.IssuerData{
			RUC: "80069563", DV: "1", TaxpayerType: 2, RegimeType: 8,
			Name: "DE generado en ambiente de prueba", Address: "Avda. España", HouseNumber: "1234",
			Location: sifen.LocationData{DepartmentCode: 1, DepartmentName: "CAPITAL", CityCode: 1, CityName: "ASUNCION (DISTRITO)"},
			Phone:    "021 123456", Email: "facturacion@example.com.py",
			Activities: []sifen.ActivityData{{Code: "47111", Description: "Comercio al por menor"}},
		},
		Receiver: sifen.ReceiverData{
			Taxpayer: false, OperationType: 2, IDType: 5, IDTypeDesc: "Innominado", IDNumber: "0", Name: "Sin Nombre",
		},
		Payment: sifen.PaymentData{Condition: 1, Type: 1, Amount: d("121000")},
		Items: []sifen.ItemData{
			{Code: "P-1", Description: "Yerba & <mate>", UnitCode: 77, Quantity: d("2"), UnitPrice: d("50000"),
				Total: d("100000"), VatAffectation: 1, VatRate: 10, Base: d("90909.09"), Vat: d("9090.91")},
			{Code: "P-2", Description: "Harina", UnitCode: 6, Quantity: d("1"), UnitPrice: d("21000"),
				Total: d("21000"), VatAffectation: 1, VatRate: 5, Base: d("20000"), Vat: d("1000")},
		},
		Totals: sifen.TotalsData{
			TaxedAt5: d("21000"), TaxedAt10: d("100000"), Total: d("121000"),
			VatAt5: d("1000"), VatAt10: d("9090.91"), TotalVat: d("10090.91"),
			BaseAt5: d("20000"), BaseAt10: d("90909.09"), BaseTotal: d("110909.09"),
		},
	}
}

func parse(t *testing.T, b []byte) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(b))
	require.NotNil(t, doc.Root())
	return doc.Root()
}

func text(t *testing.T, root *etree.Element, path string) string {
	t.Helper()
	el := root.FindElement(path)
	require.NotNil(t, el, "falta %s", path)
	return el.Text()
}

func TestEncode_EstructuraRDE(t *testing.T) {
	out, err := sifen.NewXMLCodec().Encode(samplePayload())
	require.NoError(t, err)

	root := parse(t, out)
	assert.Equal(t, "rDE", root.Tag)
	assert.Equal(t, "150", text(t, root, "dVerFor"))

	de := root.FindElement("DE")
	require.NotNil(t, de)
	assert.Equal(t, testCDC, de.SelectAttrValue("Id", ""))
	assert.Equal(t, "5", text(t, de, "dDVId"))
	assert.Equal(t, "000654321", text(t, de, "gOpeDE/dCodSeg"))
	assert.Equal(t, "0000015", text(t, de, "gTimb/dNumDoc"))
	assert.Equal(t, "002", text(t, de, "gTimb/dEst"))
	assert.Equal(t, "2024-01-10T09:30:00", text(t, de, "gDatGralOpe/dFeEmiDE"))
	assert.Equal(t, "Guarani", text(t, de, "gDatGralOpe/gOpeCom/dDesMoneOpe"))
	assert.Equal(t, "80069563", text(t, de, "gDatGralOpe/gEmis/dRucEm"))
	assert.Equal(t, "2", text(t, de, "gDatGralOpe/gDatRec/iNatRec"))
	assert.Equal(t, "0", text(t, de, "gDatGralOpe/gDatRec/dNumIDRec"))
	assert.Nil(t, de.FindElement("gDatGralOpe/gDatRec/dRucRec"))
}

func TestEncode_ItemsYTotales(t *testing.T) {
	out, err := sifen.NewXMLCodec().Encode(samplePayload())
	require.NoError(t, err)
	de := parse(t, out).FindElement("DE")
	require.NotNil(t, de)

	items := de.FindElements("gDtipDE/gCamItem")
	require.Len(t, items, 2)
	assert.Equal(t, "Yerba & <mate>", text(t, items[0], "dDesProSer"), "el texto se escapa y se recupera")
	assert.Equal(t, "77", text(t, items[0], "cUniMed"))
	assert.Equal(t, "UNI", text(t, items[0], "dDesUniMed"))
	assert.Equal(t, "9090.91", text(t, items[0], "gCamIVA/dLiqIVAItem"))
	assert.Equal(t, "6", text(t, items[1], "cUniMed"))

	assert.Equal(t, "121000", text(t, de, "gTotSub/dTotGralOpe"))
	assert.Equal(t, "9090.91", text(t, de, "gTotSub/dIVA10"))
	assert.Equal(t, "1000", text(t, de, "gTotSub/dIVA5"))
	assert.Equal(t, "10090.91", text(t, de, "gTotSub/dTotIVA"))
	assert.Nil(t, de.FindElement("gTotSub/dTotalGs"))

	assert.Equal(t, "121000", text(t, de, "gDtipDE/gCamCond/gPaConEIni/dMonTiPag"))
}

func TestEncode_ContribuyenteYMonedaExtranjera(t *testing.T) {
	p := samplePayload()
	p.Receiver = sifen.ReceiverData{
		Taxpayer: true, OperationType: 1, TaxpayerType: 2, RUC: "80012345", DV: "0", Name: "Cliente SA",
		Address: "Mcal. López", Location: &sifen.LocationData{DepartmentCode: 11, DepartmentName: "CENTRAL", DistrictCode: 145, DistrictName: "SAN LORENZO", CityCode: 6106, CityName: "SAN LORENZO"},
	}
	p.Operation.Currency = "USD"
	p.Operation.ExchangeRate = decimal.NewNullDecimal(decimal.NewFromInt(7300))
	p.Payment.Condition = 2

	out, err := sifen.NewXMLCodec().Encode(p)
	require.NoError(t, err)
	de := parse(t, out).FindElement("DE")
	require.NotNil(t, de)

	assert.Equal(t, "80012345", text(t, de, "gDatGralOpe/gDatRec/dRucRec"))
	assert.Equal(t, "6106", text(t, de, "gDatGralOpe/gDatRec/cCiuRec"))
	assert.Equal(t, "7300", text(t, de, "gDatGralOpe/gOpeCom/dTiCam"))
	assert.NotNil(t, de.FindElement("gDtipDE/gCamCond/gPagCred"))
	assert.Nil(t, de.FindElement("gDtipDE/gCamCond/gPaConEIni"))
}

func TestEncode_PayloadIncompleto(t *testing.T) {
	c := sifen.NewXMLCodec()
	_, err := c.Encode(nil)
	assert.Error(t, err)

	p := samplePayload()
	p.Items = nil
	_, err = c.Encode(p)
	assert.Error(t, err)

	p = samplePayload()
	p.CDC = ""
	_, err = c.Encode(p)
	assert.Error(t, err)
}
