package sifen_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sifen/pkg/sifen"
)

// ─────────────────────────────────────────────────────────────────────────────
// Vectores calculados con el algoritmo módulo 11 de la SET (peso máximo 11).
//   RUC genérico 44444401 → DV 7
//   CDC 01 80069563 1 002 003 0000015 1 20240110 1 000654321 → DV 5
// ─────────────────────────────────────────────────────────────────────────────

func TestCheckDigit_RUCGenerico(t *testing.T) {
	assert.Equal(t, 7, sifen.CheckDigit(sifen.GenericRUC))
	assert.Equal(t, 1, sifen.CheckDigit("80069563"))
	assert.Equal(t, 0, sifen.CheckDigit("80012345"))
}

func TestCheckDigit_LetrasSeConviertenAASCII(t *testing.T) {
	assert.Equal(t, 2, sifen.CheckDigit("1234567A"))
	assert.Equal(t, sifen.CheckDigit("1234567A"), sifen.CheckDigit("1234567a"))
}

func TestSplitRUC(t *testing.T) {
	base, dv, err := sifen.SplitRUC("80069563-1")
	require.NoError(t, err)
	assert.Equal(t, "80069563", base)
	assert.Equal(t, "1", dv)

	base, dv, err = sifen.SplitRUC(" 44444401 ")
	require.NoError(t, err)
	assert.Equal(t, "44444401", base)
	assert.Equal(t, "7", dv, "sin guion el DV se calcula")

	_, _, err = sifen.SplitRUC("80069563-")
	assert.Error(t, err)
	_, _, err = sifen.SplitRUC("")
	assert.Error(t, err)
}

func TestValidateRUC(t *testing.T) {
	assert.NoError(t, sifen.ValidateRUC("44444401-7"))
	assert.Error(t, sifen.ValidateRUC("44444401-3"))
}

func TestBuildCDC_Vector(t *testing.T) {
	cdc, err := sifen.BuildCDC(sifen.CDCParams{
		DocumentType:  sifen.DocTypeInvoice,
		RUC:           "80069563",
		DV:            "1",
		Establishment: "2",
		PointOfSale:   "003",
		Number:        15,
		TaxpayerType:  sifen.TaxpayerPhysical,
		IssuedAt:      time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
		EmissionType:  sifen.EmissionNormal,
		SecurityCode:  "654321",
	})
	require.NoError(t, err)
	assert.Equal(t, "01800695631002003000001512024011010006543215", cdc)
	assert.Len(t, cdc, sifen.CDCLength)
	assert.NoError(t, sifen.ValidateCDC(cdc))
}

func TestBuildCDC_RUCCortoSeCompletaConCeros(t *testing.T) {
	cdc, err := sifen.BuildCDC(sifen.CDCParams{
		DocumentType: 1, RUC: "1234567", DV: "8", Establishment: "001", PointOfSale: "001",
		Number: 1, TaxpayerType: 1, IssuedAt: time.Now(), EmissionType: 1, SecurityCode: "000001",
	})
	require.NoError(t, err)
	assert.Equal(t, "01", cdc[:2])
	assert.Equal(t, "01234567", cdc[2:10])
	assert.Equal(t, "8", cdc[10:11])
}

func TestBuildCDC_DatosInvalidos(t *testing.T) {
	valid := sifen.CDCParams{
		DocumentType: 1, RUC: "80069563", DV: "1", Establishment: "001", PointOfSale: "001",
		Number: 1, TaxpayerType: 1, IssuedAt: time.Now(), EmissionType: 1, SecurityCode: "123456",
	}
	cases := map[string]func(p *sifen.CDCParams){
		"ruc largo":       func(p *sifen.CDCParams) { p.RUC = "123456789" },
		"ruc con letras":  func(p *sifen.CDCParams) { p.RUC = "8006956A" },
		"numero cero":     func(p *sifen.CDCParams) { p.Number = 0 },
		"numero excedido": func(p *sifen.CDCParams) { p.Number = 10_000_000 },
		"sin fecha":       func(p *sifen.CDCParams) { p.IssuedAt = time.Time{} },
		"codigo vacio":    func(p *sifen.CDCParams) { p.SecurityCode = "" },
		"establecimiento": func(p *sifen.CDCParams) { p.Establishment = "1000" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := valid
			mutate(&p)
			_, err := sifen.BuildCDC(p)
			assert.Error(t, err)
		})
	}
}

func TestValidateCDC_DigitoIncorrecto(t *testing.T) {
	assert.Error(t, sifen.ValidateCDC("01800695631002003000001512024011010006543210"))
	assert.Error(t, sifen.ValidateCDC("123"))
}

func TestFormatDocumentNumber(t *testing.T) {
	assert.Equal(t, "001-002-0000042", sifen.FormatDocumentNumber("1", "02", 42))
}

func TestNewSecurityCode_SeisDigitos(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := sifen.NewSecurityCode()
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9]{6}$`, code)
	}
}
