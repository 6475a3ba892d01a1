package bootstrap_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sifen/internal/bootstrap"
	infrasifen "github.com/jhoicas/facturacion-sifen/internal/infrastructure/sifen"
	"github.com/jhoicas/facturacion-sifen/pkg/config"
	"github.com/jhoicas/facturacion-sifen/pkg/logger"
)

func sifenConfig() config.SIFENConfig {
	return config.SIFENConfig{
		RUC:            "80069563-1",
		BusinessName:   "DE generado en ambiente de prueba",
		TaxpayerType:   2,
		RegimeType:     8,
		ActivityCode:   "46510",
		ActivityDesc:   "COMERCIO AL POR MAYOR",
		Establishment:  "001",
		PointOfSale:    "002",
		Street:         "Av. España",
		HouseNumber:    "1234",
		DepartmentCode: 1,
		DepartmentDesc: "CAPITAL",
		DistrictCode:   1,
		DistrictDesc:   "ASUNCION (DISTRITO)",
		CityCode:       1,
		CityDesc:       "ASUNCION (DISTRITO)",
		Timbrado:       "12560693",
		TimbradoStart:  "2024-01-01",
		TimbradoEnd:    "2025-12-31",
	}
}

func TestIssuerFromConfig(t *testing.T) {
	is, err := bootstrap.IssuerFromConfig(sifenConfig())
	require.NoError(t, err)

	assert.Equal(t, "80069563", is.RUC)
	assert.Equal(t, "1", is.DV)
	assert.Equal(t, "001", is.Establishment.Code)
	assert.Equal(t, "002", is.Establishment.PointOfSale)
	assert.Equal(t, "Av. España", is.Establishment.Address.Street)
	assert.Equal(t, "CAPITAL", is.Establishment.Address.DepartmentName)
	require.Len(t, is.Activities, 1)
	assert.Equal(t, "46510", is.Activities[0].Code)
}

func TestIssuerFromConfig_RUCInvalido(t *testing.T) {
	for _, ruc := range []string{"", "80069563-9", "80069563-x"} {
		c := sifenConfig()
		c.RUC = ruc
		_, err := bootstrap.IssuerFromConfig(c)
		assert.Error(t, err, "ruc %q", ruc)
	}
}

func TestIssuerFromConfig_SinActividad(t *testing.T) {
	c := sifenConfig()
	c.ActivityCode = ""
	is, err := bootstrap.IssuerFromConfig(c)
	require.NoError(t, err)
	assert.Empty(t, is.Activities)
}

func TestTimbradoFromConfig(t *testing.T) {
	tb, err := bootstrap.TimbradoFromConfig(sifenConfig())
	require.NoError(t, err)
	assert.Equal(t, "12560693", tb.Number)
	assert.Equal(t, time.January, tb.ValidFrom.Month())
	assert.Equal(t, 2025, tb.ValidTo.Year())
	assert.Equal(t, 31, tb.ValidTo.Day())
}

func TestTimbradoFromConfig_FechasVaciasYErroneas(t *testing.T) {
	c := sifenConfig()
	c.TimbradoStart, c.TimbradoEnd = "", ""
	tb, err := bootstrap.TimbradoFromConfig(c)
	require.NoError(t, err)
	assert.True(t, tb.ValidFrom.IsZero())
	assert.True(t, tb.ValidTo.IsZero())

	c.TimbradoEnd = "31/12/2025"
	_, err = bootstrap.TimbradoFromConfig(c)
	assert.ErrorContains(t, err, "SIFEN_TIMBRADO_FIN")
}

func TestLoadGeo(t *testing.T) {
	r, err := bootstrap.LoadGeo(config.GeoConfig{}, logger.Nop())
	require.NoError(t, err)
	assert.Empty(t, r.Search("asun", 5))

	path := filepath.Join(t.TempDir(), "geo.csv")
	csv := "departamento_codigo,departamento,distrito_codigo,distrito,ciudad_codigo,ciudad\n" +
		"1,CAPITAL,1,ASUNCION (DISTRITO),1,ASUNCION (DISTRITO)\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))
	r, err = bootstrap.LoadGeo(config.GeoConfig{Path: path, Charset: "utf-8"}, logger.Nop())
	require.NoError(t, err)
	assert.Len(t, r.Search("asun", 5), 1)

	_, err = bootstrap.LoadGeo(config.GeoConfig{Path: filepath.Join(t.TempDir(), "no.csv")}, logger.Nop())
	assert.Error(t, err)
}

func TestNewTransport(t *testing.T) {
	c := sifenConfig()
	c.Timeout = time.Second
	var tr infrasifen.Transport = bootstrap.NewTransport(c)
	assert.NotNil(t, tr)
}
