package sifen_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sifen/internal/domain"
	"github.com/jhoicas/facturacion-sifen/internal/domain/entity"
	"github.com/jhoicas/facturacion-sifen/internal/domain/sifen"
)

func timbrado() *entity.Timbrado {
	return &entity.Timbrado{
		Number:    "12560693",
		ValidFrom: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		ValidTo:   time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	got, ok := domain.TimbradoCode(err)
	require.True(t, ok, "se esperaba TimbradoError, se obtuvo %v", err)
	assert.Equal(t, code, got)
}

func TestValidateTimbrado_Vencido(t *testing.T) {
	err := sifen.ValidateTimbrado(timbrado(), time.Date(2031, 1, 15, 10, 0, 0, 0, time.UTC))
	requireCode(t, err, domain.TimbradoExpired)
}

func TestValidateTimbrado_NoVigente(t *testing.T) {
	err := sifen.ValidateTimbrado(timbrado(), time.Date(2024, 4, 30, 23, 59, 59, 0, time.UTC))
	requireCode(t, err, domain.TimbradoNotYetValid)
}

func TestValidateTimbrado_NoConfigurado(t *testing.T) {
	requireCode(t, sifen.ValidateTimbrado(nil, time.Now()), domain.TimbradoNotConfigured)
	requireCode(t, sifen.ValidateTimbrado(&entity.Timbrado{}, time.Now()), domain.TimbradoNotConfigured)
}

func TestValidateTimbrado_ExtremosInclusivos(t *testing.T) {
	tb := timbrado()
	assert.NoError(t, sifen.ValidateTimbrado(tb, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	assert.NoError(t, sifen.ValidateTimbrado(tb, time.Date(2030, 12, 31, 23, 59, 59, 0, time.UTC)))
	requireCode(t, sifen.ValidateTimbrado(tb, time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)), domain.TimbradoExpired)
}

func TestValidateTimbrado_FinConHoraNoAdelantaElVencimiento(t *testing.T) {
	tb := timbrado()
	tb.ValidTo = time.Date(2030, 12, 31, 8, 0, 0, 0, time.UTC)
	assert.NoError(t, sifen.ValidateTimbrado(tb, time.Date(2030, 12, 31, 20, 0, 0, 0, time.UTC)))
}
