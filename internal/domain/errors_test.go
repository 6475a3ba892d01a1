package domain_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/facturacion-sifen/internal/domain"
)

func TestValidationError_EnvuelveErrInvalidInput(t *testing.T) {
	err := fmt.Errorf("armar DE: %w", domain.NewValidationError("items", "la venta no tiene ítems"))
	assert.True(t, domain.IsValidation(err))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "items: la venta no tiene ítems")
	assert.Equal(t, "validación: sin campo", domain.NewValidationError("", "sin campo").Error())
}

func TestTimbradoCode(t *testing.T) {
	err := fmt.Errorf("emitir: %w", &domain.TimbradoError{Code: domain.TimbradoExpired, Detail: "venció el 2024-12-31"})
	code, ok := domain.TimbradoCode(err)
	assert.True(t, ok)
	assert.Equal(t, "TIMBRADO_VENCIDO", code)

	_, ok = domain.TimbradoCode(errors.New("otro"))
	assert.False(t, ok)
	assert.False(t, domain.IsValidation(err))
}

func TestErroresEnvueltos(t *testing.T) {
	cases := []error{
		&domain.SigningError{Op: "firmar", Err: io.ErrUnexpectedEOF},
		&domain.TransportError{Op: "recepcion", Endpoint: "https://sifen-test", Err: io.ErrUnexpectedEOF},
		&domain.PersistenceError{Op: "guardar", Err: io.ErrUnexpectedEOF},
	}
	for _, err := range cases {
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF, err.Error())
	}
}
