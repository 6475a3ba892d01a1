package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrConflict     = errors.New("conflicto con el estado actual")
	ErrIntegrity    = errors.New("el artefacto no coincide con el hash registrado")
	ErrLocked       = errors.New("la venta se está emitiendo en otro proceso")
)

// Códigos de error de timbrado.
const (
	TimbradoNotConfigured = "TIMBRADO_NO_CONFIGURADO"
	TimbradoNotYetValid   = "TIMBRADO_NO_VIGENTE"
	TimbradoExpired       = "TIMBRADO_VENCIDO"
)

// ValidationError datos de la venta que impiden armar el documento.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validación: " + e.Reason
	}
	return fmt.Sprintf("validación: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// TimbradoError el timbrado no existe o está fuera de su vigencia.
type TimbradoError struct {
	Code   string
	Detail string
}

func (e *TimbradoError) Error() string {
	if e.Detail == "" {
		return "timbrado: " + e.Code
	}
	return fmt.Sprintf("timbrado: %s: %s", e.Code, e.Detail)
}

// SigningError falla del almacén de claves o de la firma XAdES.
type SigningError struct {
	Op  string
	Err error
}

func (e *SigningError) Error() string { return fmt.Sprintf("firma: %s: %v", e.Op, e.Err) }
func (e *SigningError) Unwrap() error { return e.Err }

// TransportError fallo de red o timeout al hablar con SIFEN.
// No es fatal para la emisión: el documento queda PENDIENTE.
type TransportError struct {
	Op       string
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transporte: %s %s: %v", e.Op, e.Endpoint, e.Err)
}
func (e *TransportError) Unwrap() error { return e.Err }

// PersistenceError fallo al guardar el registro fiscal o sus artefactos.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persistencia: %s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

// IsValidation indica si err (o alguno que envuelve) es un ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// TimbradoCode devuelve el código si err es un TimbradoError.
func TimbradoCode(err error) (string, bool) {
	var t *TimbradoError
	if errors.As(err, &t) {
		return t.Code, true
	}
	return "", false
}
