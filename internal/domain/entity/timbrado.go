package entity

import "time"

// Timbrado autorización de la SET para emitir documentos electrónicos.
// La vigencia es inclusiva en ambos extremos.
type Timbrado struct {
	Number    string
	ValidFrom time.Time
	ValidTo   time.Time
}

// IsConfigured indica si hay un número de timbrado cargado.
func (t *Timbrado) IsConfigured() bool {
	return t != nil && t.Number != ""
}
