package sifen

import (
	"time"

	"github.com/jhoicas/facturacion-sifen/internal/domain"
	"github.com/jhoicas/facturacion-sifen/internal/domain/entity"
)

// ValidateTimbrado verifica que now caiga dentro de la vigencia del timbrado.
// La vigencia es inclusiva: el primer día desde las 00:00:00 y el último
// hasta las 23:59:59, en la zona horaria de now.
func ValidateTimbrado(t *entity.Timbrado, now time.Time) error {
	if !t.IsConfigured() {
		return &domain.TimbradoError{Code: domain.TimbradoNotConfigured}
	}
	loc := now.Location()
	if !t.ValidFrom.IsZero() {
		y, m, d := t.ValidFrom.Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, loc)
		if now.Before(start) {
			return &domain.TimbradoError{
				Code:   domain.TimbradoNotYetValid,
				Detail: "vigente desde " + start.Format("02/01/2006"),
			}
		}
	}
	if !t.ValidTo.IsZero() {
		y, m, d := t.ValidTo.Date()
		end := time.Date(y, m, d, 23, 59, 59, 0, loc)
		if now.After(end) {
			return &domain.TimbradoError{
				Code:   domain.TimbradoExpired,
				Detail: "venció el " + end.Format("02/01/2006"),
			}
		}
	}
	return nil
}
