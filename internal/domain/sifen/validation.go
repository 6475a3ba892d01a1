package sifen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jhoicas/facturacion-sifen/internal/domain"
	"github.com/jhoicas/facturacion-sifen/internal/domain/entity"
)

// ValidateSale comprueba que la venta tenga lo necesario para armar el DE:
// al menos un ítem, precio en cada línea (propio o del producto), cantidad
// positiva y tipo de cambio cuando la moneda no es guaraníes.
// Devuelve los ValidationError encontrados unidos con errors.Join.
func ValidateSale(sale *entity.Sale, products map[string]*entity.Product) error {
	if sale == nil {
		return domain.NewValidationError("venta", "venta nula")
	}
	var errs []error

	if len(sale.Items) == 0 {
		errs = append(errs, domain.NewValidationError("items", "la venta no tiene ítems"))
	}
	for i, it := range sale.Items {
		field := fmt.Sprintf("items[%d]", i)
		if !it.Quantity.IsPositive() {
			errs = append(errs, domain.NewValidationError(field, "cantidad debe ser mayor a cero"))
		}
		if it.UnitPrice.Valid || it.Subtotal.Valid {
			continue
		}
		p := products[it.ProductID]
		if p == nil || !p.Price.Valid {
			errs = append(errs, domain.NewValidationError(field, fmt.Sprintf("producto %q sin precio", it.ProductID)))
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(sale.Currency))
	if currency != "" && currency != "PYG" {
		if !sale.ExchangeRate.Valid || !sale.ExchangeRate.Decimal.IsPositive() {
			errs = append(errs, domain.NewValidationError("tipo_cambio", "obligatorio para moneda "+currency))
		}
	}

	return errors.Join(errs...)
}
