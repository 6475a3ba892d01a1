package repository

import (
	"context"

	"github.com/jhoicas/facturacion-sifen/internal/domain/entity"
)

// SaleRepository lectura de ventas (las escribe el subsistema de caja).
type SaleRepository interface {
	// GetByID devuelve la venta con sus ítems, o (nil, nil) si no existe.
	GetByID(ctx context.Context, id string) (*entity.Sale, error)
}
