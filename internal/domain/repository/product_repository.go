package repository

import (
	"context"

	"github.com/jhoicas/facturacion-sifen/internal/domain/entity"
)

// ProductRepository lectura de productos referidos por los ítems de la venta.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetByIDs devuelve los productos encontrados indexados por ID; los
	// faltantes simplemente no aparecen en el mapa.
	GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Product, error)
}
