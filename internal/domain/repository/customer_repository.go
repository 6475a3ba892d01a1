package repository

import (
	"context"

	"github.com/jhoicas/facturacion-sifen/internal/domain/entity"
)

// CustomerRepository lectura de clientes para el receptor del DE.
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
}
