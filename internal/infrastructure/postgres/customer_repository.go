package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/facturacion-sifen/internal/domain/entity"
	"github.com/jhoicas/facturacion-sifen/internal/domain/repository"
)

var _ repository.CustomerRepository = (*CustomerRepo)(nil)

// CustomerRepo lectura de clientes (usable con pool o tx).
type CustomerRepo struct {
	q Querier
}

// NewCustomerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCustomerRepository(q Querier) *CustomerRepo {
	return &CustomerRepo{q: q}
}

// GetByID obtiene un cliente por ID con su dirección.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	query := `
		SELECT id, name, COALESCE(ruc, ''), COALESCE(document_number, ''), COALESCE(taxpayer_type, 0),
		       COALESCE(email, ''), COALESCE(phone, ''),
		       COALESCE(street, ''), COALESCE(house_number, ''),
		       COALESCE(department_code, 0), COALESCE(department_name, ''),
		       COALESCE(district_code, 0), COALESCE(district_name, ''),
		       COALESCE(city_code, 0), COALESCE(city_name, ''),
		       COALESCE(neighborhood_code, 0), COALESCE(neighborhood_name, ''),
		       created_at, updated_at
		FROM customers WHERE id = $1`
	var c entity.Customer
	a := &c.Address
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.RUC, &c.DocumentNumber, &c.TaxpayerType, &c.Email, &c.Phone,
		&a.Street, &a.HouseNumber,
		&a.DepartmentCode, &a.DepartmentName,
		&a.DistrictCode, &a.DistrictName,
		&a.CityCode, &a.CityName,
		&a.NeighborhoodCode, &a.NeighborhoodName,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}
