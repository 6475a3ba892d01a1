package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/facturacion-sifen/internal/domain/entity"
	"github.com/jhoicas/facturacion-sifen/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo lectura de ventas e ítems (usable con pool o tx).
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

// GetByID obtiene la venta y sus ítems en el orden de carga.
func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	var (
		s          entity.Sale
		customerID *string
		currency   *string
	)
	err := r.q.QueryRow(ctx, `
		SELECT id, customer_id, currency, exchange_rate, default_vat_rate, credit_sale,
		       payment_method, status, created_at
		FROM sales WHERE id = $1`, id,
	).Scan(&s.ID, &customerID, &currency, &s.ExchangeRate, &s.DefaultVatRate, &s.CreditSale,
		&s.PaymentMethod, &s.Status, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	s.CustomerID = derefString(customerID)
	s.Currency = derefString(currency)

	rows, err := r.q.Query(ctx, `
		SELECT id, COALESCE(product_id, ''), COALESCE(description, ''), quantity,
		       unit_price, subtotal, vat_rate, COALESCE(unit_measure, ''), COALESCE(unit_code, 0)
		FROM sale_items WHERE sale_id = $1 ORDER BY line_no, id`, id)
	if err != nil {
		return nil, fmt.Errorf("list sale items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.SaleItem
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Description, &it.Quantity,
			&it.UnitPrice, &it.Subtotal, &it.VatRate, &it.UnitMeasure, &it.UnitCode); err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		s.Items = append(s.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sale items: %w", err)
	}
	return &s, nil
}
