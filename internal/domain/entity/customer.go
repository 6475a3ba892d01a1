package entity

import "time"

// Customer cliente de la venta. Con RUC se emite como contribuyente; sin RUC,
// como consumidor final.
type Customer struct {
	ID             string
	Name           string
	RUC            string // "80069563-1"; vacío = no contribuyente
	DocumentNumber string // cédula u otro documento del no contribuyente
	TaxpayerType   int    // 1 física, 2 jurídica; 0 = no informado
	Email          string
	Phone          string
	Address        Address
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasRUC indica si el cliente es contribuyente.
func (c *Customer) HasRUC() bool {
	return c != nil && c.RUC != ""
}

// Address dirección con los códigos geográficos del catálogo de la SET.
// Los códigos en 0 y los nombres vacíos se consideran no informados.
type Address struct {
	Street           string
	HouseNumber      string
	DepartmentCode   int
	DepartmentName   string
	DistrictCode     int
	DistrictName     string
	CityCode         int
	CityName         string
	NeighborhoodCode int
	NeighborhoodName string
}
