package geo

import "github.com/jhoicas/facturacion-sifen/pkg/sifen"

// Métodos de resolución.
const (
	MethodCode          = "codigo"
	MethodName          = "nombre"
	MethodEstablishment = "establecimiento"
)

// Hints lo que se conoce de la dirección del cliente. Códigos en 0 y nombres
// vacíos se consideran ausentes.
type Hints struct {
	DepartmentCode   int
	DistrictCode     int
	CityCode         int
	NeighborhoodCode int
	DepartmentName   string
	DistrictName     string
	CityName         string
}

// Resolution ubicación elegida y estrategia que la produjo.
type Resolution struct {
	Location Location
	Method   string
}

// Strategy una forma de encontrar la ubicación en el catálogo.
type Strategy interface {
	Name() string
	Resolve(c *Catalog, h Hints) (Location, bool)
}

// ByCode coincidencia exacta por códigos. Requiere departamento, distrito y
// ciudad; el barrio, si viene, también debe coincidir.
type ByCode struct{}

func (ByCode) Name() string { return MethodCode }

func (ByCode) Resolve(c *Catalog, h Hints) (Location, bool) {
	if h.DepartmentCode == 0 || h.DistrictCode == 0 || h.CityCode == 0 {
		return Location{}, false
	}
	rows := c.byCode[codeKey{h.DepartmentCode, h.DistrictCode, h.CityCode}]
	if len(rows) == 0 {
		return Location{}, false
	}
	if h.NeighborhoodCode != 0 {
		for _, i := range rows {
			if c.rows[i].NeighborhoodCode == h.NeighborhoodCode {
				return c.rows[i], true
			}
		}
		return Location{}, false
	}
	best := rows[0]
	for _, i := range rows {
		if c.rows[i].NeighborhoodCode == 0 {
			best = i
			break
		}
	}
	return c.rows[best], true
}

// ByName coincidencia exacta de departamento, distrito y ciudad sin
// distinguir mayúsculas ni tildes. No hay coincidencia aproximada.
type ByName struct{}

func (ByName) Name() string { return MethodName }

func (ByName) Resolve(c *Catalog, h Hints) (Location, bool) {
	k := nameKey{sifen.Normalize(h.DepartmentName), sifen.Normalize(h.DistrictName), sifen.Normalize(h.CityName)}
	if k.dep == "" || k.dis == "" || k.city == "" {
		return Location{}, false
	}
	i, ok := c.byName[k]
	if !ok {
		return Location{}, false
	}
	return c.rows[i], true
}

// Resolver aplica las estrategias en orden y, si ninguna acierta, devuelve la
// ubicación del establecimiento emisor.
type Resolver struct {
	catalog    *Catalog
	strategies []Strategy
}

// NewResolver con la cadena por defecto: códigos y luego nombres.
func NewResolver(c *Catalog) *Resolver {
	return &Resolver{catalog: c, strategies: []Strategy{ByCode{}, ByName{}}}
}

// Resolve nunca falla: el último recurso es fallback.
func (r *Resolver) Resolve(h Hints, fallback Location) Resolution {
	if r != nil && r.catalog != nil {
		for _, s := range r.strategies {
			if loc, ok := s.Resolve(r.catalog, h); ok {
				return Resolution{Location: loc, Method: s.Name()}
			}
		}
	}
	return Resolution{Location: fallback, Method: MethodEstablishment}
}

// Search autocompletado sobre el catálogo del resolver.
func (r *Resolver) Search(text string, limit int) []Location {
	if r == nil || r.catalog == nil {
		return nil
	}
	return r.catalog.Search(text, limit)
}
