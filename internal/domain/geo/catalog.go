// Package geo resuelve los códigos geográficos (departamento, distrito,
// ciudad y barrio) del catálogo de la SET a partir de lo que trae el cliente.
package geo

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/facturacion-sifen/pkg/sifen"
)

// Location una fila del catálogo.
type Location struct {
	DepartmentCode   int
	DepartmentName   string
	DistrictCode     int
	DistrictName     string
	CityCode         int
	CityName         string
	NeighborhoodCode int
	NeighborhoodName string
}

// Label "Ciudad, Distrito, Departamento" para autocompletado.
func (l Location) Label() string {
	parts := []string{l.CityName, l.DistrictName, l.DepartmentName}
	if l.NeighborhoodName != "" {
		parts = append([]string{l.NeighborhoodName}, parts...)
	}
	return strings.Join(parts, ", ")
}

type codeKey struct{ dep, dis, city int }
type nameKey struct{ dep, dis, city string }

// Catalog tabla de referencia en memoria. Se carga una vez y se comparte en
// modo solo lectura durante toda la vida del proceso.
type Catalog struct {
	rows   []Location
	search []string // nombres normalizados, mismo índice que rows
	byCode map[codeKey][]int
	byName map[nameKey]int
}

// columnas esperadas en el encabezado del CSV.
var columns = []string{
	"departamento_codigo", "departamento",
	"distrito_codigo", "distrito",
	"ciudad_codigo", "ciudad",
	"barrio_codigo", "barrio",
}

// LoadCatalogFile abre y carga el CSV del catálogo.
func LoadCatalogFile(path, charset string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geo: abrir catálogo: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f, charset)
}

// LoadCatalog lee el CSV (separador coma, con encabezado). charset acepta
// "UTF-8" (por defecto) o "ISO-8859-1"/"latin1", que es como la SET publica
// sus tablas. Las columnas de barrio son opcionales.
func LoadCatalog(r io.Reader, charset string) (*Catalog, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
	case "iso-8859-1", "latin1", "latin-1":
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	case "windows-1252", "cp1252":
		r = transform.NewReader(r, charmap.Windows1252.NewDecoder())
	default:
		return nil, fmt.Errorf("geo: charset no soportado %q", charset)
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("geo: leer encabezado: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, c := range columns[:6] {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("geo: falta la columna %q", c)
		}
	}

	c := &Catalog{
		byCode: make(map[codeKey][]int),
		byName: make(map[nameKey]int),
	}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("geo: línea %d: %w", line, err)
		}
		field := func(name string) string {
			i, ok := idx[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		code := func(name string) (int, error) {
			v := field(name)
			if v == "" {
				return 0, nil
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("geo: línea %d: %s %q no es numérico", line, name, v)
			}
			return n, nil
		}

		var loc Location
		var errs []error
		var e error
		loc.DepartmentCode, e = code("departamento_codigo")
		errs = append(errs, e)
		loc.DistrictCode, e = code("distrito_codigo")
		errs = append(errs, e)
		loc.CityCode, e = code("ciudad_codigo")
		errs = append(errs, e)
		loc.NeighborhoodCode, e = code("barrio_codigo")
		errs = append(errs, e)
		if err := errors.Join(errs...); err != nil {
			return nil, err
		}
		loc.DepartmentName = field("departamento")
		loc.DistrictName = field("distrito")
		loc.CityName = field("ciudad")
		loc.NeighborhoodName = field("barrio")
		c.add(loc)
	}
	if len(c.rows) == 0 {
		return nil, fmt.Errorf("geo: catálogo vacío")
	}
	return c, nil
}

func (c *Catalog) add(loc Location) {
	i := len(c.rows)
	c.rows = append(c.rows, loc)
	c.search = append(c.search, sifen.Normalize(loc.Label()))

	ck := codeKey{loc.DepartmentCode, loc.DistrictCode, loc.CityCode}
	c.byCode[ck] = append(c.byCode[ck], i)

	nk := nameKey{sifen.Normalize(loc.DepartmentName), sifen.Normalize(loc.DistrictName), sifen.Normalize(loc.CityName)}
	// la primera fila de la ciudad (sin barrio, si existe) representa a la ciudad
	if prev, ok := c.byName[nk]; !ok || (c.rows[prev].NeighborhoodCode != 0 && loc.NeighborhoodCode == 0) {
		c.byName[nk] = i
	}
}

// Len cantidad de filas cargadas.
func (c *Catalog) Len() int { return len(c.rows) }

// Search busca por subcadena en los nombres normalizados (sin tildes ni
// mayúsculas). Devuelve como máximo limit filas, ordenadas por posición de
// la coincidencia y luego por nombre.
func (c *Catalog) Search(text string, limit int) []Location {
	q := sifen.Normalize(text)
	if q == "" {
		return nil
	}
	type hit struct {
		pos int
		row int
	}
	var hits []hit
	for i, s := range c.search {
		if p := strings.Index(s, q); p >= 0 {
			hits = append(hits, hit{pos: p, row: i})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].pos != hits[b].pos {
			return hits[a].pos < hits[b].pos
		}
		return c.search[hits[a].row] < c.search[hits[b].row]
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]Location, len(hits))
	for i, h := range hits {
		out[i] = c.rows[h.row]
	}
	return out
}
