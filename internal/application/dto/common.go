package dto

// SearchRequest parámetros de búsqueda con límite acotado.
type SearchRequest struct {
	Q     string `query:"q"`
	Limit int    `query:"limit"`
}

// DefaultLimit aplica 20 si Limit es cero, negativo o mayor a 100.
func (p *SearchRequest) DefaultLimit() {
	if p.Limit <= 0 || p.Limit > 100 {
		p.Limit = 20
	}
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
