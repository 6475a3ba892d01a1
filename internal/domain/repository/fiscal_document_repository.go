package repository

import (
	"context"
	"time"

	"github.com/jhoicas/facturacion-sifen/internal/domain/entity"
)

// FiscalDocumentRepository define el puerto de persistencia para documentos fiscales.
// Los Get devuelven (nil, nil) cuando no hay fila.
type FiscalDocumentRepository interface {
	// CreateWithNextSequence toma el siguiente número del contador
	// (timbrado, establecimiento, punto) e inserta el documento en la misma
	// transacción. Completa doc.Sequence y doc.DocumentNumber.
	// Si la venta ya tiene documento devuelve domain.ErrDuplicate.
	CreateWithNextSequence(ctx context.Context, doc *entity.FiscalDocument) error

	GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error)
	GetBySaleID(ctx context.Context, saleID string) (*entity.FiscalDocument, error)

	// Update persiste estado, intentos, ambiente, artefactos y respuesta.
	// Número, código de seguridad, fecha de emisión, CDC y LastQuery no se tocan.
	Update(ctx context.Context, doc *entity.FiscalDocument) error

	// UpdateLastQuery guarda solo la última respuesta de consulta.
	UpdateLastQuery(ctx context.Context, id, body string, at time.Time) error
}
