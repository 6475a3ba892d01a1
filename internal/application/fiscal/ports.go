package fiscal

import (
	"context"
	"time"

	"github.com/jhoicas/facturacion-sifen/internal/domain/entity"
	infrasifen "github.com/jhoicas/facturacion-sifen/internal/infrastructure/sifen"
)

// Locker serializa las emisiones de una misma venta. Lock bloquea hasta
// obtener el candado o hasta que ctx termine; unlock es siempre no nulo
// cuando err es nil.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// ArtifactStore guarda los archivos del documento. Write es atómico y
// devuelve la ruta final y el SHA-256 (hex) del contenido.
type ArtifactStore interface {
	Write(ctx context.Context, dir []string, name string, data []byte) (path, sum string, err error)
	Read(ctx context.Context, path string) ([]byte, error)
}

// KuDE datos de la representación gráfica.
type KuDE struct {
	Document  *entity.FiscalDocument
	Payload   *infrasifen.DocumentPayload
	QRURL     string
	Cancelled bool
	Test      bool // ambiente de certificación: leyenda "sin valor fiscal"
}

// KuDERenderer genera el PDF del KuDE.
type KuDERenderer interface {
	Render(ctx context.Context, k *KuDE) ([]byte, error)
}

// Clock fuente de hora; en tests se fija.
type Clock func() time.Time
