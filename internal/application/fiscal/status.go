package fiscal

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/facturacion-sifen/internal/domain"
	"github.com/jhoicas/facturacion-sifen/internal/domain/entity"
	"github.com/jhoicas/facturacion-sifen/internal/domain/repository"
	infrasifen "github.com/jhoicas/facturacion-sifen/internal/infrastructure/sifen"
	"github.com/jhoicas/facturacion-sifen/pkg/logger"
)

// StatusUseCase consulta a SIFEN el estado de un documento por su CDC.
type StatusUseCase struct {
	docs      repository.FiscalDocumentRepository
	transport infrasifen.Transport
	now       Clock
	log       *logger.Logger
}

// NewStatusUseCase construye el caso de uso.
func NewStatusUseCase(docs repository.FiscalDocumentRepository, transport infrasifen.Transport, log *logger.Logger) *StatusUseCase {
	return &StatusUseCase{docs: docs, transport: transport, now: time.Now, log: log.Component("fiscal.estado")}
}

// QueryStatus consulta en el ambiente en que se envió el documento y guarda la
// respuesta cruda en LastQuery. El estado del documento no cambia: la
// respuesta de la consulta no se interpreta.
func (uc *StatusUseCase) QueryStatus(ctx context.Context, documentID string) (*entity.FiscalDocument, *infrasifen.Result, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, nil, &domain.PersistenceError{Op: "buscar documento", Err: err}
	}
	if doc == nil {
		return nil, nil, fmt.Errorf("%w: documento %s", domain.ErrNotFound, documentID)
	}
	if doc.CDC == "" {
		return nil, nil, fmt.Errorf("%w: el documento todavía no tiene CDC", domain.ErrConflict)
	}

	env := infrasifen.ParseEnvironment(doc.Environment)
	res, err := uc.transport.QueryStatus(ctx, doc.CDC, env)
	if err != nil {
		uc.log.Warn().Err(err).Str("cdc", doc.CDC).Str("environment", string(env)).Msg("consulta a SIFEN fallida")
		return nil, nil, err
	}

	// Solo se escribe last_query: una emisión pudo actualizar el registro
	// mientras se esperaba a SIFEN.
	if err := uc.docs.UpdateLastQuery(ctx, doc.ID, res.RawBody, uc.now()); err != nil {
		return nil, nil, &domain.PersistenceError{Op: "guardar consulta", Err: err}
	}
	current, err := uc.docs.GetByID(ctx, doc.ID)
	if err != nil {
		return nil, nil, &domain.PersistenceError{Op: "releer documento", Err: err}
	}
	if current == nil {
		return nil, nil, fmt.Errorf("%w: documento %s", domain.ErrNotFound, documentID)
	}
	uc.log.Info().Str("cdc", doc.CDC).Int("http_status", res.HTTPStatus).Msg("consulta registrada")
	return current, res, nil
}
