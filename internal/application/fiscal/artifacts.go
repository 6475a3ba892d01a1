package fiscal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/jhoicas/facturacion-sifen/internal/domain"
	"github.com/jhoicas/facturacion-sifen/internal/domain/entity"
	"github.com/jhoicas/facturacion-sifen/internal/domain/repository"
)

// ArtifactKind archivo a descargar.
type ArtifactKind string

const (
	ArtifactXML       ArtifactKind = "xml"
	ArtifactSignedXML ArtifactKind = "firmado"
	ArtifactPDF       ArtifactKind = "pdf"
)

// ArtifactsUseCase consulta y lectura de los artefactos de un documento.
type ArtifactsUseCase struct {
	docs  repository.FiscalDocumentRepository
	store ArtifactStore
}

// NewArtifactsUseCase construye el caso de uso.
func NewArtifactsUseCase(docs repository.FiscalDocumentRepository, store ArtifactStore) *ArtifactsUseCase {
	return &ArtifactsUseCase{docs: docs, store: store}
}

// GetDocumentArtifacts rutas registradas del documento.
func (uc *ArtifactsUseCase) GetDocumentArtifacts(ctx context.Context, documentID string) (entity.Artifacts, error) {
	doc, err := uc.get(ctx, documentID)
	if err != nil {
		return entity.Artifacts{}, err
	}
	return doc.Artifacts(), nil
}

// Open devuelve el contenido y el nombre de archivo. El PDF se compara con
// el hash registrado al generarlo.
func (uc *ArtifactsUseCase) Open(ctx context.Context, documentID string, kind ArtifactKind) ([]byte, string, error) {
	doc, err := uc.get(ctx, documentID)
	if err != nil {
		return nil, "", err
	}

	var path string
	switch kind {
	case ArtifactXML:
		path = doc.XMLPath
	case ArtifactSignedXML:
		path = doc.SignedXMLPath
	case ArtifactPDF:
		path = doc.PDFPath
	default:
		return nil, "", fmt.Errorf("%w: tipo de artefacto %q", domain.ErrInvalidInput, kind)
	}
	if path == "" {
		return nil, "", fmt.Errorf("%w: el documento no tiene artefacto %s", domain.ErrNotFound, kind)
	}

	data, err := uc.store.Read(ctx, path)
	if err != nil {
		return nil, "", &domain.PersistenceError{Op: "leer artefacto", Err: err}
	}
	if kind == ArtifactPDF && doc.PDFHash != "" {
		sum := sha256.Sum256(data)
		if hex.EncodeToString(sum[:]) != doc.PDFHash {
			return nil, "", fmt.Errorf("%w: %s", domain.ErrIntegrity, filepath.Base(path))
		}
	}
	return data, filepath.Base(path), nil
}

func (uc *ArtifactsUseCase) get(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	doc, err := uc.docs.GetByID(ctx, id)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "buscar documento", Err: err}
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: documento %s", domain.ErrNotFound, id)
	}
	return doc, nil
}
