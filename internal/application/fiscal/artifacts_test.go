package fiscal_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sifen/internal/application/fiscal"
	"github.com/jhoicas/facturacion-sifen/internal/domain"
)

func emitted(t *testing.T) (*harness, string) {
	t.Helper()
	h := newHarness(testSale("V-1"))
	doc, err := h.orchestrator(nil).Emit(context.Background(), "V-1")
	require.NoError(t, err)
	return h, doc.ID
}

func TestGetDocumentArtifacts_Rutas(t *testing.T) {
	h, id := emitted(t)
	uc := fiscal.NewArtifactsUseCase(h.docs, h.store)

	a, err := uc.GetDocumentArtifacts(context.Background(), id)
	require.NoError(t, err)
	assert.NotEmpty(t, a.XMLPath)
	assert.NotEmpty(t, a.SignedXMLPath)
	assert.NotEmpty(t, a.PDFPath)
	assert.Len(t, a.PDFHash, 64)
}

func TestGetDocumentArtifacts_DocumentoInexistente(t *testing.T) {
	h, _ := emitted(t)
	_, err := fiscal.NewArtifactsUseCase(h.docs, h.store).GetDocumentArtifacts(context.Background(), "otro")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOpen_PDFVerificaHash(t *testing.T) {
	h, id := emitted(t)
	uc := fiscal.NewArtifactsUseCase(h.docs, h.store)

	data, name, err := uc.Open(context.Background(), id, fiscal.ArtifactPDF)
	require.NoError(t, err)
	assert.Equal(t, "KuDE_001-001-0000001.pdf", name)
	assert.Contains(t, string(data), "%PDF")

	// Alguien reescribe el archivo fuera del sistema.
	doc := h.docs.stored("V-1")
	h.store.files[doc.PDFPath] = []byte("%PDF-1.4 otro contenido")
	_, _, err = uc.Open(context.Background(), id, fiscal.ArtifactPDF)
	assert.ErrorIs(t, err, domain.ErrIntegrity)
}

func TestOpen_XMLFirmado(t *testing.T) {
	h, id := emitted(t)
	data, name, err := fiscal.NewArtifactsUseCase(h.docs, h.store).Open(context.Background(), id, fiscal.ArtifactSignedXML)
	require.NoError(t, err)
	assert.Equal(t, "DE_001-001-0000001_firmado.xml", name)
	assert.Contains(t, string(data), "dCarQR")
}

func TestOpen_TipoDesconocido(t *testing.T) {
	h, id := emitted(t)
	_, _, err := fiscal.NewArtifactsUseCase(h.docs, h.store).Open(context.Background(), id, fiscal.ArtifactKind("zip"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOpen_ArchivoPerdido(t *testing.T) {
	h, id := emitted(t)
	doc := h.docs.stored("V-1")
	delete(h.store.files, doc.XMLPath)

	_, _, err := fiscal.NewArtifactsUseCase(h.docs, h.store).Open(context.Background(), id, fiscal.ArtifactXML)
	var pe *domain.PersistenceError
	assert.True(t, errors.As(err, &pe))
}

func TestOpen_SinArtefactoGenerado(t *testing.T) {
	h := newHarness(testSale("V-1"))
	h.signer.err = &domain.SigningError{Op: "firmar", Err: errors.New("x")}
	_, err := h.orchestrator(nil).Emit(context.Background(), "V-1")
	require.Error(t, err)
	doc := h.docs.stored("V-1")

	_, _, err = fiscal.NewArtifactsUseCase(h.docs, h.store).Open(context.Background(), doc.ID, fiscal.ArtifactPDF)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
