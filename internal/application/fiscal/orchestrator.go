package fiscal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beevik/etree"

	"github.com/jhoicas/facturacion-sifen/internal/domain"
	"github.com/jhoicas/facturacion-sifen/internal/domain/entity"
	"github.com/jhoicas/facturacion-sifen/internal/domain/repository"
	rules "github.com/jhoicas/facturacion-sifen/internal/domain/sifen"
	infrasifen "github.com/jhoicas/facturacion-sifen/internal/infrastructure/sifen"
	"github.com/jhoicas/facturacion-sifen/pkg/logger"
	"github.com/jhoicas/facturacion-sifen/pkg/sifen"
)

// Config parámetros de emisión que vienen de la configuración del proceso.
type Config struct {
	Environment  infrasifen.Environment
	Issuer       entity.Issuer
	Timbrado     entity.Timbrado
	CSC          string
	CSCID        string
	DocumentType int // 0 = factura electrónica
}

// Deps dependencias del orquestador.
type Deps struct {
	Documents repository.FiscalDocumentRepository
	Sales     repository.SaleRepository
	Customers repository.CustomerRepository
	Products  repository.ProductRepository
	Builder   *DocumentBuilder
	Codec     *infrasifen.XMLCodec
	Signer    sifen.Signer
	Transport infrasifen.Transport
	Store     ArtifactStore
	Renderer  KuDERenderer
	Locker    Locker // nil = candado en memoria
	Logger    *logger.Logger
}

// Orchestrator ciclo de vida del documento fiscal de una venta:
//
//	candado → registro (número + código de seguridad) → DE → XML → firma → QR →
//	KuDE → envío → estado
//
// Número, código de seguridad, fecha de emisión y timbrado se fijan al crear
// el registro y se reutilizan en cada reintento.
type Orchestrator struct {
	Deps
	cfg Config
	now Clock
	log *logger.Logger
}

// NewOrchestrator construye el orquestador.
func NewOrchestrator(cfg Config, deps Deps) *Orchestrator {
	if cfg.DocumentType == 0 {
		cfg.DocumentType = sifen.DocTypeInvoice
	}
	if deps.Locker == nil {
		deps.Locker = NewKeyedLocker()
	}
	if deps.Codec == nil {
		deps.Codec = infrasifen.NewXMLCodec()
	}
	return &Orchestrator{
		Deps: deps,
		cfg:  cfg,
		now:  time.Now,
		log:  deps.Logger.Component("fiscal"),
	}
}

// WithClock fija la hora (tests).
func (o *Orchestrator) WithClock(c Clock) *Orchestrator {
	o.now = c
	return o
}

// Emit emite (o reemite) el documento fiscal de la venta. Es idempotente por
// venta: llamadas sucesivas reutilizan el mismo registro y solo incrementan
// intentos. Un fallo de transporte no es error: el documento queda con su
// estado anterior (PENDIENTE la primera vez) y los artefactos generados.
func (o *Orchestrator) Emit(ctx context.Context, saleID string) (*entity.FiscalDocument, error) {
	return o.run(ctx, saleID, true)
}

// Regenerate vuelve a armar, firmar y renderizar sin enviar. Es el camino de
// la anulación de la venta: el KuDE sale con la leyenda ANULADA y el estado
// fiscal no cambia.
func (o *Orchestrator) Regenerate(ctx context.Context, saleID string) (*entity.FiscalDocument, error) {
	return o.run(ctx, saleID, false)
}

func (o *Orchestrator) run(ctx context.Context, saleID string, send bool) (*entity.FiscalDocument, error) {
	// ── 1. Candado por venta ─────────────────────────────────────────────────
	unlock, err := o.Locker.Lock(ctx, "venta:"+saleID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// ── 2. Datos de la venta ─────────────────────────────────────────────────
	sale, err := o.Sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("cargar venta: %w", err)
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: venta %s", domain.ErrNotFound, saleID)
	}
	customer, err := o.loadCustomer(ctx, sale)
	if err != nil {
		return nil, err
	}
	products, err := o.loadProducts(ctx, sale)
	if err != nil {
		return nil, err
	}

	// ── 3. Registro fiscal ───────────────────────────────────────────────────
	now := o.now()
	doc, err := o.Documents.GetBySaleID(ctx, saleID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "buscar documento", Err: err}
	}
	if doc == nil {
		if !send {
			return nil, fmt.Errorf("%w: la venta %s no tiene documento fiscal", domain.ErrNotFound, saleID)
		}
		if doc, err = o.create(ctx, sale, customer, products, now); err != nil {
			return nil, err
		}
	}
	log := o.log.With().
		Str("sale_id", saleID).
		Str("document_number", doc.DocumentNumber).
		Logger()

	// ── 4. Artefactos ────────────────────────────────────────────────────────
	// Se trabaja sobre una copia: si algo falla el registro guardado no cambia.
	next := *doc
	signedXML, err := o.buildArtifacts(ctx, &next, sale, customer, products, now)
	if err != nil {
		log.Error().Err(err).Msg("no se pudieron generar los artefactos")
		return nil, err
	}

	// ── 5. Envío ─────────────────────────────────────────────────────────────
	next.Attempts++
	next.UpdatedAt = now
	if send {
		next.Environment = string(o.cfg.Environment)
		res, sendErr := o.Transport.Submit(ctx, signedXML, o.cfg.Environment)
		if sendErr != nil {
			log.Warn().Err(sendErr).Str("environment", next.Environment).Msg("SIFEN no disponible; el documento queda pendiente")
			res = infrasifen.FailedResult(sendErr)
		}
		applyResult(&next, res, now)
	}

	// ── 6. Persistir ─────────────────────────────────────────────────────────
	if err := o.Documents.Update(ctx, &next); err != nil {
		log.Error().Err(err).Msg("no se pudo actualizar el documento")
		return nil, &domain.PersistenceError{Op: "actualizar documento", Err: err}
	}

	log.Info().
		Str("cdc", next.CDC).
		Int("attempts", next.Attempts).
		Str("environment", next.Environment).
		Int("http_status", next.LastHTTPStatus).
		Str("state", next.State).
		Bool("sent", send).
		Msg("documento fiscal procesado")
	return &next, nil
}

// create valida timbrado y venta y crea el registro en PENDIENTE con número
// del contador. Si otro proceso lo creó primero, devuelve ese.
//
// Antes de tomar el número se arma el DE completo sobre un borrador: un error
// de datos (RUC del cliente, precios, CDC) no debe consumir la numeración.
func (o *Orchestrator) create(
	ctx context.Context,
	sale *entity.Sale,
	customer *entity.Customer,
	products map[string]*entity.Product,
	now time.Time,
) (*entity.FiscalDocument, error) {
	if err := rules.ValidateTimbrado(&o.cfg.Timbrado, now); err != nil {
		return nil, err
	}
	if err := rules.ValidateSale(sale, products); err != nil {
		return nil, err
	}
	code, err := sifen.NewSecurityCode()
	if err != nil {
		return nil, fmt.Errorf("código de seguridad: %w", err)
	}

	doc := &entity.FiscalDocument{
		SaleID:         sale.ID,
		DocumentType:   o.cfg.DocumentType,
		TimbradoNumber: o.cfg.Timbrado.Number,
		TimbradoFrom:   o.cfg.Timbrado.ValidFrom,
		TimbradoTo:     o.cfg.Timbrado.ValidTo,
		Establishment:  o.cfg.Issuer.Establishment.Code,
		PointOfSale:    o.cfg.Issuer.Establishment.PointOfSale,
		SecurityCode:   code,
		IssuedAt:       now.Truncate(time.Second),
		State:          entity.FiscalStatePending,
		Environment:    string(o.cfg.Environment),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := o.dryRun(doc, sale, customer, products, now); err != nil {
		return nil, err
	}
	err = o.Documents.CreateWithNextSequence(ctx, doc)
	if errors.Is(err, domain.ErrDuplicate) {
		existing, getErr := o.Documents.GetBySaleID(ctx, sale.ID)
		if getErr != nil {
			return nil, &domain.PersistenceError{Op: "buscar documento", Err: getErr}
		}
		if existing != nil {
			return existing, nil
		}
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "crear documento", Err: err}
	}
	o.log.Info().Str("sale_id", sale.ID).Str("document_number", doc.DocumentNumber).Msg("documento fiscal creado")
	return doc, nil
}

// dryRun arma el DE con número provisorio 1 sin tocar el registro.
func (o *Orchestrator) dryRun(
	doc *entity.FiscalDocument,
	sale *entity.Sale,
	customer *entity.Customer,
	products map[string]*entity.Product,
	now time.Time,
) error {
	draft := *doc
	draft.Sequence = 1
	draft.DocumentNumber = sifen.FormatDocumentNumber(draft.Establishment, draft.PointOfSale, draft.Sequence)
	_, err := o.Builder.Build(BuildInput{
		Document:  &draft,
		Sale:      sale,
		Customer:  customer,
		Products:  products,
		Overrides: Overrides{SignedAt: now},
	})
	return err
}

// buildArtifacts arma, firma y guarda XML, XML firmado (con QR) y KuDE.
// Completa en doc rutas, hash, CDC, QR, totales y serial del certificado.
func (o *Orchestrator) buildArtifacts(
	ctx context.Context,
	doc *entity.FiscalDocument,
	sale *entity.Sale,
	customer *entity.Customer,
	products map[string]*entity.Product,
	now time.Time,
) ([]byte, error) {
	payload, err := o.Builder.Build(BuildInput{
		Document:  doc,
		Sale:      sale,
		Customer:  customer,
		Products:  products,
		Overrides: Overrides{SignedAt: now},
	})
	if err != nil {
		return nil, err
	}
	unsigned, err := o.Codec.Encode(payload)
	if err != nil {
		return nil, fmt.Errorf("codificar DE: %w", err)
	}

	// Cada intento escribe en su propio directorio: si Update falla, el
	// registro guardado sigue apuntando a archivos intactos y el próximo
	// intento reescribe el directorio huérfano.
	dir := attemptDir(doc)
	base := "DE_" + doc.DocumentNumber

	xmlPath, _, err := o.Store.Write(ctx, dir, base+".xml", unsigned)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "guardar XML", Err: err}
	}

	signed, err := o.Signer.Sign(unsigned)
	if err != nil {
		return nil, err
	}

	qrURL := sifen.BuildQRURL(sifen.QRParams{
		Version:     payload.Version,
		CDC:         payload.CDC,
		IssuedAt:    payload.IssuedAt,
		ReceiverRUC: receiverRUC(payload.Receiver),
		ReceiverID:  payload.Receiver.IDNumber,
		Total:       payload.Totals.Total,
		TotalVat:    payload.Totals.TotalVat,
		Items:       len(payload.Items),
		DigestValue: signed.DigestValue,
		CSCID:       o.cfg.CSCID,
		CSC:         o.cfg.CSC,
		Production:  o.cfg.Environment.IsProduction(),
	})
	final, err := AttachQR(signed.XML, qrURL)
	if err != nil {
		return nil, &domain.SigningError{Op: "insertar QR", Err: err}
	}

	signedPath, _, err := o.Store.Write(ctx, dir, base+"_firmado.xml", final)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "guardar XML firmado", Err: err}
	}

	doc.CDC = payload.CDC
	doc.Total = payload.Totals.Total
	doc.TotalVat = payload.Totals.TotalVat
	doc.QRURL = qrURL
	doc.QR = entity.QRPayload{
		Timbrado:       doc.TimbradoNumber,
		DocumentNumber: doc.DocumentNumber,
		IssuerRUC:      payload.Issuer.RUC + "-" + payload.Issuer.DV,
		Total:          sifen.FormatAmount(payload.Totals.Total),
		Date:           sifen.FormatDate(payload.IssuedAt),
		CustomerRUC:    payload.Receiver.RUC + "-" + payload.Receiver.DV,
	}
	doc.CertSerial = signed.Certificate.Serial

	pdf, err := o.Renderer.Render(ctx, &KuDE{
		Document:  doc,
		Payload:   payload,
		QRURL:     qrURL,
		Cancelled: sale.IsCancelled(),
		Test:      !o.cfg.Environment.IsProduction(),
	})
	if err != nil {
		return nil, fmt.Errorf("generar KuDE: %w", err)
	}
	pdfPath, pdfHash, err := o.Store.Write(ctx, dir, "KuDE_"+doc.DocumentNumber+".pdf", pdf)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "guardar KuDE", Err: err}
	}

	doc.XMLPath = xmlPath
	doc.SignedXMLPath = signedPath
	doc.PDFPath = pdfPath
	doc.PDFHash = pdfHash
	return final, nil
}

// attemptDir <timbrado>/<número>/intento-<n>, con n el intento en curso.
func attemptDir(doc *entity.FiscalDocument) []string {
	return []string{doc.TimbradoNumber, doc.DocumentNumber, fmt.Sprintf("intento-%d", doc.Attempts+1)}
}

func (o *Orchestrator) loadCustomer(ctx context.Context, sale *entity.Sale) (*entity.Customer, error) {
	if sale.CustomerID == "" {
		return nil, nil
	}
	c, err := o.Customers.GetByID(ctx, sale.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("cargar cliente: %w", err)
	}
	if c == nil {
		o.log.Warn().Str("sale_id", sale.ID).Str("customer_id", sale.CustomerID).Msg("cliente inexistente; se emite a consumidor final")
	}
	return c, nil
}

func (o *Orchestrator) loadProducts(ctx context.Context, sale *entity.Sale) (map[string]*entity.Product, error) {
	seen := make(map[string]bool, len(sale.Items))
	ids := make([]string, 0, len(sale.Items))
	for _, it := range sale.Items {
		if it.ProductID != "" && !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	if len(ids) == 0 {
		return map[string]*entity.Product{}, nil
	}
	products, err := o.Products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("cargar productos: %w", err)
	}
	return products, nil
}

// applyResult traduce la respuesta de SIFEN al estado del documento. Solo un
// 2xx cambia el estado: ENVIADA, sin vuelta atrás. Cualquier otra
// respuesta, 4xx incluido, deja el estado como estaba y queda registrada en
// LastHTTPStatus y LastResponse.
func applyResult(doc *entity.FiscalDocument, res *infrasifen.Result, now time.Time) {
	doc.LastHTTPStatus = res.HTTPStatus
	doc.LastResponse = res.RawBody
	if res.OK {
		doc.State = entity.FiscalStateSent
		sentAt := now
		doc.SentAt = &sentAt
	}
}

func receiverRUC(r infrasifen.ReceiverData) string {
	if r.Taxpayer {
		return r.RUC
	}
	return ""
}

// AttachQR agrega gCamFuFD/dCarQR al final del rDE firmado. Queda fuera del
// DE, así que no altera la referencia firmada.
func AttachQR(signedXML []byte, qrURL string) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(signedXML); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("XML firmado sin raíz")
	}
	if old := root.SelectElement("gCamFuFD"); old != nil {
		root.RemoveChild(old)
	}
	root.CreateElement("gCamFuFD").CreateElement("dCarQR").SetText(qrURL)
	return doc.WriteToBytes()
}
