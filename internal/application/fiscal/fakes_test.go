package fiscal_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sifen/internal/application/fiscal"
	"github.com/jhoicas/facturacion-sifen/internal/domain"
	"github.com/jhoicas/facturacion-sifen/internal/domain/entity"
	infrasifen "github.com/jhoicas/facturacion-sifen/internal/infrastructure/sifen"
	"github.com/jhoicas/facturacion-sifen/pkg/logger"
	"github.com/jhoicas/facturacion-sifen/pkg/sifen"
)

// ── Fixtures ──────────────────────────────────────────────────────────────────

var pyt = time.FixedZone("PYT", -3*3600)

var fixedNow = time.Date(2024, 5, 15, 10, 30, 0, 0, pyt)

func intPtr(v int) *int { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testIssuer() entity.Issuer {
	return entity.Issuer{
		RUC: "80069563", DV: "1", Name: "EMPRESA DE PRUEBA S.A.", TaxpayerType: 2, RegimeType: 8,
		Phone: "021 123456", Email: "facturacion@example.com.py",
		Activities: []entity.EconomicActivity{{Code: "47111", Description: "Comercio al por menor"}},
		Establishment: entity.Establishment{
			Code: "001", PointOfSale: "001",
			Address: entity.Address{
				Street: "Avda. España", HouseNumber: "1234",
				DepartmentCode: 1, DepartmentName: "CAPITAL",
				DistrictCode: 1, DistrictName: "ASUNCION (DISTRITO)",
				CityCode: 1, CityName: "ASUNCION (DISTRITO)",
			},
		},
	}
}

func testTimbrado() entity.Timbrado {
	return entity.Timbrado{
		Number:    "12560693",
		ValidFrom: time.Date(2024, 5, 1, 0, 0, 0, 0, pyt),
		ValidTo:   time.Date(2030, 12, 31, 0, 0, 0, 0, pyt),
	}
}

func testProducts() map[string]*entity.Product {
	return map[string]*entity.Product{
		"P-1": {ID: "P-1", Code: "YERBA", Name: "Yerba mate 1kg", Price: decimal.NewNullDecimal(dec("50000")), VatRate: intPtr(10), UnitMeasure: "UNIDAD"},
		"P-2": {ID: "P-2", Code: "HARINA", Name: "Harina 1kg", Price: decimal.NewNullDecimal(dec("21000")), VatRate: intPtr(5), UnitMeasure: "KG"},
	}
}

func testSale(id string) *entity.Sale {
	return &entity.Sale{
		ID:             id,
		DefaultVatRate: 10,
		Status:         entity.SaleStatusActive,
		Items: []entity.SaleItem{
			{ID: id + "-1", ProductID: "P-1", Quantity: dec("2")},
			{ID: id + "-2", ProductID: "P-2", Quantity: dec("1")},
		},
		CreatedAt: fixedNow,
	}
}

// ── Repositorios en memoria ───────────────────────────────────────────────────

type memDocs struct {
	mu       sync.Mutex
	bySale   map[string]*entity.FiscalDocument
	counters map[string]int64
	updates  int

	// beforeCreate permite simular que otro proceso ganó la carrera.
	beforeCreate func(m *memDocs, doc *entity.FiscalDocument)
	failUpdate   error
}

func newMemDocs() *memDocs {
	return &memDocs{bySale: map[string]*entity.FiscalDocument{}, counters: map[string]int64{}}
}

func (m *memDocs) CreateWithNextSequence(_ context.Context, doc *entity.FiscalDocument) error {
	if m.beforeCreate != nil {
		hook := m.beforeCreate
		m.beforeCreate = nil
		hook(m, doc)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bySale[doc.SaleID]; ok {
		return fmt.Errorf("venta %s: %w", doc.SaleID, domain.ErrDuplicate)
	}
	m.insertLocked(doc)
	return nil
}

func (m *memDocs) insertLocked(doc *entity.FiscalDocument) {
	key := strings.Join([]string{doc.TimbradoNumber, doc.Establishment, doc.PointOfSale}, "|")
	m.counters[key]++
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	doc.Sequence = m.counters[key]
	doc.DocumentNumber = sifen.FormatDocumentNumber(doc.Establishment, doc.PointOfSale, doc.Sequence)
	cp := *doc
	m.bySale[doc.SaleID] = &cp
}

func (m *memDocs) GetByID(_ context.Context, id string) (*entity.FiscalDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.bySale {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memDocs) GetBySaleID(_ context.Context, saleID string) (*entity.FiscalDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.bySale[saleID]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (m *memDocs) Update(_ context.Context, doc *entity.FiscalDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate != nil {
		return m.failUpdate
	}
	cp := *doc
	if prev, ok := m.bySale[doc.SaleID]; ok {
		cp.LastQuery = prev.LastQuery
	}
	m.bySale[doc.SaleID] = &cp
	m.updates++
	return nil
}

func (m *memDocs) UpdateLastQuery(_ context.Context, id, body string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.bySale {
		if d.ID == id {
			d.LastQuery = body
			d.UpdatedAt = at
			return nil
		}
	}
	return fmt.Errorf("documento %s: %w", id, domain.ErrNotFound)
}

func (m *memDocs) stored(saleID string) *entity.FiscalDocument {
	d, _ := m.GetBySaleID(context.Background(), saleID)
	return d
}

func (m *memDocs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bySale)
}

type memSales map[string]*entity.Sale

func (m memSales) GetByID(_ context.Context, id string) (*entity.Sale, error) {
	return m[id], nil
}

type memCustomers map[string]*entity.Customer

func (m memCustomers) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	return m[id], nil
}

type memProducts map[string]*entity.Product

func (m memProducts) GetByID(_ context.Context, id string) (*entity.Product, error) {
	return m[id], nil
}

func (m memProducts) GetByIDs(_ context.Context, ids []string) (map[string]*entity.Product, error) {
	out := make(map[string]*entity.Product, len(ids))
	for _, id := range ids {
		if p, ok := m[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// ── Artefactos, firma, KuDE y transporte falsos ───────────────────────────────

type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemStore() *memStore { return &memStore{files: map[string][]byte{}} }

func (s *memStore) Write(_ context.Context, dir []string, name string, data []byte) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := strings.Join(append(append([]string{}, dir...), name), "/")
	s.files[path] = append([]byte(nil), data...)
	sum := sha256.Sum256(data)
	return path, hex.EncodeToString(sum[:]), nil
}

func (s *memStore) Read(_ context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[path]
	if !ok {
		return nil, errors.New("no existe " + path)
	}
	return b, nil
}

func (s *memStore) get(path string) []byte {
	b, _ := s.Read(context.Background(), path)
	return b
}

// stubSigner devuelve el XML tal cual, con un digest fijo.
type stubSigner struct {
	err   error
	calls int
	mu    sync.Mutex
}

func (s *stubSigner) Sign(xml []byte) (*sifen.SignedDocument, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return &sifen.SignedDocument{
		XML:         xml,
		DigestValue: "ZGlnZXN0",
		Certificate: sifen.CertificateMetadata{Serial: "42", Issuer: "CN=CA de prueba"},
	}, nil
}

type recordingRenderer struct {
	mu   sync.Mutex
	last fiscal.KuDE
}

func (r *recordingRenderer) Render(_ context.Context, k *fiscal.KuDE) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = *k
	out := "%PDF-1.4 KuDE " + k.Document.CDC
	if k.Cancelled {
		out += " ANULADA"
	}
	return []byte(out), nil
}

type fakeTransport struct {
	mu      sync.Mutex
	status  int
	err     error
	submits int
	queries int
	envs    []infrasifen.Environment

	// duringQuery corre en medio de QueryStatus, sin el mutex tomado.
	duringQuery func()
}

func (f *fakeTransport) set(status int, err error) {
	f.mu.Lock()
	f.status, f.err = status, err
	f.mu.Unlock()
}

func (f *fakeTransport) Submit(_ context.Context, _ []byte, env infrasifen.Environment) (*infrasifen.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	f.envs = append(f.envs, env)
	if f.err != nil {
		return nil, f.err
	}
	return &infrasifen.Result{OK: f.status >= 200 && f.status < 300, HTTPStatus: f.status, RawBody: fmt.Sprintf("<rRetEnviDe><dCodRes>%d</dCodRes></rRetEnviDe>", f.status)}, nil
}

func (f *fakeTransport) QueryStatus(_ context.Context, cdc string, env infrasifen.Environment) (*infrasifen.Result, error) {
	f.mu.Lock()
	hook := f.duringQuery
	f.duringQuery = nil
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	f.envs = append(f.envs, env)
	if f.err != nil {
		return nil, f.err
	}
	return &infrasifen.Result{OK: true, HTTPStatus: 200, RawBody: "<rEnviConsDeResponse><dCDC>" + cdc + "</dCDC></rEnviConsDeResponse>"}, nil
}

// ── Armado del orquestador ────────────────────────────────────────────────────

type harness struct {
	docs      *memDocs
	sales     memSales
	customers memCustomers
	products  memProducts
	store     *memStore
	signer    *stubSigner
	renderer  *recordingRenderer
	transport *fakeTransport
	cfg       fiscal.Config
}

func newHarness(sales ...*entity.Sale) *harness {
	h := &harness{
		docs:      newMemDocs(),
		sales:     memSales{},
		customers: memCustomers{},
		products:  memProducts(testProducts()),
		store:     newMemStore(),
		signer:    &stubSigner{},
		renderer:  &recordingRenderer{},
		transport: &fakeTransport{status: 200},
		cfg: fiscal.Config{
			Environment: infrasifen.EnvCertification,
			Issuer:      testIssuer(),
			Timbrado:    testTimbrado(),
			CSC:         "ABCD0000000000000000000000000000",
			CSCID:       "0001",
		},
	}
	for _, s := range sales {
		h.sales[s.ID] = s
	}
	return h
}

func (h *harness) orchestrator(signer sifen.Signer) *fiscal.Orchestrator {
	if signer == nil {
		signer = h.signer
	}
	builder := fiscal.NewDocumentBuilder(fiscal.BuilderConfig{Issuer: h.cfg.Issuer, DefaultVatRate: 10}, nil)
	return fiscal.NewOrchestrator(h.cfg, fiscal.Deps{
		Documents: h.docs,
		Sales:     h.sales,
		Customers: h.customers,
		Products:  h.products,
		Builder:   builder,
		Signer:    signer,
		Transport: h.transport,
		Store:     h.store,
		Renderer:  h.renderer,
		Logger:    logger.Nop(),
	}).WithClock(func() time.Time { return fixedNow })
}
