package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/facturacion-sifen/internal/domain"
	"github.com/jhoicas/facturacion-sifen/internal/domain/entity"
	"github.com/jhoicas/facturacion-sifen/internal/domain/repository"
	"github.com/jhoicas/facturacion-sifen/pkg/sifen"
)

var _ repository.FiscalDocumentRepository = (*FiscalDocumentRepo)(nil)

const saleUniqueConstraint = "fiscal_documents_sale_id_key"

// FiscalDocumentRepo implementación de FiscalDocumentRepository sobre PostgreSQL.
type FiscalDocumentRepo struct {
	pool *pgxpool.Pool
	tx   *TxRunner
}

// NewFiscalDocumentRepository construye el adaptador.
func NewFiscalDocumentRepository(pool *pgxpool.Pool) *FiscalDocumentRepo {
	return &FiscalDocumentRepo{pool: pool, tx: NewTxRunner(pool)}
}

const fiscalColumns = `
	id, sale_id, document_type, timbrado_number, timbrado_from, timbrado_to,
	establishment, point_of_sale, sequence, document_number, security_code,
	COALESCE(cdc, ''), issued_at, total, total_vat,
	COALESCE(xml_path, ''), COALESCE(signed_xml_path, ''), COALESCE(pdf_path, ''), COALESCE(pdf_hash, ''),
	qr, COALESCE(qr_url, ''), state, attempts, COALESCE(environment, ''),
	COALESCE(last_http_status, 0), COALESCE(last_response, ''), COALESCE(last_query, ''),
	COALESCE(cert_serial, ''), sent_at, created_at, updated_at`

// CreateWithNextSequence toma el número y crea el documento en una sola
// transacción. Un conflicto de numeración o de serialización repite todo; un
// conflicto por sale_id devuelve domain.ErrDuplicate.
func (r *FiscalDocumentRepo) CreateWithNextSequence(ctx context.Context, doc *entity.FiscalDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	qr, err := json.Marshal(doc.QR)
	if err != nil {
		return fmt.Errorf("serializar QR: %w", err)
	}

	retry := func(err error) bool {
		if isSerializationFailure(err) {
			return true
		}
		return isUniqueViolation(err) && constraintName(err) != saleUniqueConstraint
	}

	var seq int64
	err = r.tx.RunRetry(ctx, retry, func(tx pgx.Tx) error {
		next, err := nextSequence(ctx, tx, doc.TimbradoNumber, doc.Establishment, doc.PointOfSale)
		if err != nil {
			return err
		}
		number := sifen.FormatDocumentNumber(doc.Establishment, doc.PointOfSale, next)
		_, err = tx.Exec(ctx, `
			INSERT INTO fiscal_documents (
				id, sale_id, document_type, timbrado_number, timbrado_from, timbrado_to,
				establishment, point_of_sale, sequence, document_number, security_code,
				cdc, issued_at, total, total_vat, qr, state, attempts, environment,
				created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
			doc.ID, doc.SaleID, doc.DocumentType, doc.TimbradoNumber, dateOrNil(doc.TimbradoFrom), dateOrNil(doc.TimbradoTo),
			doc.Establishment, doc.PointOfSale, next, number, doc.SecurityCode,
			nullIfEmpty(doc.CDC), doc.IssuedAt, doc.Total, doc.TotalVat, qr, doc.State, doc.Attempts, nullIfEmpty(doc.Environment),
			doc.CreatedAt, doc.UpdatedAt,
		)
		if err != nil {
			return err
		}
		seq = next
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) && constraintName(err) == saleUniqueConstraint {
			return fmt.Errorf("venta %s: %w", doc.SaleID, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert fiscal document: %w", err)
	}
	doc.Sequence = seq
	doc.DocumentNumber = sifen.FormatDocumentNumber(doc.Establishment, doc.PointOfSale, seq)
	return nil
}

// nextSequence incrementa el contador con bloqueo de fila; el valor solo queda
// consumido si la transacción confirma.
func nextSequence(ctx context.Context, q Querier, timbrado, establishment, pointOfSale string) (int64, error) {
	var next int64
	err := q.QueryRow(ctx, `
		INSERT INTO fiscal_sequences (timbrado_number, establishment, point_of_sale, last_value)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (timbrado_number, establishment, point_of_sale)
		DO UPDATE SET last_value = fiscal_sequences.last_value + 1
		RETURNING last_value`,
		timbrado, establishment, pointOfSale,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("siguiente número: %w", err)
	}
	return next, nil
}

// GetByID obtiene un documento por ID.
func (r *FiscalDocumentRepo) GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	return r.getOne(ctx, `SELECT `+fiscalColumns+` FROM fiscal_documents WHERE id = $1`, id)
}

// GetBySaleID obtiene el documento de una venta.
func (r *FiscalDocumentRepo) GetBySaleID(ctx context.Context, saleID string) (*entity.FiscalDocument, error) {
	return r.getOne(ctx, `SELECT `+fiscalColumns+` FROM fiscal_documents WHERE sale_id = $1`, saleID)
}

func (r *FiscalDocumentRepo) getOne(ctx context.Context, query string, arg string) (*entity.FiscalDocument, error) {
	doc, err := scanFiscalDocument(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get fiscal document: %w", err)
	}
	return doc, nil
}

// Update persiste el resultado de una emisión. El CDC se escribe una sola vez:
// si ya hay uno guardado se conserva.
func (r *FiscalDocumentRepo) Update(ctx context.Context, doc *entity.FiscalDocument) error {
	qr, err := json.Marshal(doc.QR)
	if err != nil {
		return fmt.Errorf("serializar QR: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE fiscal_documents SET
			cdc = COALESCE(NULLIF(cdc, ''), $2),
			total = $3, total_vat = $4,
			xml_path = $5, signed_xml_path = $6, pdf_path = $7, pdf_hash = $8,
			qr = $9, qr_url = $10,
			state = $11, attempts = $12, environment = $13,
			last_http_status = $14, last_response = $15,
			cert_serial = $16, sent_at = $17, updated_at = $18
		WHERE id = $1`,
		doc.ID, nullIfEmpty(doc.CDC), doc.Total, doc.TotalVat,
		nullIfEmpty(doc.XMLPath), nullIfEmpty(doc.SignedXMLPath), nullIfEmpty(doc.PDFPath), nullIfEmpty(doc.PDFHash),
		qr, nullIfEmpty(doc.QRURL),
		doc.State, doc.Attempts, nullIfEmpty(doc.Environment),
		doc.LastHTTPStatus, nullIfEmpty(doc.LastResponse),
		nullIfEmpty(doc.CertSerial), doc.SentAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update fiscal document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("documento %s: %w", doc.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *FiscalDocumentRepo) UpdateLastQuery(ctx context.Context, id, body string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE fiscal_documents SET last_query = $2, updated_at = $3 WHERE id = $1`,
		id, nullIfEmpty(body), at,
	)
	if err != nil {
		return fmt.Errorf("update last query: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("documento %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanFiscalDocument(row pgx.Row) (*entity.FiscalDocument, error) {
	var (
		d        entity.FiscalDocument
		from, to *time.Time
		qr       []byte
	)
	err := row.Scan(
		&d.ID, &d.SaleID, &d.DocumentType, &d.TimbradoNumber, &from, &to,
		&d.Establishment, &d.PointOfSale, &d.Sequence, &d.DocumentNumber, &d.SecurityCode,
		&d.CDC, &d.IssuedAt, &d.Total, &d.TotalVat,
		&d.XMLPath, &d.SignedXMLPath, &d.PDFPath, &d.PDFHash,
		&qr, &d.QRURL, &d.State, &d.Attempts, &d.Environment,
		&d.LastHTTPStatus, &d.LastResponse, &d.LastQuery,
		&d.CertSerial, &d.SentAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if from != nil {
		d.TimbradoFrom = *from
	}
	if to != nil {
		d.TimbradoTo = *to
	}
	if len(qr) > 0 {
		if err := json.Unmarshal(qr, &d.QR); err != nil {
			return nil, fmt.Errorf("QR guardado ilegible: %w", err)
		}
	}
	return &d, nil
}

func dateOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
