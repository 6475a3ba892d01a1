package fiscal

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sifen/internal/domain"
	"github.com/jhoicas/facturacion-sifen/internal/domain/entity"
	"github.com/jhoicas/facturacion-sifen/internal/domain/geo"
	rules "github.com/jhoicas/facturacion-sifen/internal/domain/sifen"
	infrasifen "github.com/jhoicas/facturacion-sifen/internal/infrastructure/sifen"
	"github.com/jhoicas/facturacion-sifen/pkg/sifen"
)

// BuilderConfig datos fijos del emisor y valores por defecto.
type BuilderConfig struct {
	Issuer         entity.Issuer
	DefaultVatRate int    // se usa cuando la venta no trae tasa por defecto
	DocumentType   int    // 0 = factura electrónica
	Version        string // vacío = 150
}

// Overrides ajustes puntuales sobre lo que se deduce de la venta.
type Overrides struct {
	TransactionType int       // 0 = venta de mercadería
	EmissionType    int       // 0 = normal
	SignedAt        time.Time // dFecFirma; cero = fecha de emisión
}

// BuildInput entrada de DocumentBuilder.Build. Document aporta lo que ya
// quedó fijado al crear el registro: número, código de seguridad, fecha de
// emisión y timbrado.
type BuildInput struct {
	Document  *entity.FiscalDocument
	Sale      *entity.Sale
	Customer  *entity.Customer // nil = consumidor final
	Products  map[string]*entity.Product
	Overrides Overrides
}

// DocumentBuilder arma el DocumentPayload a partir de la venta.
type DocumentBuilder struct {
	cfg      BuilderConfig
	resolver *geo.Resolver
}

// NewDocumentBuilder resolver puede ser nil: la dirección del receptor cae
// siempre en la ubicación del establecimiento.
func NewDocumentBuilder(cfg BuilderConfig, resolver *geo.Resolver) *DocumentBuilder {
	if cfg.DocumentType == 0 {
		cfg.DocumentType = sifen.DocTypeInvoice
	}
	if cfg.Version == "" {
		cfg.Version = sifen.DefaultVersion
	}
	return &DocumentBuilder{cfg: cfg, resolver: resolver}
}

// Build valida la venta y produce el payload listo para el codec XML.
func (b *DocumentBuilder) Build(in BuildInput) (*infrasifen.DocumentPayload, error) {
	doc := in.Document
	if doc == nil {
		return nil, domain.NewValidationError("documento", "registro fiscal nulo")
	}
	if doc.Sequence <= 0 {
		return nil, domain.NewValidationError("numero", "el documento no tiene número asignado")
	}
	if len(doc.SecurityCode) != 6 {
		return nil, domain.NewValidationError("codigo_seguridad", "debe tener 6 dígitos")
	}
	if err := rules.ValidateSale(in.Sale, in.Products); err != nil {
		return nil, err
	}
	sale := in.Sale

	emission := in.Overrides.EmissionType
	if emission == 0 {
		emission = sifen.EmissionNormal
	}
	transaction := in.Overrides.TransactionType
	if transaction == 0 {
		transaction = sifen.TransactionGoodsSale
	}

	issuer := b.cfg.Issuer
	cdc, err := sifen.BuildCDC(sifen.CDCParams{
		DocumentType:  b.cfg.DocumentType,
		RUC:           issuer.RUC,
		DV:            issuer.DV,
		Establishment: doc.Establishment,
		PointOfSale:   doc.PointOfSale,
		Number:        doc.Sequence,
		TaxpayerType:  issuer.TaxpayerType,
		IssuedAt:      doc.IssuedAt,
		EmissionType:  emission,
		SecurityCode:  doc.SecurityCode,
	})
	if err != nil {
		return nil, domain.NewValidationError("cdc", err.Error())
	}

	receiver, err := b.receiver(in.Customer)
	if err != nil {
		return nil, err
	}

	defaultRate := sale.DefaultVatRate
	if defaultRate == 0 {
		defaultRate = b.cfg.DefaultVatRate
	}
	items, lines, err := buildItems(sale, in.Products, defaultRate)
	if err != nil {
		return nil, err
	}
	bd := rules.ComputeBreakdown(lines)

	currency := strings.ToUpper(strings.TrimSpace(sale.Currency))
	if currency == "" {
		currency = sifen.CurrencyPYG
	}
	op := infrasifen.OperationData{TransactionType: transaction, Currency: currency}
	totals := infrasifen.TotalsData{
		Exempt:    bd.Exempt,
		TaxedAt5:  bd.TaxedAt5,
		TaxedAt10: bd.TaxedAt10,
		Total:     bd.Total(),
		VatAt5:    bd.VatAt5,
		VatAt10:   bd.VatAt10,
		TotalVat:  bd.TotalVat(),
		BaseAt5:   bd.BaseAt5(),
		BaseAt10:  bd.BaseAt10(),
		BaseTotal: bd.BaseAt5().Add(bd.BaseAt10()),
	}
	if currency != sifen.CurrencyPYG {
		op.ExchangeRate = sale.ExchangeRate
		totals.TotalPYG = decimal.NewNullDecimal(bd.Total().Mul(sale.ExchangeRate.Decimal).Round(0))
	}

	payment := infrasifen.PaymentData{Condition: sifen.ConditionCash, Type: sale.PaymentMethod, Amount: totals.Total}
	if sale.CreditSale {
		payment.Condition = sifen.ConditionCredit
	}
	if payment.Type == 0 {
		payment.Type = sifen.PaymentCash
	}

	signedAt := in.Overrides.SignedAt
	if signedAt.IsZero() {
		signedAt = doc.IssuedAt
	}

	return &infrasifen.DocumentPayload{
		Version:      b.cfg.Version,
		CDC:          cdc,
		SecurityCode: doc.SecurityCode,
		IssuedAt:     doc.IssuedAt,
		SignedAt:     signedAt,
		SystemCode:   1,
		DocumentType: b.cfg.DocumentType,
		EmissionType: emission,
		Timbrado: infrasifen.TimbradoData{
			Number:        doc.TimbradoNumber,
			ValidFrom:     doc.TimbradoFrom,
			Establishment: doc.Establishment,
			PointOfSale:   doc.PointOfSale,
			Sequence:      doc.Sequence,
		},
		Operation: op,
		Issuer:    b.issuerData(),
		Receiver:  receiver,
		Payment:   payment,
		Items:     items,
		Totals:    totals,
	}, nil
}

func (b *DocumentBuilder) issuerData() infrasifen.IssuerData {
	is := b.cfg.Issuer
	addr := is.Establishment.Address
	acts := make([]infrasifen.ActivityData, 0, len(is.Activities))
	for _, a := range is.Activities {
		acts = append(acts, infrasifen.ActivityData{Code: a.Code, Description: a.Description})
	}
	return infrasifen.IssuerData{
		RUC:          is.RUC,
		DV:           is.DV,
		TaxpayerType: is.TaxpayerType,
		RegimeType:   is.RegimeType,
		Name:         is.Name,
		TradeName:    is.TradeName,
		Address:      addr.Street,
		HouseNumber:  addr.HouseNumber,
		Location:     locationData(establishmentLocation(addr)),
		Phone:        is.Phone,
		Email:        is.Email,
		Activities:   acts,
	}
}

func (b *DocumentBuilder) receiver(c *entity.Customer) (infrasifen.ReceiverData, error) {
	if c.HasRUC() {
		if err := sifen.ValidateRUC(c.RUC); err != nil {
			return infrasifen.ReceiverData{}, domain.NewValidationError("cliente.ruc", err.Error())
		}
		base, dv, _ := sifen.SplitRUC(c.RUC)
		tp := c.TaxpayerType
		if tp == 0 {
			// Los RUC de personas jurídicas empiezan en 80.
			tp = sifen.TaxpayerPhysical
			if strings.HasPrefix(base, "80") {
				tp = sifen.TaxpayerLegal
			}
		}
		r := infrasifen.ReceiverData{
			Taxpayer:      true,
			OperationType: sifen.OperationB2B,
			TaxpayerType:  tp,
			RUC:           base,
			DV:            dv,
			Name:          c.Name,
			Phone:         c.Phone,
			Email:         c.Email,
		}
		b.receiverAddress(&r, c.Address)
		return r, nil
	}

	r := infrasifen.ReceiverData{
		Taxpayer:      false,
		OperationType: sifen.OperationB2C,
		RUC:           sifen.GenericRUC,
		DV:            sifen.GenericRUCDV,
		IDType:        sifen.GenericIDType,
		IDTypeDesc:    sifen.GenericIDTypeDes,
		IDNumber:      sifen.GenericIDNumber,
		Name:          sifen.GenericName,
	}
	if c == nil {
		return r, nil
	}
	if name := strings.TrimSpace(c.Name); name != "" {
		r.Name = name
	}
	if doc := strings.TrimSpace(c.DocumentNumber); doc != "" {
		r.IDType, r.IDTypeDesc, r.IDNumber = sifen.IDTypeCedula, sifen.IDTypeCedulaDesc, doc
	}
	r.Phone, r.Email = c.Phone, c.Email
	b.receiverAddress(&r, c.Address)
	return r, nil
}

// receiverAddress solo informa dirección cuando el cliente tiene calle; la
// ubicación se resuelve contra el catálogo con el establecimiento como último
// recurso.
func (b *DocumentBuilder) receiverAddress(r *infrasifen.ReceiverData, a entity.Address) {
	if strings.TrimSpace(a.Street) == "" {
		return
	}
	res := b.resolver.Resolve(geo.Hints{
		DepartmentCode:   a.DepartmentCode,
		DistrictCode:     a.DistrictCode,
		CityCode:         a.CityCode,
		NeighborhoodCode: a.NeighborhoodCode,
		DepartmentName:   a.DepartmentName,
		DistrictName:     a.DistrictName,
		CityName:         a.CityName,
	}, establishmentLocation(b.cfg.Issuer.Establishment.Address))
	loc := locationData(res.Location)
	r.Address = a.Street
	r.HouseNumber = a.HouseNumber
	r.Location = &loc
}

func buildItems(sale *entity.Sale, products map[string]*entity.Product, defaultRate int) ([]infrasifen.ItemData, []rules.TaxLine, error) {
	items := make([]infrasifen.ItemData, 0, len(sale.Items))
	lines := make([]rules.TaxLine, 0, len(sale.Items))
	for i, it := range sale.Items {
		p := products[it.ProductID]

		var price decimal.Decimal
		switch {
		case it.UnitPrice.Valid:
			price = it.UnitPrice.Decimal
		case p != nil && p.Price.Valid:
			price = p.Price.Decimal
		case it.Subtotal.Valid && it.Quantity.IsPositive():
			price = it.Subtotal.Decimal.Div(it.Quantity).Round(2)
		default:
			return nil, nil, domain.NewValidationError(fmt.Sprintf("items[%d]", i), fmt.Sprintf("producto %q sin precio", it.ProductID))
		}

		subtotal := it.Quantity.Mul(price)
		if it.Subtotal.Valid {
			subtotal = it.Subtotal.Decimal
		}

		var productRate *int
		var explicitUnit int
		word := it.UnitMeasure
		code, desc := it.ProductID, it.Description
		if p != nil {
			productRate = p.VatRate
			explicitUnit = p.UnitCode
			if word == "" {
				word = p.UnitMeasure
			}
			if p.Code != "" {
				code = p.Code
			}
			if desc == "" {
				desc = p.Name
			}
		}
		if it.UnitCode != 0 {
			explicitUnit = it.UnitCode
		}
		if desc == "" {
			desc = "Producto " + it.ProductID
		}

		rate := rules.ResolveVatRate(it.VatRate, productRate, defaultRate)
		base, vat := rules.SplitLine(subtotal, rate)
		item := infrasifen.ItemData{
			Code:           code,
			Description:    desc,
			UnitCode:       sifen.UnitCode(explicitUnit, word),
			Quantity:       it.Quantity,
			UnitPrice:      price,
			Total:          subtotal.Round(2),
			VatAffectation: sifen.VatExempt,
		}
		if rules.IsTaxed(rate) {
			item.VatAffectation = sifen.VatTaxed
			item.VatRate = rate
			item.Base = base.Round(2)
			item.Vat = vat.Round(2)
		} else {
			item.ExemptBase = subtotal.Round(2)
		}
		items = append(items, item)
		lines = append(lines, rules.TaxLine{Subtotal: subtotal, VatRate: rate})
	}
	return items, lines, nil
}

func establishmentLocation(a entity.Address) geo.Location {
	return geo.Location{
		DepartmentCode:   a.DepartmentCode,
		DepartmentName:   a.DepartmentName,
		DistrictCode:     a.DistrictCode,
		DistrictName:     a.DistrictName,
		CityCode:         a.CityCode,
		CityName:         a.CityName,
		NeighborhoodCode: a.NeighborhoodCode,
		NeighborhoodName: a.NeighborhoodName,
	}
}

func locationData(l geo.Location) infrasifen.LocationData {
	return infrasifen.LocationData{
		DepartmentCode: l.DepartmentCode,
		DepartmentName: l.DepartmentName,
		DistrictCode:   l.DistrictCode,
		DistrictName:   l.DistrictName,
		CityCode:       l.CityCode,
		CityName:       l.CityName,
	}
}
