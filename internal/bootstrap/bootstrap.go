// Package bootstrap arma el grafo de dependencias que comparten la API y la CLI.
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/facturacion-sifen/internal/application/fiscal"
	"github.com/jhoicas/facturacion-sifen/internal/domain/entity"
	"github.com/jhoicas/facturacion-sifen/internal/domain/geo"
	infrapdf "github.com/jhoicas/facturacion-sifen/internal/infrastructure/pdf"
	"github.com/jhoicas/facturacion-sifen/internal/infrastructure/postgres"
	"github.com/jhoicas/facturacion-sifen/internal/infrastructure/redislock"
	infrasifen "github.com/jhoicas/facturacion-sifen/internal/infrastructure/sifen"
	"github.com/jhoicas/facturacion-sifen/internal/infrastructure/sifen/signer"
	"github.com/jhoicas/facturacion-sifen/internal/infrastructure/storage"
	"github.com/jhoicas/facturacion-sifen/pkg/config"
	"github.com/jhoicas/facturacion-sifen/pkg/logger"
	"github.com/jhoicas/facturacion-sifen/pkg/sifen"
)

const dateLayout = "2006-01-02"

// App servicios listos para usar. Close libera pool y Redis.
type App struct {
	Config       *config.Config
	Log          *logger.Logger
	Pool         *pgxpool.Pool
	Store        *storage.FileStore
	Geo          *geo.Resolver
	Signing      *signer.SigningContext
	Transport    *infrasifen.Client
	Orchestrator *fiscal.Orchestrator
	Artifacts    *fiscal.ArtifactsUseCase
	Status       *fiscal.StatusUseCase

	closers []func()
}

// New conecta PostgreSQL (y Redis si hay URL) y construye los casos de uso.
// El certificado se carga recién en la primera firma.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	issuer, err := IssuerFromConfig(cfg.SIFEN)
	if err != nil {
		return nil, err
	}
	timbrado, err := TimbradoFromConfig(cfg.SIFEN)
	if err != nil {
		return nil, err
	}
	resolver, err := LoadGeo(cfg.Geo, log)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewFileStore(cfg.Storage.ArtifactsDir)
	if err != nil {
		return nil, fmt.Errorf("directorio de artefactos: %w", err)
	}

	app := &App{Config: cfg, Log: log, Store: store, Geo: resolver}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	app.Pool = pool
	app.closers = append(app.closers, pool.Close)

	var locker fiscal.Locker
	if cfg.Redis.Enabled() {
		client, err := redislock.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, func() { _ = client.Close() })
		ttl := redislock.TTLFor(cfg.Redis.LockTTL, cfg.SIFEN.Timeout)
		locker = redislock.New(client, ttl)
		log.Info().Dur("ttl", ttl).Msg("candado de emisión en Redis")
	}

	app.Signing = signer.NewSigningContext(cfg.SIFEN.CertPath, cfg.SIFEN.CertPass)
	app.Transport = NewTransport(cfg.SIFEN)

	docs := postgres.NewFiscalDocumentRepository(pool)
	app.Orchestrator = fiscal.NewOrchestrator(fiscal.Config{
		Environment: infrasifen.ParseEnvironment(cfg.SIFEN.Environment),
		Issuer:      issuer,
		Timbrado:    timbrado,
		CSC:         cfg.SIFEN.CSC,
		CSCID:       cfg.SIFEN.IDCSC,
	}, fiscal.Deps{
		Documents: docs,
		Sales:     postgres.NewSaleRepository(pool),
		Customers: postgres.NewCustomerRepository(pool),
		Products:  postgres.NewProductRepository(pool),
		Builder: fiscal.NewDocumentBuilder(fiscal.BuilderConfig{
			Issuer:         issuer,
			DefaultVatRate: cfg.SIFEN.DefaultVatRate,
			Version:        cfg.SIFEN.Version,
		}, resolver),
		Codec:     infrasifen.NewXMLCodec(),
		Signer:    signer.NewService(app.Signing),
		Transport: app.Transport,
		Store:     store,
		Renderer:  infrapdf.NewKuDERenderer(),
		Locker:    locker,
		Logger:    log,
	})
	app.Artifacts = fiscal.NewArtifactsUseCase(docs, store)
	app.Status = fiscal.NewStatusUseCase(docs, app.Transport, log)
	return app, nil
}

// Close libera recursos en orden inverso.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// NewTransport cliente SIFEN con los endpoints que sobreescribe la configuración.
func NewTransport(c config.SIFENConfig) *infrasifen.Client {
	return infrasifen.NewClient(infrasifen.ClientConfig{
		Endpoints: map[infrasifen.Environment]infrasifen.Endpoints{
			infrasifen.EnvCertification: {Reception: c.EndpointDECert, Query: c.EndpointConsultaCert},
			infrasifen.EnvProduction:    {Reception: c.EndpointDEProd, Query: c.EndpointConsultaProd},
		},
		Timeout: c.Timeout,
		RPS:     c.RPS,
	})
}

// LoadGeo sin ruta configurada el resolver queda vacío y toda dirección cae en
// la del establecimiento.
func LoadGeo(c config.GeoConfig, log *logger.Logger) (*geo.Resolver, error) {
	if strings.TrimSpace(c.Path) == "" {
		log.Warn().Msg("SIFEN_GEO_PATH vacío: sin catálogo geográfico")
		return geo.NewResolver(nil), nil
	}
	cat, err := geo.LoadCatalogFile(c.Path, c.Charset)
	if err != nil {
		return nil, fmt.Errorf("catálogo geográfico: %w", err)
	}
	log.Info().Int("ubicaciones", cat.Len()).Str("path", c.Path).Msg("catálogo geográfico cargado")
	return geo.NewResolver(cat), nil
}

// IssuerFromConfig datos del emisor. El RUC se valida con su dígito verificador.
func IssuerFromConfig(c config.SIFENConfig) (entity.Issuer, error) {
	base, dv, err := sifen.SplitRUC(c.RUC)
	if err != nil {
		return entity.Issuer{}, fmt.Errorf("SIFEN_RUC: %w", err)
	}
	if err := sifen.ValidateRUC(c.RUC); err != nil {
		return entity.Issuer{}, fmt.Errorf("SIFEN_RUC: %w", err)
	}
	is := entity.Issuer{
		RUC:          base,
		DV:           dv,
		Name:         c.BusinessName,
		TradeName:    c.TradeName,
		TaxpayerType: c.TaxpayerType,
		RegimeType:   c.RegimeType,
		Phone:        c.Phone,
		Email:        c.Email,
		Establishment: entity.Establishment{
			Code:        c.Establishment,
			PointOfSale: c.PointOfSale,
			Address: entity.Address{
				Street:         c.Street,
				HouseNumber:    c.HouseNumber,
				DepartmentCode: c.DepartmentCode,
				DepartmentName: c.DepartmentDesc,
				DistrictCode:   c.DistrictCode,
				DistrictName:   c.DistrictDesc,
				CityCode:       c.CityCode,
				CityName:       c.CityDesc,
			},
		},
	}
	if c.ActivityCode != "" {
		is.Activities = []entity.EconomicActivity{{Code: c.ActivityCode, Description: c.ActivityDesc}}
	}
	return is, nil
}

// TimbradoFromConfig fechas en YYYY-MM-DD. Un timbrado sin número no es error
// acá: la emisión lo rechaza con TIMBRADO_NO_CONFIGURADO.
func TimbradoFromConfig(c config.SIFENConfig) (entity.Timbrado, error) {
	t := entity.Timbrado{Number: strings.TrimSpace(c.Timbrado)}
	var err error
	if t.ValidFrom, err = parseDate("SIFEN_TIMBRADO_INICIO", c.TimbradoStart); err != nil {
		return entity.Timbrado{}, err
	}
	if t.ValidTo, err = parseDate("SIFEN_TIMBRADO_FIN", c.TimbradoEnd); err != nil {
		return entity.Timbrado{}, err
	}
	return t, nil
}

func parseDate(key, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: se espera AAAA-MM-DD: %w", key, err)
	}
	return t, nil
}
