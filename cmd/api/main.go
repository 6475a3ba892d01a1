package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	_ "github.com/jhoicas/facturacion-sifen/docs"
	"github.com/jhoicas/facturacion-sifen/internal/bootstrap"
	httpRouter "github.com/jhoicas/facturacion-sifen/internal/interfaces/http"
	"github.com/jhoicas/facturacion-sifen/pkg/config"
	"github.com/jhoicas/facturacion-sifen/pkg/logger"
)

// @title						Facturación SIFEN API
// @version					1.0
// @description				Emisión de documentos electrónicos SIFEN (Paraguay): armado, firma XAdES-BES, KuDE y envío.
// @BasePath					/
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
// @description				Bearer <token>
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("ambiente", cfg.SIFEN.Environment).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET no configurado")
	}

	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicialización")
	}
	defer app.Close()

	server := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.SIFEN.Timeout + 30*time.Second, // la emisión espera a SIFEN
		IdleTimeout:  time.Second * 60,
	})
	server.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	server.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturación SIFEN API",
	}))

	server.Get("/health", func(c *fiber.Ctx) error {
		pingCtx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()
		if err := app.Pool.Ping(pingCtx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(server, httpRouter.RouterDeps{
		Emitter:   app.Orchestrator,
		Artifacts: app.Artifacts,
		Status:    app.Status,
		Geo:       app.Geo,
		Logger:    log,
		JWTSecret: cfg.JWT.Secret,
		JWTIssuer: cfg.JWT.Issuer,
	})

	// Limpieza de temporales huérfanos de escrituras interrumpidas.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepTemp(sweepCtx, app, log)

	go func() {
		if err := server.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func sweepTemp(ctx context.Context, app *bootstrap.App, log *logger.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		if n, err := app.Store.SweepTemp(ctx, time.Hour); err != nil {
			log.Warn().Err(err).Msg("limpieza de temporales")
		} else if n > 0 {
			log.Info().Int("archivos", n).Msg("temporales eliminados")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
