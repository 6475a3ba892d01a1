package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jhoicas/facturacion-sifen/internal/bootstrap"
	"github.com/jhoicas/facturacion-sifen/pkg/config"
	"github.com/jhoicas/facturacion-sifen/pkg/logger"
)

var (
	version = "1.0.0"

	// Flags globales
	envFile string
	verbose bool
	asJSON  bool

	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sifenctl",
	Short: "Operación de documentos electrónicos SIFEN",
	Long: `sifenctl emite y consulta documentos electrónicos SIFEN desde la terminal,
usando la misma configuración (variables de entorno / .env) que la API.

Ejemplos:
  # Emitir la factura de una venta
  sifenctl emitir 6f1c...

  # Regenerar XML y KuDE de una venta anulada, sin enviar
  sifenctl regenerar 6f1c...

  # Consultar un documento en SIFEN
  sifenctl estado 9a2b...

  # Verificar la firma de un XML
  sifenctl verificar DE_001-001-0000001_firmado.xml

  # Revisar el certificado configurado
  sifenctl certificado --env-file .env.produccion`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("leer %s: %w", envFile, err)
			}
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		level := cfg.App.LogLevel
		if verbose {
			level = "debug"
		}
		log = logger.NewWriter(os.Stderr, level)
		return nil
	},
}

// Execute ejecuta el comando raíz.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Archivo .env a cargar antes de la configuración")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log en nivel debug")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Salida en JSON")
}

// withApp abre las dependencias completas (PostgreSQL incluido) para fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *bootstrap.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
