package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/facturacion-sifen/internal/application/dto"
	"github.com/jhoicas/facturacion-sifen/internal/bootstrap"
	"github.com/jhoicas/facturacion-sifen/internal/domain/entity"
)

var emitCmd = &cobra.Command{
	Use:   "emitir <venta-id>",
	Short: "Emitir (o reintentar) el documento electrónico de una venta",
	Long: `Crea el documento fiscal de la venta si no existe, arma el DE, lo firma,
genera el KuDE y lo envía a SIFEN. Volver a ejecutarlo sobre la misma venta
reutiliza número y CDC e incrementa los intentos.

Un fallo de comunicación con SIFEN no es error: el documento queda PENDIENTE.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			doc, err := app.Orchestrator.Emit(ctx, args[0])
			if err != nil {
				return err
			}
			return printDocument(doc)
		})
	},
}

func init() {
	rootCmd.AddCommand(emitCmd)
}

func printDocument(doc *entity.FiscalDocument) error {
	if asJSON {
		return printJSON(dto.FiscalDocumentFromEntity(doc))
	}
	fmt.Printf("Documento:   %s\n", doc.ID)
	fmt.Printf("Número:      %s\n", doc.DocumentNumber)
	fmt.Printf("CDC:         %s\n", doc.CDC)
	fmt.Printf("Estado:      %s (intentos: %d)\n", doc.State, doc.Attempts)
	if doc.LastHTTPStatus != 0 {
		fmt.Printf("HTTP SIFEN:  %d\n", doc.LastHTTPStatus)
	}
	fmt.Printf("XML firmado: %s\n", doc.SignedXMLPath)
	fmt.Printf("KuDE:        %s\n", doc.PDFPath)
	return nil
}
