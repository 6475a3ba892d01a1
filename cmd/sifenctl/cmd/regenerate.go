package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jhoicas/facturacion-sifen/internal/bootstrap"
)

var regenerateCmd = &cobra.Command{
	Use:   "regenerar <venta-id>",
	Short: "Regenerar XML y KuDE sin enviar a SIFEN",
	Long: `Vuelve a armar, firmar y renderizar el documento de la venta. Si la venta
está anulada el KuDE sale con la leyenda ANULADA. El estado fiscal no cambia.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			doc, err := app.Orchestrator.Regenerate(ctx, args[0])
			if err != nil {
				return err
			}
			return printDocument(doc)
		})
	},
}

func init() {
	rootCmd.AddCommand(regenerateCmd)
}
