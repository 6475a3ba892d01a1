package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/facturacion-sifen/internal/application/dto"
	"github.com/jhoicas/facturacion-sifen/internal/bootstrap"
)

var statusCmd = &cobra.Command{
	Use:   "estado <documento-id>",
	Short: "Consultar un documento en SIFEN por su CDC",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			doc, res, err := app.Status.QueryStatus(ctx, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(dto.StatusResponse{
					DocumentID: doc.ID,
					CDC:        doc.CDC,
					OK:         res.OK,
					HTTPStatus: res.HTTPStatus,
					Response:   res.RawBody,
				})
			}
			fmt.Printf("CDC:    %s\n", doc.CDC)
			fmt.Printf("HTTP:   %d\n", res.HTTPStatus)
			if res.Truncated {
				fmt.Println("(respuesta truncada)")
			}
			fmt.Println(res.RawBody)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
