package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/facturacion-sifen/internal/infrastructure/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrar",
	Short: "Aplicar las migraciones pendientes del esquema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return err
		}
		defer pool.Close()

		applied, err := postgres.Migrate(ctx, pool)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Println("esquema al día")
			return nil
		}
		for _, name := range applied {
			fmt.Printf("aplicada %s\n", name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
