package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/facturacion-sifen/internal/infrastructure/storage"
)

var cleanOlderThan time.Duration

var cleanCmd = &cobra.Command{
	Use:   "limpiar",
	Short: "Borrar temporales huérfanos del directorio de artefactos",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.NewFileStore(cfg.Storage.ArtifactsDir)
		if err != nil {
			return err
		}
		n, err := store.SweepTemp(cmd.Context(), cleanOlderThan)
		if err != nil {
			return err
		}
		fmt.Printf("%d temporales eliminados de %s\n", n, cfg.Storage.ArtifactsDir)
		return nil
	},
}

func init() {
	cleanCmd.Flags().DurationVar(&cleanOlderThan, "antiguedad", time.Hour, "Solo temporales más viejos que esto")
	rootCmd.AddCommand(cleanCmd)
}
