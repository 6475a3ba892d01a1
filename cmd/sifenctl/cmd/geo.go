package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jhoicas/facturacion-sifen/internal/application/dto"
	"github.com/jhoicas/facturacion-sifen/internal/bootstrap"
)

var geoLimit int

var geoCmd = &cobra.Command{
	Use:   "geo",
	Short: "Catálogo geográfico de la SET",
}

var geoSearchCmd = &cobra.Command{
	Use:   "buscar <texto>",
	Short: "Buscar ciudades por nombre (sin distinguir tildes ni mayúsculas)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := bootstrap.LoadGeo(cfg.Geo, log)
		if err != nil {
			return err
		}
		found := resolver.Search(strings.Join(args, " "), geoLimit)
		if asJSON {
			return printJSON(dto.LocationsFromGeo(found))
		}
		if len(found) == 0 {
			fmt.Println("sin resultados")
			return nil
		}
		for _, l := range found {
			fmt.Printf("%d/%d/%d  %s\n", l.DepartmentCode, l.DistrictCode, l.CityCode, l.Label())
		}
		return nil
	},
}

func init() {
	geoSearchCmd.Flags().IntVarP(&geoLimit, "limit", "n", 20, "Máximo de resultados")
	geoCmd.AddCommand(geoSearchCmd)
	rootCmd.AddCommand(geoCmd)
}
