package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/facturacion-sifen/internal/infrastructure/sifen/signer"
)

var certCmd = &cobra.Command{
	Use:   "certificado",
	Short: "Diagnóstico del certificado de firma configurado",
	Long: `Carga SIFEN_CERT_PATH con SIFEN_CERT_PASS tal como lo hace la emisión y
muestra sujeto, emisor, serial y vigencia. Falla si no se puede abrir el
archivo, la contraseña no corresponde o el certificado está vencido.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := signer.NewSigningContext(cfg.SIFEN.CertPath, cfg.SIFEN.CertPass).Material()
		if err != nil {
			return err
		}
		m := km.Metadata
		if asJSON {
			if err := printJSON(m); err != nil {
				return err
			}
		} else {
			fmt.Printf("Archivo:  %s\n", cfg.SIFEN.CertPath)
			fmt.Printf("Sujeto:   %s\n", m.Subject)
			fmt.Printf("Emisor:   %s\n", m.Issuer)
			fmt.Printf("Serial:   %s (0x%s)\n", m.Serial, m.SerialHex)
			fmt.Printf("Vigencia: %s a %s\n", m.NotBefore.Format(time.DateOnly), m.NotAfter.Format(time.DateOnly))
			fmt.Printf("Cadena:   %d certificado(s)\n", len(km.Chain))
		}
		now := time.Now()
		switch {
		case now.Before(m.NotBefore):
			return fmt.Errorf("el certificado todavía no es válido (desde %s)", m.NotBefore.Format(time.DateOnly))
		case now.After(m.NotAfter):
			return fmt.Errorf("el certificado venció el %s", m.NotAfter.Format(time.DateOnly))
		}
		if days := int(m.NotAfter.Sub(now).Hours() / 24); days < 30 {
			log.Warn().Int("dias", days).Msg("el certificado vence pronto")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(certCmd)
}
