package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/facturacion-sifen/internal/infrastructure/sifen/signer"
)

var verifyCmd = &cobra.Command{
	Use:   "verificar <xml...>",
	Short: "Verificar la firma XAdES-BES de uno o más XML firmados",
	Long: `Recalcula los digests de las referencias (DE y SignedProperties) y valida
el SignatureValue con el certificado embebido. No consulta revocación.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

type verifyResult struct {
	File    string `json:"archivo"`
	Valid   bool   `json:"valida"`
	Subject string `json:"firmante,omitempty"`
	Serial  string `json:"serial,omitempty"`
	Error   string `json:"error,omitempty"`
}

func runVerify(cmd *cobra.Command, args []string) error {
	results := make([]verifyResult, 0, len(args))
	failed := 0
	for _, path := range args {
		r := verifyResult{File: path}
		data, err := os.ReadFile(path)
		if err == nil {
			cert, verr := signer.Verify(data)
			if verr == nil {
				r.Valid = true
				r.Subject = cert.Subject.String()
				r.Serial = cert.SerialNumber.String()
			}
			err = verr
		}
		if err != nil {
			r.Error = err.Error()
			failed++
		}
		log.Debug().Str("archivo", path).Bool("valida", r.Valid).Msg("verificación")
		results = append(results, r)
	}

	if asJSON {
		if err := printJSON(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Printf("OK     %s (%s, serial %s)\n", r.File, r.Subject, r.Serial)
			} else {
				fmt.Printf("FALLA  %s: %s\n", r.File, r.Error)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d de %d archivos con firma inválida", failed, len(args))
	}
	return nil
}
