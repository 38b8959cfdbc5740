package cmd

import (
	"encoding/json"
	"errors"

	"github.com/boddenberg/pj-cobranca-go/internal/domain"

	"github.com/spf13/cobra"
)

func newBoletoCmd(opts *options) *cobra.Command {
	var input, pdf string

	c := &cobra.Command{
		Use:   "boleto",
		Short: "Build a boleto from a YAML titulo file",
		Long: `Validates the records in the input file, builds the barcode and linha
digitável and renders the slip. The result is printed as JSON.

Without --pdf the records are only validated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in domain.BoletoInput
			if err := readYAML(input, &in); err != nil {
				return err
			}
			boletos, _, _ := opts.services()
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if pdf == "" {
				resp, err := boletos.Validar(cmd.Context(), &in)
				if err != nil {
					return err
				}
				if err := enc.Encode(resp); err != nil {
					return err
				}
				if !resp.Report.OK() || !resp.BankRules.OK {
					return errors.New("boleto inválido")
				}
				return nil
			}

			res, err := boletos.Emitir(cmd.Context(), &in, pdf)
			if err != nil {
				var invalido *domain.ErrBoletoInvalido
				if errors.As(err, &invalido) {
					_ = enc.Encode(invalido)
				}
				return err
			}
			return enc.Encode(res)
		},
	}

	c.Flags().StringVarP(&input, "file", "f", "", "titulo YAML file")
	c.Flags().StringVar(&pdf, "pdf", "", "write the slip to this path")
	_ = c.MarkFlagRequired("file")
	return c
}
