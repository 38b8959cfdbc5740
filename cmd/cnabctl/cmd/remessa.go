package cmd

import (
	"fmt"
	"os"

	"github.com/boddenberg/pj-cobranca-go/internal/cnab"
	"github.com/boddenberg/pj-cobranca-go/internal/domain"

	"github.com/spf13/cobra"
)

func newRemessaCmd(opts *options) *cobra.Command {
	var input, layout, output string

	c := &cobra.Command{
		Use:   "remessa",
		Short: "Build a CNAB remessa file from a YAML lote",
		Long: `Builds a remessa file for the account's bank. --layout overrides the
layout of the input file. The file is written ISO-8859-1 encoded to -o, or to
stdout when -o is omitted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var lote domain.LoteInput
			if err := readYAML(input, &lote); err != nil {
				return err
			}
			_, remessas, _ := opts.services()

			rf, err := remessas.GerarLote(cmd.Context(), &lote, layout)
			if err != nil {
				return err
			}
			data, err := cnab.EncodeFile(rf.Conteudo)
			if err != nil {
				return err
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write remessa: %w", err)
			}
			if !rf.Authoritative {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: bank %s has no CNAB %s adapter, fallback output written\n", rf.Banco, rf.Layout)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d records, %d titulos\n", output, rf.Registros, rf.Titulos)
			return nil
		},
	}

	c.Flags().StringVarP(&input, "file", "f", "", "lote YAML file")
	c.Flags().StringVar(&layout, "layout", "", "CNAB layout (240 or 400)")
	c.Flags().StringVarP(&output, "output", "o", "", "output file")
	_ = c.MarkFlagRequired("file")
	return c
}
