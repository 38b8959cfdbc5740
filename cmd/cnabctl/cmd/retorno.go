package cmd

import (
	"encoding/json"

	"github.com/boddenberg/pj-cobranca-go/internal/cnab"

	"github.com/spf13/cobra"
)

func newRetornoCmd(opts *options) *cobra.Command {
	var layout string

	c := &cobra.Command{
		Use:   "retorno <arquivo>",
		Short: "Parse a CNAB retorno file",
		Long: `Parses a bank retorno file and prints its entries as JSON. Without
--layout the layout comes from the .240/.400 suffix or the record length.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var l cnab.Layout
			if layout != "" {
				var err error
				if l, err = cnab.ParseLayout(layout); err != nil {
					return err
				}
			}
			_, _, retornos := opts.services()

			res, err := retornos.ProcessarArquivo(cmd.Context(), args[0], l)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	c.Flags().StringVar(&layout, "layout", "", "CNAB layout (240 or 400)")
	return c
}
