// Command cnabctl generates boletos and CNAB remessa files and reads retorno
// files from the command line.
package main

import (
	"os"

	"github.com/boddenberg/pj-cobranca-go/cmd/cnabctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
