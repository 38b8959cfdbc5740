// Package cmd provides the cnabctl commands.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/boddenberg/pj-cobranca-go/internal/cnab"
	"github.com/boddenberg/pj-cobranca-go/internal/config"
	"github.com/boddenberg/pj-cobranca-go/internal/domain"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/cache"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/memstore"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/observability"
	"github.com/boddenberg/pj-cobranca-go/internal/render"
	"github.com/boddenberg/pj-cobranca-go/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// options are the global flags shared by every subcommand.
type options struct {
	envFile    string
	debug      bool
	assetsDir  string
	noFallback bool
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewRootCmd builds the cnabctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "cnabctl",
		Short: "Boleto and CNAB 240/400 tooling",
		Long: `cnabctl builds boletos and CNAB remessa files from YAML inputs and
reads bank retorno files.

Example:
  cnabctl boleto -f titulo.yaml --pdf boleto.pdf
  cnabctl remessa -f lote.yaml --layout 240 -o cobranca.rem
  cnabctl retorno --layout 400 CB010100.ret`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(opts.envFile); err != nil {
				return fmt.Errorf("load %s: %w", opts.envFile, err)
			}
			level := "warn"
			if opts.debug {
				level = "debug"
			}
			opts.logger = observability.NewLogger(level)
			opts.metrics = observability.NewMetrics()
			if opts.assetsDir == "" {
				opts.assetsDir = config.Load().AssetsDir
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&opts.assetsDir, "assets", "", "bank logo directory (default $ASSETS_DIR)")
	root.PersistentFlags().BoolVar(&opts.noFallback, "no-fallback", false, "fail instead of using fallback adapters")

	root.AddCommand(
		newBoletoCmd(opts),
		newRemessaCmd(opts),
		newRetornoCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// services wires the cobrança services over an empty in-memory store: the
// CLI works on inline records only.
func (o *options) services() (*service.BoletoService, *service.RemessaService, *service.RetornoService) {
	store := memstore.New()
	records := service.NewRecords(store, cache.New[domain.ContaBancaria](0), cache.New[domain.Cedente](0), o.metrics)

	var regOpts []cnab.Option
	if o.noFallback {
		regOpts = append(regOpts, cnab.WithoutFallback())
	}
	registry := cnab.NewRegistry(o.logger, o.metrics, regOpts...)

	boletos := service.NewBoletoService(store, records, render.NewSlipRenderer(o.assetsDir, o.logger), os.TempDir(), o.metrics, o.logger)
	remessas := service.NewRemessaService(store, records, registry, os.TempDir(), 1, o.metrics, o.logger)
	retornos := service.NewRetornoService(store, registry, o.metrics, o.logger)
	return boletos, remessas, retornos
}

func readYAML(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// tokenTTL is the default lifetime of tokens minted by `cnabctl token`.
const tokenTTL = time.Hour
