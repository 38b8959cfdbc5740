package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/boddenberg/pj-cobranca-go/internal/cnab"
	"github.com/boddenberg/pj-cobranca-go/internal/domain"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/observability"
	"github.com/boddenberg/pj-cobranca-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var retornoTracer = otel.Tracer("service/retorno")

// maxRetornoSize bounds the retorno files read into memory.
const maxRetornoSize = 32 << 20

// RetornoService reads bank retorno files and settles the matching titulos.
type RetornoService struct {
	store    port.CobrancaStore
	registry *cnab.Registry
	metrics  *observability.Metrics
	logger   *zap.Logger
}

func NewRetornoService(store port.CobrancaStore, registry *cnab.Registry, metrics *observability.Metrics, logger *zap.Logger) *RetornoService {
	return &RetornoService{store: store, registry: registry, metrics: metrics, logger: logger}
}

// Processar parses a retorno. An explicit layout wins over the filename
// suffix and the record length. The bank is read from the header record.
// A malformed file gives an empty entry list, not an error.
func (s *RetornoService) Processar(ctx context.Context, r io.Reader, filename string, layout cnab.Layout) (*domain.RetornoResult, error) {
	_, span := retornoTracer.Start(ctx, "RetornoService.Processar")
	defer span.End()

	content, err := io.ReadAll(io.LimitReader(r, maxRetornoSize+1))
	if err != nil {
		return nil, fmt.Errorf("read retorno: %w", err)
	}
	if len(content) > maxRetornoSize {
		return nil, &domain.ErrValidation{Field: "arquivo", Message: "retorno file too large"}
	}

	det, err := cnab.Detect(content, filename, layout)
	if err != nil {
		return nil, err
	}
	if det.Bank == "" {
		return nil, &domain.ErrValidation{Field: "arquivo", Message: "bank code not found in header record"}
	}
	detected := det.Layout
	span.SetAttributes(
		attribute.String("bank", det.Bank),
		attribute.String("layout", string(detected)),
		attribute.Bool("fallback", det.Fallback),
	)

	var res cnab.Resolution
	if det.Fallback {
		res, err = s.registry.Fallback(det.Bank, detected)
	} else {
		res, err = s.registry.Resolve(det.Bank, detected)
	}
	if err != nil {
		return nil, err
	}
	entries, err := res.Adapter.ParseRetorno(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse retorno: %w", err)
	}
	s.metrics.AddRetornoEntries(string(res.Adapter.Bank()), string(detected), len(entries))

	s.logger.Info("retorno processed",
		zap.String("file", filename),
		zap.String("bank", string(res.Adapter.Bank())),
		zap.String("layout", string(detected)),
		zap.Int("entries", len(entries)),
	)
	return &domain.RetornoResult{
		Layout:  string(detected),
		Banco:   string(res.Adapter.Bank()),
		Entries: entries,
	}, nil
}

// ProcessarArquivo parses the retorno file at path.
func (s *RetornoService) ProcessarArquivo(ctx context.Context, path string, layout cnab.Layout) (*domain.RetornoResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open retorno: %w", err)
	}
	defer f.Close()
	return s.Processar(ctx, f, filepath.Base(path), layout)
}

// Aplicar settles the titulos of the given entries. Unknown nosso números
// and titulos already paid are skipped and counted as ignored.
func (s *RetornoService) Aplicar(ctx context.Context, entries []domain.RetornoEntry) (aplicados, ignorados int, err error) {
	ctx, span := retornoTracer.Start(ctx, "RetornoService.Aplicar")
	defer span.End()
	span.SetAttributes(attribute.Int("entries", len(entries)))

	for _, e := range entries {
		titulo, err := s.store.FindTituloByNossoNumero(ctx, e.NossoNumero)
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			s.logger.Warn("retorno entry without titulo", zap.String("nosso_numero", e.NossoNumero))
			ignorados++
			continue
		}
		if err != nil {
			return aplicados, ignorados, fmt.Errorf("titulo lookup: %w", err)
		}
		if titulo.Status == domain.TituloPago {
			ignorados++
			continue
		}
		if err := s.store.RegisterPayment(ctx, titulo.ID, e.ValorPago, e.DataPagamento); err != nil {
			return aplicados, ignorados, fmt.Errorf("register payment %s: %w", titulo.ID, err)
		}
		aplicados++
	}
	return aplicados, ignorados, nil
}
