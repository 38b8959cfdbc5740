package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/boddenberg/pj-cobranca-go/internal/cnab"
	"github.com/boddenberg/pj-cobranca-go/internal/domain"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/observability"
	"github.com/boddenberg/pj-cobranca-go/internal/port"
	"github.com/boddenberg/pj-cobranca-go/internal/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var remessaTracer = otel.Tracer("service/remessa")

// RemessaService builds CNAB remessa files.
type RemessaService struct {
	store          port.CobrancaStore
	records        *Records
	registry       *cnab.Registry
	outputDir      string
	maxConcurrency int
	metrics        *observability.Metrics
	logger         *zap.Logger
	now            func() time.Time
}

// NewRemessaService creates the remessa service. Files are written under
// <outputDir>/remessa; sacados are loaded with at most maxConcurrency
// parallel store calls.
func NewRemessaService(
	store port.CobrancaStore,
	records *Records,
	registry *cnab.Registry,
	outputDir string,
	maxConcurrency int,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *RemessaService {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &RemessaService{
		store:          store,
		records:        records,
		registry:       registry,
		outputDir:      outputDir,
		maxConcurrency: maxConcurrency,
		metrics:        metrics,
		logger:         logger,
		now:            time.Now,
	}
}

// WithClock overrides the generation timestamp source.
func (s *RemessaService) WithClock(now func() time.Time) *RemessaService {
	s.now = now
	return s
}

// Gerar resolves the adapter for the account's bank and builds the file
// content. Nothing is written or persisted.
func (s *RemessaService) Gerar(ctx context.Context, layout cnab.Layout, in cnab.RemessaInput) (*domain.RemessaFile, error) {
	_, span := remessaTracer.Start(ctx, "RemessaService.Gerar")
	defer span.End()
	span.SetAttributes(
		attribute.String("bank", in.Conta.CodigoBanco),
		attribute.String("layout", string(layout)),
		attribute.Int("titulos", len(in.Itens)),
	)

	res, err := s.registry.Resolve(in.Conta.CodigoBanco, layout)
	if err != nil {
		return nil, err
	}
	if in.GeradoEm.IsZero() {
		in.GeradoEm = s.now()
	}

	content, err := res.Adapter.GenerateRemessa(in)
	if err != nil {
		return nil, fmt.Errorf("generate remessa: %w", err)
	}

	kind := res.Adapter.Kind()
	s.metrics.IncrRemessa(string(res.Adapter.Bank()), string(layout), kind.String())
	if !res.Authoritative() {
		s.logger.Warn("remessa generated by fallback adapter, not accepted by banks",
			zap.String("bank", string(res.Adapter.Bank())),
			zap.String("layout", string(layout)),
		)
	}

	return &domain.RemessaFile{
		ID:            uuid.NewString(),
		Banco:         string(res.Adapter.Bank()),
		Layout:        string(layout),
		Sequencia:     in.Sequencia,
		Registros:     countRecords(content),
		Titulos:       len(in.Itens),
		Authoritative: res.Authoritative(),
		Conteudo:      content,
		GeradoEm:      in.GeradoEm,
	}, nil
}

// GerarLote builds a remessa from an inline lote (cnabctl input files).
func (s *RemessaService) GerarLote(ctx context.Context, lote *domain.LoteInput, layout string) (*domain.RemessaFile, error) {
	if err := validation.Struct(lote); err != nil {
		return nil, err
	}
	if layout == "" {
		layout = lote.Layout
	}
	l, err := cnab.ParseLayout(layout)
	if err != nil {
		return nil, err
	}

	sacados := make(map[string]domain.Sacado, len(lote.Sacados))
	for _, sac := range lote.Sacados {
		sacados[sac.ID] = sac.ToDomain()
	}

	in := cnab.RemessaInput{
		Conta:     lote.Conta.ToDomain(),
		Cedente:   lote.Cedente.ToDomain(),
		Sequencia: lote.Sequencia,
		Itens:     make([]cnab.Item, 0, len(lote.Titulos)),
	}
	for _, ti := range lote.Titulos {
		t, err := ti.ToDomain()
		if err != nil {
			return nil, err
		}
		item := cnab.Item{Titulo: t}
		if sac, ok := sacados[ti.SacadoID]; ok {
			item.Sacado = &sac
		}
		in.Itens = append(in.Itens, item)
	}
	return s.Gerar(ctx, l, in)
}

// GerarBordero exports every open titulo of a bordero, writes the file to
// <outputDir>/remessa/<bank>_<layout>_<seq>.rem and marks the titulos as
// remetido. Each export produces a new file; an existing name gets a
// numeric suffix.
func (s *RemessaService) GerarBordero(ctx context.Context, borderoID, layout string) (*domain.RemessaFile, error) {
	ctx, span := remessaTracer.Start(ctx, "RemessaService.GerarBordero")
	defer span.End()
	span.SetAttributes(attribute.String("bordero.id", borderoID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("remessa.bordero", time.Since(start))
	}()

	l, err := cnab.ParseLayout(layout)
	if err != nil {
		return nil, err
	}

	bordero, err := s.store.GetBordero(ctx, borderoID)
	if err != nil {
		return nil, fmt.Errorf("bordero fetch: %w", err)
	}
	conta, err := s.records.Conta(ctx, bordero.ContaBancariaID)
	if err != nil {
		return nil, err
	}
	cedente, err := s.records.Cedente(ctx, bordero.CedenteID)
	if err != nil {
		return nil, err
	}

	all, err := s.store.ListTitulosByBordero(ctx, borderoID)
	if err != nil {
		return nil, fmt.Errorf("titulos fetch: %w", err)
	}
	titulos := make([]domain.Titulo, 0, len(all))
	for _, t := range all {
		if t.Status != domain.TituloCancelado && t.Status != domain.TituloPago {
			titulos = append(titulos, t)
		}
	}
	if len(titulos) == 0 {
		return nil, &domain.ErrValidation{Field: "bordero", Message: "no open titulos to export"}
	}

	itens, err := s.loadItens(ctx, titulos)
	if err != nil {
		return nil, err
	}

	rf, err := s.Gerar(ctx, l, cnab.RemessaInput{
		Conta:     conta,
		Cedente:   cedente,
		Itens:     itens,
		Sequencia: bordero.Sequencia,
	})
	if err != nil {
		return nil, err
	}

	path, err := s.write(rf)
	if err != nil {
		return nil, err
	}
	rf.Path = path

	for _, t := range titulos {
		if err := s.store.UpdateTituloStatus(ctx, t.ID, domain.TituloRemetido); err != nil {
			return nil, fmt.Errorf("mark titulo %s remetido: %w", t.ID, err)
		}
	}
	if err := s.store.SaveRemessa(ctx, borderoID, rf); err != nil {
		return nil, fmt.Errorf("save remessa: %w", err)
	}

	s.logger.Info("remessa generated",
		zap.String("bordero_id", borderoID),
		zap.String("bank", rf.Banco),
		zap.String("layout", rf.Layout),
		zap.Int("titulos", rf.Titulos),
		zap.Bool("authoritative", rf.Authoritative),
		zap.String("path", path),
	)
	return rf, nil
}

// loadItens fetches the payers concurrently. A missing sacado leaves the
// payer fields blank instead of failing the export.
func (s *RemessaService) loadItens(ctx context.Context, titulos []domain.Titulo) ([]cnab.Item, error) {
	itens := make([]cnab.Item, len(titulos))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)
	for i, t := range titulos {
		i, t := i, t
		itens[i].Titulo = t
		if t.SacadoID == "" {
			continue
		}
		g.Go(func() error {
			sac, err := s.records.Sacado(gCtx, t.SacadoID)
			var nf *domain.ErrNotFound
			if errors.As(err, &nf) {
				s.logger.Warn("sacado not found, exporting blank payer",
					zap.String("titulo_id", t.ID),
					zap.String("sacado_id", t.SacadoID),
				)
				return nil
			}
			if err != nil {
				return err
			}
			itens[i].Sacado = sac
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return itens, nil
}

func (s *RemessaService) write(rf *domain.RemessaFile) (string, error) {
	dir := filepath.Join(s.outputDir, "remessa")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create remessa directory: %w", err)
	}
	data, err := cnab.EncodeFile(rf.Conteudo)
	if err != nil {
		return "", fmt.Errorf("encode remessa: %w", err)
	}

	base := fmt.Sprintf("%s_%s_%d", rf.Banco, rf.Layout, rf.Sequencia)
	return writeUnique(dir, base, data, createExclusive)
}

func createExclusive(path string) (io.WriteCloser, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
}

// writeUnique stores data as base.rem, or base_N.rem when taken. A file that
// could not be fully written is removed.
func writeUnique(dir, base string, data []byte, open func(path string) (io.WriteCloser, error)) (string, error) {
	for n := 1; ; n++ {
		name := base + ".rem"
		if n > 1 {
			name = fmt.Sprintf("%s_%d.rem", base, n)
		}
		path := filepath.Join(dir, name)
		f, err := open(path)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create remessa file: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("write remessa file: %w", err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("close remessa file: %w", err)
		}
		return path, nil
	}
}

func countRecords(content string) int {
	content = strings.TrimRight(content, "\r\n")
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}
