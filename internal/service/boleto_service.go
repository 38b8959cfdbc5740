package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/boddenberg/pj-cobranca-go/internal/boleto"
	"github.com/boddenberg/pj-cobranca-go/internal/domain"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/observability"
	"github.com/boddenberg/pj-cobranca-go/internal/port"
	"github.com/boddenberg/pj-cobranca-go/internal/render"
	"github.com/boddenberg/pj-cobranca-go/internal/validation"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var boletoTracer = otel.Tracer("service/boleto")

// invalidBarcode is reported in ErrBoletoInvalido.Invalid when the built
// barcode fails its structural check.
const invalidBarcode = "codigo_barras"

// BoletoService validates titulos and produces their slips.
type BoletoService struct {
	store     port.CobrancaStore
	records   *Records
	renderer  port.SlipRenderer
	outputDir string
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewBoletoService creates the boleto service. Slips are written under
// <outputDir>/boletos.
func NewBoletoService(
	store port.CobrancaStore,
	records *Records,
	renderer port.SlipRenderer,
	outputDir string,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *BoletoService {
	return &BoletoService{
		store:     store,
		records:   records,
		renderer:  renderer,
		outputDir: outputDir,
		metrics:   metrics,
		logger:    logger,
	}
}

// ============================================================
// Validar (stateless)
// ============================================================

// Validar checks inline records without touching the store. Bad payload
// formats are errors; incomplete data is reported in the response.
func (s *BoletoService) Validar(ctx context.Context, in *domain.BoletoInput) (*domain.ValidarResponse, error) {
	_, span := boletoTracer.Start(ctx, "BoletoService.Validar")
	defer span.End()

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	titulo, err := in.Titulo.ToDomain()
	if err != nil {
		return nil, err
	}

	conta := in.Conta.ToDomain()
	report := validation.Validate(in.Cedente.ToDomain(), in.Sacado.ToDomain(), conta, titulo)
	rules := validation.CheckBankRules(conta)
	s.countFailures(report, rules)

	span.SetAttributes(attribute.Bool("boleto.valid", report.OK() && rules.OK))
	return &domain.ValidarResponse{Report: report, BankRules: rules}, nil
}

// Decodificar reads a typed barcode or linha digitável.
func (s *BoletoService) Decodificar(ctx context.Context, input string) *domain.DecodedBarcode {
	_, span := boletoTracer.Start(ctx, "BoletoService.Decodificar")
	defer span.End()

	return boleto.Decode(input)
}

// ============================================================
// Gerar
// ============================================================

// Gerar builds the barcode and linha digitável of a stored titulo, renders
// the slip and records the result. Regenerating an unchanged titulo yields
// the same barcode and overwrites the same file.
func (s *BoletoService) Gerar(ctx context.Context, tituloID string) (*domain.BoletoResult, error) {
	ctx, span := boletoTracer.Start(ctx, "BoletoService.Gerar")
	defer span.End()
	span.SetAttributes(attribute.String("titulo.id", tituloID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("boleto.gerar", time.Since(start))
	}()

	titulo, err := s.store.GetTitulo(ctx, tituloID)
	if err != nil {
		return nil, fmt.Errorf("titulo fetch: %w", err)
	}
	if titulo.Status == domain.TituloCancelado {
		return nil, &domain.ErrConflict{Message: "titulo " + tituloID + " is cancelled"}
	}

	conta, err := s.records.Conta(ctx, titulo.ContaBancariaID)
	if err != nil {
		return nil, err
	}
	cedente, err := s.records.Cedente(ctx, titulo.CedenteID)
	if err != nil {
		return nil, err
	}
	sacado := domain.Sacado{}
	if sac, err := s.records.Sacado(ctx, titulo.SacadoID); err != nil {
		return nil, err
	} else if sac != nil {
		sacado = *sac
	}

	path := filepath.Join(s.outputDir, "boletos", tituloID+".pdf")
	res, err := s.emit(ctx, *titulo, cedente, sacado, conta, path)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveBoleto(ctx, tituloID, res.LinhaDigitavel, res.BoletoURL); err != nil {
		return nil, fmt.Errorf("save boleto: %w", err)
	}
	return res, nil
}

// Emitir builds and renders a slip from inline records without touching the
// store. It backs `cnabctl boleto`.
func (s *BoletoService) Emitir(ctx context.Context, in *domain.BoletoInput, path string) (*domain.BoletoResult, error) {
	ctx, span := boletoTracer.Start(ctx, "BoletoService.Emitir")
	defer span.End()

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	titulo, err := in.Titulo.ToDomain()
	if err != nil {
		return nil, err
	}
	return s.emit(ctx, titulo, in.Cedente.ToDomain(), in.Sacado.ToDomain(), in.Conta.ToDomain(), path)
}

// emit validates the records, builds barcode and linha and renders the slip to path.
func (s *BoletoService) emit(
	ctx context.Context,
	titulo domain.Titulo,
	cedente domain.Cedente,
	sacado domain.Sacado,
	conta domain.ContaBancaria,
	path string,
) (*domain.BoletoResult, error) {
	report := validation.Validate(cedente, sacado, conta, titulo)
	rules := validation.CheckBankRules(conta)
	if !report.OK() || !rules.OK {
		s.countFailures(report, rules)
		invalid := append([]string{}, report.Invalid...)
		if !report.Barcode.LenOK || !report.Barcode.DVOK {
			invalid = append(invalid, invalidBarcode)
		}
		s.logger.Warn("boleto rejected",
			zap.String("titulo_id", titulo.ID),
			zap.Strings("missing", report.Missing),
			zap.Strings("invalid", invalid),
			zap.Strings("rules", rules.Errors),
		)
		return nil, &domain.ErrBoletoInvalido{Missing: report.Missing, Invalid: invalid, Rules: rules.Errors}
	}

	codigo := report.Barcode.Codigo
	linha, err := boleto.LinhaDigitavel(codigo)
	if err != nil {
		return nil, fmt.Errorf("linha digitavel: %w", err)
	}

	slip := render.Slip{
		Titulo:         titulo,
		Cedente:        cedente,
		Sacado:         sacado,
		Conta:          conta,
		CodigoBarras:   codigo,
		LinhaDigitavel: linha,
		Processamento:  titulo.Emissao,
	}
	res, err := s.renderer.Render(ctx, slip, path)
	if err != nil {
		return nil, fmt.Errorf("render slip: %w", err)
	}
	s.metrics.IncrBoleto(conta.CodigoBanco, res.Kind)

	s.logger.Info("boleto generated",
		zap.String("titulo_id", titulo.ID),
		zap.String("bank", conta.CodigoBanco),
		zap.String("render", res.Kind),
		zap.String("path", res.Path),
	)

	return &domain.BoletoResult{
		TituloID:       titulo.ID,
		CodigoBarras:   codigo,
		LinhaDigitavel: linha,
		BoletoURL:      res.Path,
		RenderKind:     res.Kind,
		Validacao:      report,
	}, nil
}

// ============================================================
// Consultar / Cancelar
// ============================================================

func (s *BoletoService) Consultar(ctx context.Context, tituloID string) (*domain.Titulo, error) {
	ctx, span := boletoTracer.Start(ctx, "BoletoService.Consultar")
	defer span.End()

	return s.store.GetTitulo(ctx, tituloID)
}

// Cancelar cancels an unpaid titulo. Cancelling twice is a no-op.
func (s *BoletoService) Cancelar(ctx context.Context, tituloID string) (*domain.Titulo, error) {
	ctx, span := boletoTracer.Start(ctx, "BoletoService.Cancelar")
	defer span.End()

	titulo, err := s.store.GetTitulo(ctx, tituloID)
	if err != nil {
		return nil, err
	}
	switch titulo.Status {
	case domain.TituloPago:
		return nil, &domain.ErrConflict{Message: "titulo " + tituloID + " is already paid"}
	case domain.TituloCancelado:
		return titulo, nil
	}

	if err := s.store.UpdateTituloStatus(ctx, tituloID, domain.TituloCancelado); err != nil {
		return nil, fmt.Errorf("cancel titulo: %w", err)
	}
	s.logger.Info("titulo cancelled", zap.String("titulo_id", tituloID))

	titulo.Status = domain.TituloCancelado
	return titulo, nil
}

func (s *BoletoService) countFailures(report domain.ValidationReport, rules domain.BankRuleResult) {
	if len(report.Missing) > 0 {
		s.metrics.IncrValidationFailure("missing")
	}
	if len(report.Invalid) > 0 {
		s.metrics.IncrValidationFailure("invalid")
	}
	if !report.Barcode.LenOK || !report.Barcode.DVOK {
		s.metrics.IncrValidationFailure("barcode")
	}
	if !rules.OK {
		s.metrics.IncrValidationFailure("bank_rules")
	}
}
