package cnab

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/boddenberg/pj-cobranca-go/internal/domain"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/observability"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// fallbackAdapter serves banks and layouts without a concrete adapter.
//
// Remessa output is "{layout}\n{bank}\n{nosso_numero}\n..." which keeps
// upstream flows working but is not accepted by any bank. Retorno input has
// the same shape; each nosso número line may carry ";valor;YYYY-MM-DD".
type fallbackAdapter struct {
	bank    BankCode
	layout  Layout
	log     *zap.Logger
	metrics *observability.Metrics
}

func (f fallbackAdapter) Bank() BankCode    { return f.bank }
func (f fallbackAdapter) Layout() Layout    { return f.layout }
func (f fallbackAdapter) Kind() AdapterKind { return KindFallback }

func (f fallbackAdapter) GenerateRemessa(in RemessaInput) (string, error) {
	lines := make([]string, 0, 2+len(in.Itens))
	lines = append(lines, string(f.layout), string(f.bank))
	for _, it := range in.Itens {
		lines = append(lines, strings.TrimSpace(it.Titulo.NossoNumero))
	}
	return strings.Join(lines, "\n"), nil
}

func (f fallbackAdapter) ParseRetorno(r io.Reader) ([]domain.RetornoEntry, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	entries, err := parseFallback(lines)
	if err != nil {
		f.log.Warn("malformed retorno file, no entries returned",
			zap.String("bank", string(f.bank)),
			zap.String("layout", string(f.layout)),
			zap.String("adapter", KindFallback.String()),
			zap.Error(err),
		)
		if f.metrics != nil {
			f.metrics.IncrMalformedRetorno(string(f.bank), string(f.layout))
		}
		return []domain.RetornoEntry{}, nil
	}
	return entries, nil
}

func parseFallback(lines []string) ([]domain.RetornoEntry, error) {
	if len(lines) < 2 {
		return nil, fmt.Errorf("expected layout and bank lines, got %d lines", len(lines))
	}
	if _, err := ParseLayout(lines[0]); err != nil {
		return nil, fmt.Errorf("line 1: %w", err)
	}

	entries := []domain.RetornoEntry{}
	for i, l := range lines[2:] {
		parts := strings.Split(strings.TrimSpace(l), ";")
		e := domain.RetornoEntry{NossoNumero: parts[0]}
		if len(parts) > 1 {
			v, err := decimal.NewFromString(parts[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: valor pago: %w", i+3, err)
			}
			e.ValorPago = v
		}
		if len(parts) > 2 {
			d, err := time.Parse(domain.DateLayout, parts[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: data pagamento: %w", i+3, err)
			}
			e.DataPagamento = d
		}
		entries = append(entries, e)
	}
	return entries, nil
}
