package cnab

import (
	"fmt"
	"strings"

	"github.com/boddenberg/pj-cobranca-go/internal/domain"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/observability"

	"go.uber.org/zap"
)

// record is any fixed-width CNAB record.
type record interface {
	Encode(log *zap.Logger) (string, error)
}

// liquidation occurrence codes read from retorno files; other occurrences
// (entry confirmed, rejected, written off) carry no payment.
var liquidacao = map[string]bool{
	"06": true, // liquidação
	"17": true, // liquidação após baixa
}

// base holds what the 240 and 400 adapters of one bank share.
type base struct {
	profile bankProfile
	log     *zap.Logger
	metrics *observability.Metrics
}

func (b base) Bank() BankCode    { return b.profile.code }
func (b base) Kind() AdapterKind { return KindConcrete }

func (b base) account(c domain.ContaBancaria) Account {
	return Account{
		Banco:     b.profile.code,
		Agencia:   c.Agencia,
		AgenciaDV: c.AgenciaDV,
		Conta:     c.Conta,
		ContaDV:   c.ContaDV,
		Convenio:  c.Convenio,
	}
}

// malformed logs and counts a rejected retorno and returns the empty result.
func (b base) malformed(layout Layout, err error) []domain.RetornoEntry {
	b.log.Warn("malformed retorno file, no entries returned",
		zap.String("bank", string(b.profile.code)),
		zap.String("layout", string(layout)),
		zap.Error(err),
	)
	if b.metrics != nil {
		b.metrics.IncrMalformedRetorno(string(b.profile.code), string(layout))
	}
	return []domain.RetornoEntry{}
}

// encodeAll serializes the records, checking each one against the layout
// width, and joins them with CRLF.
func encodeAll(log *zap.Logger, width int, recs []record) (string, error) {
	var sb strings.Builder
	sb.Grow(len(recs) * (width + len(lineBreak)))

	for i, r := range recs {
		line, err := r.Encode(log)
		if err != nil {
			return "", fmt.Errorf("record %d: %w", i+1, err)
		}
		if len(line) != width {
			return "", fmt.Errorf("record %d: encoded %d chars, want %d", i+1, len(line), width)
		}
		sb.WriteString(line)
		sb.WriteString(lineBreak)
	}
	return sb.String(), nil
}

// payer returns the payer of an item or an empty one when unresolved.
func payer(it Item) domain.Sacado {
	if it.Sacado == nil {
		return domain.Sacado{}
	}
	return *it.Sacado
}
