package cnab

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/boddenberg/pj-cobranca-go/internal/boleto"
	"github.com/boddenberg/pj-cobranca-go/internal/domain"

	"github.com/shopspring/decimal"
)

type adapter240 struct {
	base
}

func (a adapter240) Layout() Layout { return Layout240 }

// GenerateRemessa builds file header, batch header, one P and one Q segment
// per titulo, batch trailer and file trailer.
func (a adapter240) GenerateRemessa(in RemessaInput) (string, error) {
	p := a.profile
	acc := a.account(in.Conta)

	recs := make([]record, 0, 4+2*len(in.Itens))
	recs = append(recs,
		FileHeader240{
			Account:   acc,
			Documento: in.Cedente.Documento,
			Empresa:   in.Cedente.Nome,
			NomeBanco: p.bankName(),
			GeradoEm:  in.GeradoEm,
			Sequencia: in.Sequencia,
			Versao:    p.fileVersion240,
		},
		BatchHeader240{
			Account:   acc,
			Documento: in.Cedente.Documento,
			Empresa:   in.Cedente.Nome,
			Versao:    p.batchVersion240,
			Sequencia: in.Sequencia,
			GravadoEm: in.GeradoEm,
		},
	)

	total := decimal.Zero
	for i, it := range in.Itens {
		t := it.Titulo
		nn, err := p.nossoNumeroField(in.Conta, t.NossoNumero)
		if err != nil {
			return "", fmt.Errorf("titulo %s: %w", t.Numero, err)
		}
		if t.Valor != nil {
			total = total.Add(*t.Valor)
		}

		s := payer(it)
		recs = append(recs,
			SegmentP{
				Account:     acc,
				SeqLote:     2*i + 1,
				NossoNumero: nn,
				NumeroDoc:   t.Numero,
				Vencimento:  t.Vencimento,
				Valor:       t.Valor,
				Especie:     p.especie,
				Emissao:     t.Emissao,
				UsoEmpresa:  t.NossoNumero,
			},
			SegmentQ{
				Banco:      p.code,
				SeqLote:    2*i + 2,
				Documento:  s.Documento,
				Nome:       s.Nome,
				Logradouro: s.Endereco.Logradouro,
				Bairro:     s.Endereco.Bairro,
				CEP:        s.Endereco.CEP,
				Cidade:     s.Endereco.Cidade,
				UF:         s.Endereco.UF,
			},
		)
	}

	recs = append(recs,
		BatchTrailer240{
			Banco:     p.code,
			Registros: 2 + 2*len(in.Itens),
			Titulos:   len(in.Itens),
			Total:     total,
		},
		FileTrailer240{
			Banco:     p.code,
			Lotes:     1,
			Registros: 4 + 2*len(in.Itens),
		},
	)

	return encodeAll(a.log, 240, recs)
}

func (a adapter240) ParseRetorno(r io.Reader) ([]domain.RetornoEntry, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	entries, err := parse240(lines, a.profile.nossoNumeroOffset())
	if err != nil {
		return a.malformed(Layout240, err), nil
	}
	return entries, nil
}

// parse240 reads settled titulos from segment T/U pairs. Any structural
// problem fails the whole file.
func parse240(lines []string, nnOffset int) ([]domain.RetornoEntry, error) {
	if len(lines) == 0 {
		return nil, errors.New("empty file")
	}
	for i, l := range lines {
		if len(l) != 240 {
			return nil, fmt.Errorf("line %d: %d chars, want 240", i+1, len(l))
		}
	}
	if lines[0][7] != '0' {
		return nil, errors.New("line 1: not a file header")
	}
	if lines[len(lines)-1][7] != '9' {
		return nil, errors.New("missing file trailer")
	}

	entries := []domain.RetornoEntry{}
	var pendingT string
	pendingLine := 0

	for i, l := range lines {
		switch l[7] {
		case '0', '1', '5', '9':
			if pendingT != "" {
				return nil, fmt.Errorf("line %d: segment T without segment U", pendingLine)
			}
		case '3':
			switch l[13] {
			case 'T':
				if pendingT != "" {
					return nil, fmt.Errorf("line %d: segment T without segment U", pendingLine)
				}
				pendingT, pendingLine = l, i+1
			case 'U':
				if pendingT == "" {
					return nil, fmt.Errorf("line %d: segment U without segment T", i+1)
				}
				e, keep, err := entry240(pendingT, l, nnOffset)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", i+1, err)
				}
				if keep {
					entries = append(entries, e)
				}
				pendingT = ""
			default:
				return nil, fmt.Errorf("line %d: unexpected segment %q", i+1, l[13])
			}
		default:
			return nil, fmt.Errorf("line %d: unknown record type %q", i+1, l[7])
		}
	}
	return entries, nil
}

// entry240 combines a T/U pair. keep is false for occurrences that are not
// payments.
func entry240(t, u string, nnOffset int) (domain.RetornoEntry, bool, error) {
	nn := t[37+nnOffset : 37+nnOffset+nossoNumeroWidth]
	if boleto.Digits(nn) != nn {
		return domain.RetornoEntry{}, false, fmt.Errorf("nosso número %q is not numeric", nn)
	}
	if !liquidacao[t[15:17]] {
		return domain.RetornoEntry{}, false, nil
	}
	valor, err := parseCents(u[77:92])
	if err != nil {
		return domain.RetornoEntry{}, false, fmt.Errorf("valor pago: %w", err)
	}
	data, err := parseDate(strings.TrimSpace(u[137:145]), dateLong)
	if err != nil {
		return domain.RetornoEntry{}, false, fmt.Errorf("data ocorrência: %w", err)
	}
	return domain.RetornoEntry{NossoNumero: nn, ValorPago: valor, DataPagamento: data}, true, nil
}
