package cnab

import (
	"errors"
	"fmt"
	"io"

	"github.com/boddenberg/pj-cobranca-go/internal/boleto"
	"github.com/boddenberg/pj-cobranca-go/internal/domain"
)

type adapter400 struct {
	base
}

func (a adapter400) Layout() Layout { return Layout400 }

// GenerateRemessa builds a header, one detail per titulo and a trailer whose
// sequence equals the total record count.
func (a adapter400) GenerateRemessa(in RemessaInput) (string, error) {
	p := a.profile
	acc := a.account(in.Conta)

	recs := make([]record, 0, 2+len(in.Itens))
	recs = append(recs, Header400{
		Account:   acc,
		Empresa:   in.Cedente.Nome,
		NomeBanco: p.bankName(),
		GeradoEm:  in.GeradoEm,
		Sequencia: in.Sequencia,
	})

	for i, it := range in.Itens {
		t := it.Titulo
		nn, err := p.nossoNumeroField(in.Conta, t.NossoNumero)
		if err != nil {
			return "", fmt.Errorf("titulo %s: %w", t.Numero, err)
		}
		s := payer(it)
		recs = append(recs, Detail400{
			Account:     acc,
			Documento:   in.Cedente.Documento,
			Carteira:    in.Conta.Carteira,
			UsoEmpresa:  t.NossoNumero,
			NossoNumero: nn,
			NumeroDoc:   t.Numero,
			Vencimento:  t.Vencimento,
			Valor:       t.Valor,
			Especie:     p.especie,
			Emissao:     t.Emissao,

			SacadoDocumento:  s.Documento,
			SacadoNome:       s.Nome,
			SacadoLogradouro: s.Endereco.Logradouro,
			SacadoBairro:     s.Endereco.Bairro,
			SacadoCEP:        s.Endereco.CEP,
			SacadoCidade:     s.Endereco.Cidade,
			SacadoUF:         s.Endereco.UF,

			Sequencia: i + 2,
		})
	}

	recs = append(recs, Trailer400{Sequencia: len(in.Itens) + 2})
	return encodeAll(a.log, 400, recs)
}

func (a adapter400) ParseRetorno(r io.Reader) ([]domain.RetornoEntry, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	entries, err := parse400(lines, a.profile.nossoNumeroOffset())
	if err != nil {
		return a.malformed(Layout400, err), nil
	}
	return entries, nil
}

// parse400 reads settled titulos from detail records: nosso número inside
// 63-82, occurrence 109-110, occurrence date 111-116 (DDMMAA) and amount
// paid 254-266.
func parse400(lines []string, nnOffset int) ([]domain.RetornoEntry, error) {
	if len(lines) < 2 {
		return nil, errors.New("file has no header and trailer")
	}
	for i, l := range lines {
		if len(l) != 400 {
			return nil, fmt.Errorf("line %d: %d chars, want 400", i+1, len(l))
		}
	}
	if lines[0][0] != '0' {
		return nil, errors.New("line 1: not a header record")
	}
	last := len(lines) - 1
	if lines[last][0] != '9' {
		return nil, errors.New("missing trailer record")
	}

	entries := []domain.RetornoEntry{}
	for i, l := range lines[1:last] {
		if l[0] != '1' {
			return nil, fmt.Errorf("line %d: unexpected record type %q", i+2, l[0])
		}
		nn := l[62+nnOffset : 62+nnOffset+nossoNumeroWidth]
		if boleto.Digits(nn) != nn {
			return nil, fmt.Errorf("line %d: nosso número %q is not numeric", i+2, nn)
		}
		if !liquidacao[l[108:110]] {
			continue
		}
		data, err := parseDate(l[110:116], dateShort)
		if err != nil {
			return nil, fmt.Errorf("line %d: data ocorrência: %w", i+2, err)
		}
		valor, err := parseCents(l[253:266])
		if err != nil {
			return nil, fmt.Errorf("line %d: valor pago: %w", i+2, err)
		}
		entries = append(entries, domain.RetornoEntry{NossoNumero: nn, ValorPago: valor, DataPagamento: data})
	}
	return entries, nil
}
