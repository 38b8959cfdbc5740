package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/boddenberg/pj-cobranca-go/internal/bank"
)

// TextRenderer writes a plain-text slip. It needs no drawing library and is
// the last resort when the PDF cannot be built.
type TextRenderer struct{}

func (TextRenderer) Render(s Slip, path string) (Result, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Result{}, fmt.Errorf("create slip directory: %w", err)
	}

	t := s.Titulo
	local := bank.DefaultLocalPagamento
	head := bank.Name(s.Conta.CodigoBanco) + " | " + s.Conta.CodigoBanco
	if info, ok := bank.Lookup(s.Conta.CodigoBanco); ok {
		head = info.Name + " | " + info.CodeWithDV()
		if info.LocalPagamento != "" {
			local = info.LocalPagamento
		}
	}

	var b strings.Builder
	line := func(label, value string) {
		fmt.Fprintf(&b, "%-28s %s\n", label+":", value)
	}

	fmt.Fprintf(&b, "%s | %s\n", head, s.LinhaDigitavel)
	b.WriteString(strings.Repeat("-", 80) + "\n")
	line("Local de pagamento", local)
	line("Vencimento", formatDate(t.Vencimento))
	line("Beneficiário", strings.TrimSpace(s.Cedente.Nome+"  "+s.Cedente.Documento))
	line("Agência/Código beneficiário", joinDV(s.Conta.Agencia, s.Conta.AgenciaDV)+" / "+joinDV(s.Conta.Conta, s.Conta.ContaDV))
	line("Data do documento", formatDate(t.Emissao))
	line("Número do documento", t.Numero)
	line("Espécie doc.", bank.EspecieDoc(s.Conta.CodigoBanco))
	line("Data processamento", formatDate(s.Processamento))
	line("Carteira", s.Conta.Carteira)
	line("Nosso número", t.NossoNumero)
	line("Valor do documento", formatValor(t.Valor))
	line("Pagador", strings.TrimSpace(s.Sacado.Nome+"  "+s.Sacado.Documento))
	line("Endereço", address(s.Sacado.Endereco))
	line("Código de barras", s.CodigoBarras)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return Result{}, fmt.Errorf("write text slip: %w", err)
	}
	return Result{Path: path, Kind: KindText}, nil
}
