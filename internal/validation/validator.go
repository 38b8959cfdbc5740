// Package validation checks that the records behind a boleto are complete
// and that the barcode built from them is structurally sound.
//
// Findings are returned as values; nothing here returns an error for bad
// user data.
package validation

import (
	"strings"

	"github.com/boddenberg/pj-cobranca-go/internal/boleto"
	"github.com/boddenberg/pj-cobranca-go/internal/domain"
)

// Required field paths, in report order.
const (
	FieldCedenteNome      = "cedente.nome"
	FieldCedenteDocumento = "cedente.documento"
	FieldSacadoNome       = "sacado.nome"
	FieldCodigoBanco      = "conta.codigo_banco"
	FieldAgencia          = "conta.agencia"
	FieldConta            = "conta.conta"
	FieldNumero           = "titulo.numero"
	FieldVencimento       = "titulo.vencimento"
	FieldValor            = "titulo.valor"
	FieldNossoNumero      = "titulo.nosso_numero"
)

// Validate reports missing required fields, invalid values and the
// structural integrity of the barcode built from the inputs.
func Validate(cedente domain.Cedente, sacado domain.Sacado, conta domain.ContaBancaria, titulo domain.Titulo) domain.ValidationReport {
	report := domain.ValidationReport{
		Missing: []string{},
		Invalid: []string{},
	}

	required := []struct {
		path  string
		blank bool
	}{
		{FieldCedenteNome, blank(cedente.Nome)},
		{FieldCedenteDocumento, blank(cedente.Documento)},
		{FieldSacadoNome, blank(sacado.Nome)},
		{FieldCodigoBanco, blank(conta.CodigoBanco)},
		{FieldAgencia, blank(conta.Agencia)},
		{FieldConta, blank(conta.Conta)},
		{FieldNumero, blank(titulo.Numero)},
		{FieldVencimento, titulo.Vencimento.IsZero()},
		{FieldValor, titulo.Valor == nil || titulo.Valor.IsZero()},
	}
	for _, r := range required {
		if r.blank {
			report.Missing = append(report.Missing, r.path)
		}
	}

	if v := titulo.Valor; v != nil && (v.IsNegative() || !boleto.ValorFits(*v)) {
		report.Invalid = append(report.Invalid, FieldValor)
	}

	// identifiers must fit their campo livre slot
	widths := []struct {
		path  string
		value string
		width int
	}{
		{FieldAgencia, conta.Agencia, boleto.AgenciaDigits},
		{FieldConta, conta.Conta, boleto.ContaDigits},
		{FieldNossoNumero, titulo.NossoNumero, boleto.NossoNumeroDigits},
	}
	for _, w := range widths {
		if !boleto.DigitsFit(w.value, w.width) {
			report.Invalid = append(report.Invalid, w.path)
		}
	}

	bc := boleto.BuildBarcode(conta, titulo)
	report.Barcode = domain.BarcodeCheck{
		Codigo: bc,
		LenOK:  len(bc) == boleto.BarcodeLength,
		DVOK:   boleto.CheckDV(bc),
	}
	return report
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
