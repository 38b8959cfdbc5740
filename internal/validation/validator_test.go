package validation_test

import (
	"testing"
	"time"

	"github.com/boddenberg/pj-cobranca-go/internal/domain"
	"github.com/boddenberg/pj-cobranca-go/internal/validation"

	"github.com/shopspring/decimal"
)

type inputs struct {
	cedente domain.Cedente
	sacado  domain.Sacado
	conta   domain.ContaBancaria
	titulo  domain.Titulo
}

func complete() inputs {
	valor := decimal.RequireFromString("123.45")
	return inputs{
		cedente: domain.Cedente{Nome: "Empresa XPTO Ltda", Documento: "12.345.678/0001-90"},
		sacado:  domain.Sacado{Nome: "Fulano de Tal", Documento: "123.456.789-09"},
		conta: domain.ContaBancaria{
			CodigoBanco: "341", Agencia: "1234", Conta: "56789012", ContaDV: "0", Carteira: "109",
		},
		titulo: domain.Titulo{
			Numero:      "000123",
			Vencimento:  time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
			Valor:       &valor,
			NossoNumero: "12345678901",
		},
	}
}

func (in inputs) validate() domain.ValidationReport {
	return validation.Validate(in.cedente, in.sacado, in.conta, in.titulo)
}

func TestValidate_CompleteInputs(t *testing.T) {
	r := complete().validate()

	if !r.OK() {
		t.Fatalf("expected OK report, got %+v", r)
	}
	if r.Barcode.Codigo != "34191031200000123451234567890121234567890109" {
		t.Errorf("unexpected barcode %s", r.Barcode.Codigo)
	}
	if !r.Barcode.LenOK || !r.Barcode.DVOK {
		t.Errorf("expected structural checks to pass: %+v", r.Barcode)
	}
}

func TestValidate_EachMissingField(t *testing.T) {
	cases := []struct {
		field string
		blank func(*inputs)
	}{
		{"cedente.nome", func(in *inputs) { in.cedente.Nome = "" }},
		{"cedente.documento", func(in *inputs) { in.cedente.Documento = "  " }},
		{"sacado.nome", func(in *inputs) { in.sacado.Nome = "" }},
		{"conta.codigo_banco", func(in *inputs) { in.conta.CodigoBanco = "" }},
		{"conta.agencia", func(in *inputs) { in.conta.Agencia = "" }},
		{"conta.conta", func(in *inputs) { in.conta.Conta = "" }},
		{"titulo.numero", func(in *inputs) { in.titulo.Numero = "" }},
		{"titulo.vencimento", func(in *inputs) { in.titulo.Vencimento = time.Time{} }},
		{"titulo.valor", func(in *inputs) { in.titulo.Valor = nil }},
	}

	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			in := complete()
			tc.blank(&in)

			r := in.validate()

			if len(r.Missing) != 1 || r.Missing[0] != tc.field {
				t.Errorf("expected missing [%s], got %v", tc.field, r.Missing)
			}
			if r.OK() {
				t.Error("expected report not OK")
			}
		})
	}
}

func TestValidate_ZeroAmountIsMissing(t *testing.T) {
	in := complete()
	zero := decimal.Zero
	in.titulo.Valor = &zero

	r := in.validate()
	if len(r.Missing) != 1 || r.Missing[0] != validation.FieldValor {
		t.Errorf("expected titulo.valor missing, got %v", r.Missing)
	}
}

func TestValidate_NegativeAndOversizedAmounts(t *testing.T) {
	for _, v := range []string{"-1.00", "100000000.00"} {
		in := complete()
		d := decimal.RequireFromString(v)
		in.titulo.Valor = &d

		r := in.validate()
		if len(r.Missing) != 0 {
			t.Errorf("%s: unexpected missing %v", v, r.Missing)
		}
		if len(r.Invalid) != 1 || r.Invalid[0] != validation.FieldValor {
			t.Errorf("%s: expected titulo.valor invalid, got %v", v, r.Invalid)
		}
	}
}

func TestValidate_IdentifiersWiderThanBarcodeSlot(t *testing.T) {
	cases := []struct {
		name  string
		set   func(*inputs)
		field string
	}{
		{"nosso numero 12 digits", func(in *inputs) { in.titulo.NossoNumero = "123456789012" }, validation.FieldNossoNumero},
		{"agencia 5 digits", func(in *inputs) { in.conta.Agencia = "12345" }, validation.FieldAgencia},
		{"conta 9 digits", func(in *inputs) { in.conta.Conta = "123456789" }, validation.FieldConta},
		{"formatted conta 9 digits", func(in *inputs) { in.conta.Conta = "12.345.678-9" }, validation.FieldConta},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := complete()
			tc.set(&in)

			r := in.validate()
			if r.OK() {
				t.Fatal("expected report not OK")
			}
			if len(r.Invalid) != 1 || r.Invalid[0] != tc.field {
				t.Errorf("expected %s invalid, got %v", tc.field, r.Invalid)
			}
		})
	}
}

func TestValidate_IdentifiersAtBarcodeWidth(t *testing.T) {
	cases := []struct {
		name string
		set  func(*inputs)
	}{
		{"nosso numero 11 digits", func(in *inputs) { in.titulo.NossoNumero = "99999999999" }},
		{"agencia 4 digits", func(in *inputs) { in.conta.Agencia = "9999" }},
		{"conta 8 digits", func(in *inputs) { in.conta.Conta = "99999999" }},
		{"leading zeros beyond width", func(in *inputs) { in.conta.Agencia = "001234" }},
		{"short nosso numero", func(in *inputs) { in.titulo.NossoNumero = "42" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := complete()
			tc.set(&in)

			if r := in.validate(); !r.OK() {
				t.Errorf("expected OK report, got %+v", r)
			}
		})
	}
}

func TestValidate_DoesNotMutateInputs(t *testing.T) {
	in := complete()
	before := *in.titulo.Valor
	_ = in.validate()

	if !in.titulo.Valor.Equal(before) || in.conta.Carteira != "109" || in.titulo.NossoNumero != "12345678901" {
		t.Error("validator mutated its inputs")
	}
}

func TestCheckBankRules_Caixa(t *testing.T) {
	cases := []struct {
		name  string
		conta domain.ContaBancaria
		want  []string
	}{
		{
			"valid",
			domain.ContaBancaria{CodigoBanco: "104", Agencia: "0001", Conta: "123456", ContaDV: "7", Carteira: "14"},
			nil,
		},
		{
			"everything wrong",
			domain.ContaBancaria{CodigoBanco: "104", Agencia: "12", Conta: "123", ContaDV: "X"},
			[]string{validation.RuleAgenciaCurta, validation.RuleContaCurta, validation.RuleDVInvalido, validation.RuleCarteiraObrigatoria},
		},
		{
			"missing dv",
			domain.ContaBancaria{CodigoBanco: "104", Agencia: "1234", Conta: "1234567", Carteira: "14"},
			[]string{validation.RuleDVInvalido},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := validation.CheckBankRules(tc.conta)
			if res.OK != (len(tc.want) == 0) {
				t.Errorf("expected OK=%v, got %v", len(tc.want) == 0, res.OK)
			}
			if len(res.Errors) != len(tc.want) {
				t.Fatalf("expected errors %v, got %v", tc.want, res.Errors)
			}
			for i := range tc.want {
				if res.Errors[i] != tc.want[i] {
					t.Errorf("expected errors %v, got %v", tc.want, res.Errors)
				}
			}
		})
	}
}

func TestCheckBankRules_OtherBanksPass(t *testing.T) {
	for _, code := range []string{"341", "237", "756", "748", "001"} {
		res := validation.CheckBankRules(domain.ContaBancaria{CodigoBanco: code, Agencia: "1"})
		if !res.OK || len(res.Errors) != 0 {
			t.Errorf("bank %s: expected no rules, got %+v", code, res)
		}
	}
}

func TestStruct(t *testing.T) {
	ok := domain.BoletoInput{
		Conta:  domain.ContaInput{CodigoBanco: "341"},
		Sacado: domain.SacadoInput{CEP: "01310-100", UF: "SP"},
		Titulo: domain.TituloInput{Vencimento: "2025-12-31", Valor: "10.50"},
	}
	if err := validation.Struct(ok); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}

	bad := ok
	bad.Titulo.Vencimento = "31/12/2025"
	err := validation.Struct(bad)
	verr, isValidation := err.(*domain.ErrValidation)
	if !isValidation {
		t.Fatalf("expected *domain.ErrValidation, got %T (%v)", err, err)
	}
	if verr.Field != "boletoinput.titulo.vencimento" {
		t.Errorf("unexpected field %q", verr.Field)
	}

	bad = ok
	bad.Sacado.CEP = "ABC"
	if err := validation.Struct(bad); err == nil {
		t.Error("expected documento rule to reject letters")
	}
}
