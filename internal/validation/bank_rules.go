package validation

import (
	"github.com/boddenberg/pj-cobranca-go/internal/boleto"
	"github.com/boddenberg/pj-cobranca-go/internal/domain"
)

// Rule codes returned by CheckBankRules.
const (
	RuleAgenciaCurta        = "agencia_curta"
	RuleContaCurta          = "conta_curta"
	RuleDVInvalido          = "dv_invalido"
	RuleCarteiraObrigatoria = "carteira_obrigatoria"
)

type bankRule func(domain.ContaBancaria) []string

var bankRules = map[string]bankRule{
	"104": caixaRules,
}

// CheckBankRules applies the institution specific rule set. Banks without
// rules always pass. Callers run it before generation to answer with a
// structured 400 instead of a generic failure.
func CheckBankRules(conta domain.ContaBancaria) domain.BankRuleResult {
	res := domain.BankRuleResult{OK: true, Errors: []string{}}
	rule, ok := bankRules[boleto.FitDigits(conta.CodigoBanco, 3)]
	if !ok {
		return res
	}
	res.Errors = append(res.Errors, rule(conta)...)
	res.OK = len(res.Errors) == 0
	return res
}

func caixaRules(c domain.ContaBancaria) []string {
	var errs []string
	if len(boleto.Digits(c.Agencia)) < 4 {
		errs = append(errs, RuleAgenciaCurta)
	}
	if len(boleto.Digits(c.Conta)) < 6 {
		errs = append(errs, RuleContaCurta)
	}
	if len(c.ContaDV) != 1 || boleto.Digits(c.ContaDV) != c.ContaDV {
		errs = append(errs, RuleDVInvalido)
	}
	if blank(c.Carteira) {
		errs = append(errs, RuleCarteiraObrigatoria)
	}
	return errs
}
