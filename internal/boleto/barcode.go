package boleto

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/boddenberg/pj-cobranca-go/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	// BarcodeLength is the number of digits of a bank slip barcode.
	BarcodeLength = 44
	// CurrencyReal is the currency code for BRL.
	CurrencyReal = "9"
	// DVIndex is the position of the overall check digit.
	DVIndex = 4

	valorDigits = 10
)

var hundred = decimal.NewFromInt(100)

// Components are the fields of a barcode in wire order.
type Components struct {
	Banco      string `json:"banco"`
	Moeda      string `json:"moeda"`
	DV         string `json:"dv"`
	Fator      string `json:"fator"`
	Valor      string `json:"valor"`
	CampoLivre string `json:"campo_livre"`
}

// BuildBarcode derives the 44-digit barcode of a titulo.
//
// Layout: banco(3) moeda(1) dv(1) fator(4) valor(10) campo livre(25), where
// the campo livre is agência(4) conta(8) nosso número(11) carteira(2).
// A nil or negative amount is encoded as zero; rejecting it is the
// validator's job.
func BuildBarcode(conta domain.ContaBancaria, t domain.Titulo) string {
	banco := FitDigits(conta.CodigoBanco, 3)
	fator := FatorVencimento(t.Vencimento)
	valor := ValorCentavos(t.Valor)
	campoLivre := CampoLivre(conta, t)

	semDV := banco + CurrencyReal + fator + valor + campoLivre
	dv := strconv.Itoa(Mod11(semDV))

	return banco + CurrencyReal + dv + fator + valor + campoLivre
}

// Widths of the identifiers in the campo livre.
const (
	AgenciaDigits     = 4
	ContaDigits       = 8
	NossoNumeroDigits = 11
	CarteiraDigits    = 2
)

// CampoLivre is the 25-digit bank area of the barcode.
func CampoLivre(conta domain.ContaBancaria, t domain.Titulo) string {
	return FitDigits(conta.Agencia, AgenciaDigits) +
		FitDigits(conta.Conta, ContaDigits) +
		FitDigits(t.NossoNumero, NossoNumeroDigits) +
		FitDigits(conta.Carteira, CarteiraDigits)
}

// DigitsFit reports whether the significant digits of s fit in n positions,
// i.e. FitDigits(s, n) drops nothing but leading zeros.
func DigitsFit(s string, n int) bool {
	return len(strings.TrimLeft(Digits(s), "0")) <= n
}

// ValorCentavos renders round(amount*100) as 10 digits.
func ValorCentavos(v *decimal.Decimal) string {
	if v == nil || v.IsNegative() {
		return "0000000000"
	}
	cents := v.Mul(hundred).Round(0).String()
	return FitDigits(cents, valorDigits)
}

// ValorFits reports whether the amount can be represented in the barcode.
func ValorFits(v decimal.Decimal) bool {
	return v.Mul(hundred).Round(0).LessThan(decimal.New(1, valorDigits))
}

// Split breaks a barcode into its fields.
func Split(barcode string) (Components, error) {
	if len(barcode) != BarcodeLength || Digits(barcode) != barcode {
		return Components{}, fmt.Errorf("barcode must have %d digits, got %q", BarcodeLength, barcode)
	}
	return Components{
		Banco:      barcode[0:3],
		Moeda:      barcode[3:4],
		DV:         barcode[4:5],
		Fator:      barcode[5:9],
		Valor:      barcode[9:19],
		CampoLivre: barcode[19:44],
	}, nil
}

// CheckDV recomputes the overall check digit from the other 43 digits.
func CheckDV(barcode string) bool {
	if len(barcode) != BarcodeLength || Digits(barcode) != barcode {
		return false
	}
	rest := barcode[:DVIndex] + barcode[DVIndex+1:]
	return strconv.Itoa(Mod11(rest)) == barcode[DVIndex:DVIndex+1]
}
