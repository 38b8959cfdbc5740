package boleto

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/boddenberg/pj-cobranca-go/internal/domain"

	"github.com/shopspring/decimal"
)

// LinhaLength is the number of digits of a bank slip linha digitável.
const LinhaLength = 47

// LinhaDigitavel formats the human typable line of a barcode:
//
//	{b1}{dv1} {b2}{dv2} {b3}{dv3} {dv} {fator}{valor}
//
// with b1 = banco+moeda+campo livre[0:5], b2 = campo livre[5:15],
// b3 = campo livre[15:25]. Groups have 10, 11, 11, 1 and 14 digits.
// Banks validate this string as is; the spacing is part of the contract.
func LinhaDigitavel(barcode string) (string, error) {
	if _, err := Split(barcode); err != nil {
		return "", err
	}

	b1 := barcode[0:4] + barcode[19:24]
	b2 := barcode[24:34]
	b3 := barcode[34:44]

	var sb strings.Builder
	sb.Grow(LinhaLength + 4)
	sb.WriteString(b1)
	sb.WriteString(strconv.Itoa(Mod10(b1)))
	sb.WriteByte(' ')
	sb.WriteString(b2)
	sb.WriteString(strconv.Itoa(Mod10(b2)))
	sb.WriteByte(' ')
	sb.WriteString(b3)
	sb.WriteString(strconv.Itoa(Mod10(b3)))
	sb.WriteByte(' ')
	sb.WriteString(barcode[4:5])
	sb.WriteByte(' ')
	sb.WriteString(barcode[5:19])
	return sb.String(), nil
}

// ParseLinhaDigitavel rebuilds the barcode from a 47-digit line, checking
// the three block digits and the overall digit. Separators are ignored.
func ParseLinhaDigitavel(linha string) (string, error) {
	d := Digits(linha)
	if len(d) != LinhaLength {
		return "", &domain.ErrInvalidBarcode{Input: linha, Reason: fmt.Sprintf("linha digitável has %d digits, expected %d", len(d), LinhaLength)}
	}

	blocks := []struct {
		digits string
		dv     byte
		name   string
	}{
		{d[0:9], d[9], "campo 1"},
		{d[10:20], d[20], "campo 2"},
		{d[21:31], d[31], "campo 3"},
	}
	for _, b := range blocks {
		if strconv.Itoa(Mod10(b.digits))[0] != b.dv {
			return "", &domain.ErrInvalidBarcode{Input: linha, Reason: "check digit mismatch in " + b.name}
		}
	}

	barcode := d[0:4] + d[32:33] + d[33:47] + d[4:9] + d[10:20] + d[21:31]
	if !CheckDV(barcode) {
		return "", &domain.ErrInvalidBarcode{Input: linha, Reason: "overall check digit mismatch"}
	}
	return barcode, nil
}

// Decode reads a typed barcode (44 digits) or linha digitável (47 digits)
// and recovers bank, amount and due date. Soft problems are reported in
// ValidationErrors rather than returned as errors.
func Decode(input string) *domain.DecodedBarcode {
	clean := Digits(input)
	resp := &domain.DecodedBarcode{}

	var barcode string
	switch len(clean) {
	case LinhaLength:
		bc, err := ParseLinhaDigitavel(clean)
		if err != nil {
			resp.ValidationErrors = []string{err.Error()}
			return resp
		}
		barcode = bc
	case BarcodeLength:
		if !CheckDV(clean) {
			resp.ValidationErrors = []string{"overall check digit mismatch"}
			return resp
		}
		barcode = clean
	case 48:
		resp.ValidationErrors = []string{"arrecadação slips (48 digits) are not bank slips"}
		return resp
	default:
		resp.ValidationErrors = []string{
			fmt.Sprintf("input has %d digits, expected %d (barcode) or %d (linha digitável)", len(clean), BarcodeLength, LinhaLength),
		}
		return resp
	}

	c, _ := Split(barcode)
	linha, _ := LinhaDigitavel(barcode)

	resp.IsValid = true
	resp.CodigoBarras = barcode
	resp.LinhaDigitavel = linha
	resp.CodigoBanco = c.Banco
	if cents, err := decimal.NewFromString(c.Valor); err == nil {
		resp.Valor = cents.Shift(-2)
	}
	if fator, err := strconv.Atoi(c.Fator); err == nil && fator > 0 {
		resp.Vencimento = dateFromFator(fator).Format(domain.DateLayout)
	}
	return resp
}
