package cnab

import (
	"strconv"
	"strings"

	"github.com/boddenberg/pj-cobranca-go/internal/bank"
	"github.com/boddenberg/pj-cobranca-go/internal/boleto"
	"github.com/boddenberg/pj-cobranca-go/internal/domain"
)

// nossoNumeroWidth is the number of digits of the nosso número inside the
// 20 position identification field of both layouts.
const nossoNumeroWidth = 11

type dvRule int

const (
	dvNone dvRule = iota
	dvMod10
	dvMod11
)

// bankProfile is what makes one institution's files differ from another's.
type bankProfile struct {
	code BankCode

	fileVersion240  string // 3 digits, file header 164-166
	batchVersion240 string // 3 digits, batch header 14-16
	especie         string // 2 digits, species code (DM)

	// The 20 position nosso número field is prefix + nosso número (11) +
	// optional check digit, space padded. prefixWidth digits of the
	// carteira (or the convênio when prefixConvenio is set) come first.
	prefixWidth    int
	prefixConvenio bool
	dv             dvRule
}

var profiles = map[BankCode]bankProfile{
	Itau: {
		code: Itau, fileVersion240: "040", batchVersion240: "030", especie: "01",
		prefixWidth: 3, dv: dvMod10,
	},
	Bradesco: {
		code: Bradesco, fileVersion240: "084", batchVersion240: "042", especie: "02",
		prefixWidth: 3, dv: dvMod11,
	},
	Caixa: {
		code: Caixa, fileVersion240: "107", batchVersion240: "067", especie: "02",
		prefixWidth: 2,
	},
	Sicoob: {
		code: Sicoob, fileVersion240: "081", batchVersion240: "040", especie: "02",
		prefixWidth: 0, dv: dvMod11,
	},
	Sicredi: {
		code: Sicredi, fileVersion240: "081", batchVersion240: "040", especie: "03",
		prefixWidth: 5, prefixConvenio: true, dv: dvMod11,
	},
}

// nossoNumeroField composes the 20 position identification of a titulo.
// The 11 digit nosso número starts at offset nossoNumeroOffset.
func (p bankProfile) nossoNumeroField(conta domain.ContaBancaria, nossoNumero string) (string, error) {
	nn := boleto.Digits(nossoNumero)
	if len(nn) > nossoNumeroWidth {
		return "", &domain.ErrFieldOverflow{Record: "nosso_numero", Field: "nosso_numero", Width: nossoNumeroWidth, Value: nossoNumero}
	}
	nn = boleto.FitDigits(nn, nossoNumeroWidth)

	prefix := ""
	if p.prefixWidth > 0 {
		src := conta.Carteira
		if p.prefixConvenio {
			src = conta.Convenio
		}
		prefix = boleto.FitDigits(src, p.prefixWidth)
	}

	field := prefix + nn
	switch p.dv {
	case dvMod10:
		field += strconv.Itoa(boleto.Mod10(field))
	case dvMod11:
		field += strconv.Itoa(boleto.Mod11(field))
	}
	return field + strings.Repeat(" ", 20-len(field)), nil
}

// nossoNumeroOffset is the 0-based offset of the nosso número inside the
// identification field.
func (p bankProfile) nossoNumeroOffset() int {
	return p.prefixWidth
}

func (p bankProfile) bankName() string {
	return bank.CNABName(string(p.code))
}
