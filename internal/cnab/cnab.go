// Package cnab generates CNAB 240/400 remessa files and parses retorno
// files for the supported banks.
//
// Every bank shares the same fixed-width record structs; what differs per
// institution (layout versions, how the nosso número field is composed,
// species code) lives in a bankProfile. Banks or layouts without a
// concrete adapter resolve to the fallback adapter, whose output is
// flagged as non-authoritative.
package cnab

import (
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/boddenberg/pj-cobranca-go/internal/domain"
)

// BankCode is a supported institution, identified by its COMPE code.
type BankCode string

const (
	Itau     BankCode = "341"
	Bradesco BankCode = "237"
	Caixa    BankCode = "104"
	Sicoob   BankCode = "756"
	Sicredi  BankCode = "748"
)

// SupportedBanks lists every bank with concrete adapters.
var SupportedBanks = []BankCode{Itau, Bradesco, Caixa, Sicoob, Sicredi}

// Layout is the CNAB record width.
type Layout string

const (
	Layout240 Layout = "240"
	Layout400 Layout = "400"
)

// ParseLayout accepts "240" or "400" (surrounding blanks ignored).
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(strings.TrimSpace(s)); l {
	case Layout240, Layout400:
		return l, nil
	default:
		return "", &domain.ErrValidation{Field: "layout", Message: "must be 240 or 400"}
	}
}

// Width is the record length of the layout.
func (l Layout) Width() int {
	if l == Layout400 {
		return 400
	}
	return 240
}

// LayoutFromFilename returns the layout implied by a .240/.400 suffix.
func LayoutFromFilename(name string) (Layout, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".240":
		return Layout240, true
	case ".400":
		return Layout400, true
	}
	return "", false
}

// AdapterKind tells concrete output apart from the degraded fallback.
type AdapterKind int

const (
	KindConcrete AdapterKind = iota
	KindFallback
)

func (k AdapterKind) String() string {
	if k == KindFallback {
		return "fallback"
	}
	return "concrete"
}

// Item is one titulo of a remessa. Sacado may be nil when the payer could
// not be resolved; payer fields are then written as zeros/blanks.
type Item struct {
	Titulo domain.Titulo
	Sacado *domain.Sacado
}

// RemessaInput is everything an adapter needs to build one remessa.
type RemessaInput struct {
	Conta     domain.ContaBancaria
	Cedente   domain.Cedente
	Itens     []Item
	Sequencia int
	GeradoEm  time.Time
}

// Adapter builds remessa files and reads retorno files for one bank and layout.
type Adapter interface {
	Bank() BankCode
	Layout() Layout
	Kind() AdapterKind
	// GenerateRemessa returns the file content with CRLF line endings.
	GenerateRemessa(in RemessaInput) (string, error)
	// ParseRetorno reads an ISO-8859-1 retorno file. A malformed file yields
	// an empty list and a nil error; only read failures are returned.
	ParseRetorno(r io.Reader) ([]domain.RetornoEntry, error)
}
