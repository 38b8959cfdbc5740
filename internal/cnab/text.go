package cnab

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/boddenberg/pj-cobranca-go/internal/boleto"
	"github.com/boddenberg/pj-cobranca-go/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const lineBreak = "\r\n"

// foldASCII strips accents and replaces anything outside printable ASCII
// with a space, one rune for one byte, so fixed positions survive.
func foldASCII(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}))
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return ' '
		}
		return r
	}, out)
}

// normalizeAlpha prepares free text for an alphanumeric CNAB field.
func normalizeAlpha(s string) string {
	return strings.ToUpper(foldASCII(s))
}

// EncodeFile converts generated content to the ISO-8859-1 bytes written to disk.
func EncodeFile(content string) ([]byte, error) {
	out, _, err := transform.String(charmap.ISO8859_1.NewEncoder(), content)
	if err != nil {
		return nil, fmt.Errorf("encode ISO-8859-1: %w", err)
	}
	return []byte(out), nil
}

// readLines decodes an ISO-8859-1 stream and returns its non-empty lines
// without line terminators, folded to ASCII.
func readLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(transform.NewReader(r, charmap.ISO8859_1.NewDecoder()))
	sc.Buffer(make([]byte, 0, 1024), 64*1024)

	var lines []string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, foldASCII(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read retorno: %w", err)
	}
	return lines, nil
}

// ============================================================
// Fixed-width record writer
// ============================================================

// recordWriter fills a blank record of a fixed width. Positions are 1-based
// and inclusive, as in the bank manuals. The first failure sticks and is
// returned by String.
type recordWriter struct {
	name string
	buf  []byte
	log  *zap.Logger
	err  error
}

func newRecord(name string, width int, log *zap.Logger) *recordWriter {
	if log == nil {
		log = zap.NewNop()
	}
	buf := make([]byte, width)
	for i := range buf {
		buf[i] = ' '
	}
	return &recordWriter{name: name, buf: buf, log: log}
}

func (w *recordWriter) put(field string, from, to int, v string) {
	if w.err != nil {
		return
	}
	if from < 1 || to < from || to > len(w.buf) {
		w.err = fmt.Errorf("record %s: field %s at %d-%d outside width %d", w.name, field, from, to, len(w.buf))
		return
	}
	copy(w.buf[from-1:to], v)
}

// alpha writes a left aligned, space padded text field. Values that do not
// fit are truncated on the right and logged.
func (w *recordWriter) alpha(field string, from, to int, v string) {
	width := to - from + 1
	v = normalizeAlpha(strings.TrimSpace(v))
	if len(v) > width {
		w.log.Warn("cnab field truncated",
			zap.String("record", w.name),
			zap.String("field", field),
			zap.Int("width", width),
			zap.String("value", v),
		)
		v = v[:width]
	}
	w.put(field, from, to, v+strings.Repeat(" ", width-len(v)))
}

// num writes a right aligned, zero padded numeric field. Non-digits are
// dropped; a value with more digits than the field is rejected.
func (w *recordWriter) num(field string, from, to int, v string) {
	if w.err != nil {
		return
	}
	width := to - from + 1
	d := strings.TrimLeft(boleto.Digits(v), "0")
	if len(d) > width {
		w.err = &domain.ErrFieldOverflow{Record: w.name, Field: field, Width: width, Value: v}
		return
	}
	w.put(field, from, to, strings.Repeat("0", width-len(d))+d)
}

func (w *recordWriter) number(field string, from, to, v int) {
	w.num(field, from, to, fmt.Sprint(v))
}

// money writes an amount in cents. Negative amounts are rejected.
func (w *recordWriter) money(field string, from, to int, v *decimal.Decimal) {
	if v != nil && v.IsNegative() {
		if w.err == nil {
			w.err = &domain.ErrFieldOverflow{Record: w.name, Field: field, Width: to - from + 1, Value: v.String()}
		}
		return
	}
	cents := "0"
	if v != nil {
		cents = v.Mul(decimal.NewFromInt(100)).Round(0).String()
	}
	w.num(field, from, to, cents)
}

// date writes t with the given Go layout; a zero time becomes zeros.
func (w *recordWriter) date(field string, from, to int, t time.Time, layout string) {
	if t.IsZero() {
		w.num(field, from, to, "0")
		return
	}
	w.num(field, from, to, t.Format(layout))
}

// lit writes a constant. It must fit exactly.
func (w *recordWriter) lit(field string, from, to int, v string) {
	if w.err == nil && len(v) != to-from+1 {
		w.err = fmt.Errorf("record %s: constant %s has %d chars for %d-%d", w.name, field, len(v), from, to)
		return
	}
	w.put(field, from, to, v)
}

func (w *recordWriter) String() (string, error) {
	if w.err != nil {
		return "", w.err
	}
	return string(w.buf), nil
}

// ============================================================
// Shared field helpers
// ============================================================

const (
	dateLong   = "02012006" // DDMMAAAA
	dateShort  = "020106"   // DDMMAA
	timeHHMMSS = "150405"
)

// tipoInscricao returns 1 for CPF, 2 for CNPJ and 0 when unknown.
func tipoInscricao(documento string) int {
	switch n := len(boleto.Digits(documento)); {
	case n == 0:
		return 0
	case n <= 11:
		return 1
	default:
		return 2
	}
}

// splitCEP returns the 5 digit prefix and 3 digit suffix of a CEP.
func splitCEP(cep string) (string, string) {
	d := boleto.FitDigits(cep, 8)
	if boleto.Digits(cep) == "" {
		return "0", "0"
	}
	return d[:5], d[5:]
}

func parseCents(field string) (decimal.Decimal, error) {
	if boleto.Digits(field) != field || field == "" {
		return decimal.Zero, fmt.Errorf("amount %q is not numeric", field)
	}
	d, err := decimal.NewFromString(field)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Shift(-2), nil
}

func parseDate(field, layout string) (time.Time, error) {
	if boleto.Digits(field) != field || len(field) != len(layout) {
		return time.Time{}, fmt.Errorf("date %q is not %s", field, layout)
	}
	if strings.Trim(field, "0") == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	return time.Parse(layout, field)
}
