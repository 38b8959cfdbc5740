package cnab

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/boddenberg/pj-cobranca-go/internal/boleto"
	"github.com/boddenberg/pj-cobranca-go/internal/domain"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/observability"

	"go.uber.org/zap"
)

type adapterKey struct {
	bank   BankCode
	layout Layout
}

// Resolution is the outcome of a registry lookup.
type Resolution struct {
	Adapter Adapter
}

// Authoritative reports whether the adapter produces files a bank accepts.
func (r Resolution) Authoritative() bool {
	return r.Adapter.Kind() == KindConcrete
}

// Registry maps (bank, layout) to an adapter. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	adapters map[adapterKey]Adapter
	fallback bool
	log      *zap.Logger
	metrics  *observability.Metrics
}

// Option configures a Registry.
type Option func(*Registry)

// WithoutFallback makes unregistered banks an error instead of resolving to
// the fallback adapter.
func WithoutFallback() Option {
	return func(r *Registry) { r.fallback = false }
}

// WithoutBanks removes the concrete adapters of the given banks, e.g. to
// serve an institution whose format is not homologated yet.
func WithoutBanks(codes ...BankCode) Option {
	return func(r *Registry) {
		for _, c := range codes {
			delete(r.adapters, adapterKey{c, Layout240})
			delete(r.adapters, adapterKey{c, Layout400})
		}
	}
}

// NewRegistry registers the 240 and 400 adapters of every supported bank.
func NewRegistry(log *zap.Logger, metrics *observability.Metrics, opts ...Option) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{
		adapters: make(map[adapterKey]Adapter, 2*len(SupportedBanks)),
		fallback: true,
		log:      log,
		metrics:  metrics,
	}
	for _, code := range SupportedBanks {
		b := base{profile: profiles[code], log: log.With(zap.String("bank", string(code))), metrics: metrics}
		r.adapters[adapterKey{code, Layout240}] = adapter240{b}
		r.adapters[adapterKey{code, Layout400}] = adapter400{b}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the concrete adapter for the bank and layout, or the
// fallback adapter (logged and counted) when none is registered.
func (r *Registry) Resolve(bankCode string, layout Layout) (Resolution, error) {
	if _, err := ParseLayout(string(layout)); err != nil {
		return Resolution{}, err
	}
	code := BankCode(boleto.FitDigits(bankCode, 3))

	if a, ok := r.adapters[adapterKey{code, layout}]; ok {
		return Resolution{Adapter: a}, nil
	}
	if !r.fallback {
		return Resolution{}, &domain.ErrAdapterNotRegistered{Bank: string(code), Layout: string(layout)}
	}

	r.log.Warn("no CNAB adapter registered, using fallback output",
		zap.String("bank", string(code)),
		zap.String("layout", string(layout)),
	)
	if r.metrics != nil {
		r.metrics.IncrAdapterFallback(string(code), string(layout))
	}
	return Resolution{Adapter: fallbackAdapter{bank: code, layout: layout, log: r.log, metrics: r.metrics}}, nil
}

// Fallback returns the fallback adapter for the bank and layout. It reads
// retorno files written in the fallback format, whatever adapters are registered.
func (r *Registry) Fallback(bankCode string, layout Layout) (Resolution, error) {
	if _, err := ParseLayout(string(layout)); err != nil {
		return Resolution{}, err
	}
	code := BankCode(boleto.FitDigits(bankCode, 3))
	return Resolution{Adapter: fallbackAdapter{bank: code, layout: layout, log: r.log, metrics: r.metrics}}, nil
}

// Detection is what Detect learned about a retorno file.
type Detection struct {
	Layout Layout
	Bank   string
	// Fallback is set for files in the fallback format ("layout\nbank\n...").
	Fallback bool
}

// Detect finds the layout and bank of a retorno file. An explicit layout
// wins; otherwise the .240/.400 file suffix is used, then the length of the
// first record. The bank comes from the header record (240: 1-3, 400: 77-79).
func Detect(content []byte, filename string, explicit Layout) (Detection, error) {
	first, second := firstLines(content)

	// fallback files start with the layout and bank lines
	if l, err := ParseLayout(first); err == nil {
		if explicit == "" {
			explicit = l
		}
		return Detection{Layout: explicit, Bank: strings.TrimSpace(second), Fallback: true}, nil
	}

	layout := explicit
	if layout == "" {
		if l, ok := LayoutFromFilename(filename); ok {
			layout = l
		}
	}
	if layout == "" {
		switch len(first) {
		case 240:
			layout = Layout240
		case 400:
			layout = Layout400
		default:
			return Detection{}, &domain.ErrValidation{Field: "layout", Message: "cannot infer layout, pass 240 or 400"}
		}
	}
	if _, err := ParseLayout(string(layout)); err != nil {
		return Detection{}, err
	}

	var bank string
	switch {
	case layout == Layout240 && len(first) >= 3:
		bank = first[0:3]
	case layout == Layout400 && len(first) >= 79:
		bank = first[76:79]
	}
	return Detection{Layout: layout, Bank: strings.TrimSpace(bank)}, nil
}

func firstLines(content []byte) (string, string) {
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 1024), 64*1024)

	var lines []string
	for len(lines) < 2 && sc.Scan() {
		if l := strings.TrimRight(sc.Text(), "\r"); strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	for len(lines) < 2 {
		lines = append(lines, "")
	}
	return lines[0], lines[1]
}
