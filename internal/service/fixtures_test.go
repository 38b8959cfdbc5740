package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/pj-cobranca-go/internal/domain"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/cache"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/memstore"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/observability"
	"github.com/boddenberg/pj-cobranca-go/internal/render"
	"github.com/boddenberg/pj-cobranca-go/internal/service"

	"github.com/shopspring/decimal"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type env struct {
	store   *memstore.Store
	metrics *observability.Metrics
	records *service.Records
}

// newEnv seeds an Itaú account with a two-titulo bordero. t-2 references a
// sacado that does not exist.
func newEnv(t *testing.T) env {
	t.Helper()
	st := memstore.New()
	st.PutCedente(domain.Cedente{ID: "c-1", Nome: "Empresa XPTO Ltda", Documento: "12.345.678/0001-90"})
	st.PutContaBancaria(domain.ContaBancaria{
		ID: "k-1", CedenteID: "c-1", CodigoBanco: "341",
		Agencia: "1234", Conta: "56789012", ContaDV: "0", Carteira: "109",
	})
	st.PutSacado(domain.Sacado{
		ID: "s-1", Nome: "Fulano de Tal", Documento: "123.456.789-09",
		Endereco: domain.Endereco{Logradouro: "Rua A, 1", CEP: "01001-000", Cidade: "Sao Paulo", UF: "SP"},
	})
	st.PutBordero(domain.Bordero{ID: "b-1", CedenteID: "c-1", ContaBancariaID: "k-1", Sequencia: 7})
	st.PutTitulo(domain.Titulo{
		ID: "t-1", CedenteID: "c-1", ContaBancariaID: "k-1", SacadoID: "s-1", BorderoID: "b-1",
		Numero: "000123", Parcela: 1, Emissao: day(2025, 12, 1), Vencimento: day(2025, 12, 31),
		Valor: dec("123.45"), NossoNumero: "12345678901", Status: domain.TituloAberto,
	})
	st.PutTitulo(domain.Titulo{
		ID: "t-2", CedenteID: "c-1", ContaBancariaID: "k-1", SacadoID: "s-missing", BorderoID: "b-1",
		Numero: "000124", Parcela: 1, Emissao: day(2025, 12, 1), Vencimento: day(2026, 1, 31),
		Valor: dec("10.00"), NossoNumero: "42", Status: domain.TituloAberto,
	})

	contas := cache.New[domain.ContaBancaria](time.Minute)
	cedentes := cache.New[domain.Cedente](time.Minute)
	t.Cleanup(contas.Close)
	t.Cleanup(cedentes.Close)

	metrics := observability.NewMetrics()
	return env{
		store:   st,
		metrics: metrics,
		records: service.NewRecords(st, contas, cedentes, metrics),
	}
}

// fakeRenderer records the slips it was asked to draw.
type fakeRenderer struct {
	mu    sync.Mutex
	slips []render.Slip
	kind  string
}

func (f *fakeRenderer) Render(_ context.Context, s render.Slip, path string) (render.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slips = append(f.slips, s)
	kind := f.kind
	if kind == "" {
		kind = render.KindPDF
	}
	return render.Result{Path: path, Kind: kind}, nil
}

// at places v at a 1-based position of a fixed-width record.
type at struct {
	pos int
	v   string
}

func fixed(width int, fields ...at) string {
	b := []byte(strings.Repeat(" ", width))
	for _, f := range fields {
		copy(b[f.pos-1:], f.v)
	}
	return string(b)
}

func crlf(lines ...string) string {
	return strings.Join(lines, "\r\n") + "\r\n"
}
