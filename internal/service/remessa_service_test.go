package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/pj-cobranca-go/internal/cnab"
	"github.com/boddenberg/pj-cobranca-go/internal/domain"
	"github.com/boddenberg/pj-cobranca-go/internal/service"

	"go.uber.org/zap"
)

func newRemessaService(e env, outputDir string, opts ...cnab.Option) *service.RemessaService {
	reg := cnab.NewRegistry(zap.NewNop(), e.metrics, opts...)
	return service.NewRemessaService(e.store, e.records, reg, outputDir, 4, e.metrics, zap.NewNop()).
		WithClock(func() time.Time { return time.Date(2025, 12, 2, 10, 30, 0, 0, time.UTC) })
}

func TestGerarBordero_240(t *testing.T) {
	e := newEnv(t)
	out := t.TempDir()
	svc := newRemessaService(e, out)

	rf, err := svc.GerarBordero(context.Background(), "b-1", "240")
	if err != nil {
		t.Fatalf("gerar: %v", err)
	}

	if rf.Path != filepath.Join(out, "remessa", "341_240_7.rem") {
		t.Errorf("path %s", rf.Path)
	}
	if !rf.Authoritative || rf.Titulos != 2 || rf.Registros != 8 || rf.Sequencia != 7 || rf.ID == "" {
		t.Errorf("unexpected remessa %+v", rf)
	}

	data, err := os.ReadFile(rf.Path)
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range strings.Split(strings.TrimSuffix(string(data), "\r\n"), "\r\n") {
		if len(line) != 240 {
			t.Fatalf("record width %d", len(line))
		}
	}
	if !strings.Contains(string(data), "12345678901") {
		t.Error("nosso número missing from file")
	}

	for _, id := range []string{"t-1", "t-2"} {
		tit, _ := e.store.GetTitulo(context.Background(), id)
		if tit.Status != domain.TituloRemetido {
			t.Errorf("%s status %s", id, tit.Status)
		}
	}
	if got := e.store.Remessas("b-1"); len(got) != 1 || got[0].ID != rf.ID {
		t.Errorf("remessa not recorded: %+v", got)
	}
}

func TestGerarBordero_NewFileEachExport(t *testing.T) {
	e := newEnv(t)
	out := t.TempDir()
	svc := newRemessaService(e, out)

	first, err := svc.GerarBordero(context.Background(), "b-1", "400")
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.GerarBordero(context.Background(), "b-1", "400")
	if err != nil {
		t.Fatal(err)
	}
	if first.Path == second.Path || first.ID == second.ID {
		t.Errorf("export reused %s", first.Path)
	}
	if filepath.Base(second.Path) != "341_400_7_2.rem" {
		t.Errorf("second path %s", second.Path)
	}
	if len(e.store.Remessas("b-1")) != 2 {
		t.Error("expected two recorded remessas")
	}
}

func TestGerarBordero_FallbackAdapter(t *testing.T) {
	e := newEnv(t)
	svc := newRemessaService(e, t.TempDir(), cnab.WithoutBanks(cnab.Itau))

	rf, err := svc.GerarBordero(context.Background(), "b-1", "240")
	if err != nil {
		t.Fatal(err)
	}
	if rf.Authoritative || rf.Registros != 4 {
		t.Errorf("unexpected fallback remessa %+v", rf)
	}
	if rf.Conteudo != "240\n341\n12345678901\n42" {
		t.Errorf("fallback content %q", rf.Conteudo)
	}
	if e.metrics.AdapterFallbacks("341", "240") != 1 {
		t.Error("fallback not counted")
	}
}

func TestGerarBordero_SkipsClosedTitulos(t *testing.T) {
	e := newEnv(t)
	for _, id := range []string{"t-1", "t-2"} {
		tit, _ := e.store.GetTitulo(context.Background(), id)
		tit.Status = domain.TituloCancelado
		e.store.PutTitulo(*tit)
	}

	_, err := newRemessaService(e, t.TempDir()).GerarBordero(context.Background(), "b-1", "240")
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestGerarBordero_Errors(t *testing.T) {
	e := newEnv(t)
	svc := newRemessaService(e, t.TempDir())

	var ve *domain.ErrValidation
	if _, err := svc.GerarBordero(context.Background(), "b-1", "300"); !errors.As(err, &ve) {
		t.Errorf("bad layout: expected ErrValidation, got %v", err)
	}
	var nf *domain.ErrNotFound
	if _, err := svc.GerarBordero(context.Background(), "b-x", "240"); !errors.As(err, &nf) {
		t.Errorf("unknown bordero: expected ErrNotFound, got %v", err)
	}
}

func TestGerarBordero_NumericOverflow(t *testing.T) {
	e := newEnv(t)
	tit, _ := e.store.GetTitulo(context.Background(), "t-1")
	tit.NossoNumero = "123456789012"
	e.store.PutTitulo(*tit)

	_, err := newRemessaService(e, t.TempDir()).GerarBordero(context.Background(), "b-1", "240")
	var of *domain.ErrFieldOverflow
	if !errors.As(err, &of) {
		t.Fatalf("expected ErrFieldOverflow, got %v", err)
	}
	still, _ := e.store.GetTitulo(context.Background(), "t-1")
	if still.Status != domain.TituloAberto {
		t.Error("titulo must stay open when export fails")
	}
}

func TestGerarLote(t *testing.T) {
	e := newEnv(t)
	svc := newRemessaService(e, t.TempDir())

	lote := &domain.LoteInput{
		Layout:    "400",
		Sequencia: 3,
		Cedente:   domain.CedenteInput{Nome: "Empresa XPTO Ltda", Documento: "12.345.678/0001-90"},
		Conta:     domain.ContaInput{CodigoBanco: "756", Agencia: "3069", Conta: "12345", ContaDV: "6"},
		Titulos: []domain.TituloInput{
			{ID: "x-1", SacadoID: "p-1", Numero: "1", Vencimento: "2026-03-20", Valor: "99.90", NossoNumero: "54321"},
		},
		Sacados: []domain.SacadoInput{{ID: "p-1", Nome: "Cliente Um", UF: "PR"}},
	}

	rf, err := svc.GerarLote(context.Background(), lote, "")
	if err != nil {
		t.Fatalf("gerar lote: %v", err)
	}
	if rf.Banco != "756" || rf.Layout != "400" || rf.Registros != 3 || rf.Path != "" {
		t.Errorf("unexpected remessa %+v", rf)
	}
	if !strings.Contains(rf.Conteudo, "CLIENTE UM") {
		t.Error("sacado name not written")
	}

	lote.Titulos = nil
	var ve *domain.ErrValidation
	if _, err := svc.GerarLote(context.Background(), lote, "240"); !errors.As(err, &ve) {
		t.Errorf("empty lote: expected ErrValidation, got %v", err)
	}
}
