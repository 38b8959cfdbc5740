package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/pj-cobranca-go/internal/auth"
	"github.com/boddenberg/pj-cobranca-go/internal/cnab"
	"github.com/boddenberg/pj-cobranca-go/internal/domain"
	"github.com/boddenberg/pj-cobranca-go/internal/handler"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/cache"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/memstore"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/observability"
	"github.com/boddenberg/pj-cobranca-go/internal/render"
	"github.com/boddenberg/pj-cobranca-go/internal/service"

	"go.uber.org/zap"
)

const seed = `
cedentes:
  - id: c-1
    nome: Empresa XPTO Ltda
    documento: 12.345.678/0001-90
contas:
  - id: k-1
    cedente_id: c-1
    codigo_banco: "341"
    agencia: "1234"
    conta: "56789012"
    conta_dv: "0"
    carteira: "109"
sacados:
  - id: s-1
    nome: Fulano de Tal
    documento: 123.456.789-09
    logradouro: Rua A, 1
    cep: 01001-000
    cidade: Sao Paulo
    uf: SP
borderos:
  - id: b-1
    cedente_id: c-1
    conta_bancaria_id: k-1
    sequencia: 3
titulos:
  - id: t-1
    cedente_id: c-1
    conta_bancaria_id: k-1
    bordero_id: b-1
    sacado_id: s-1
    numero: "000123"
    parcela: 1
    emissao: "2025-12-01"
    vencimento: "2025-12-31"
    valor: "123.45"
    nosso_numero: "12345678901"
  - id: t-2
    cedente_id: c-1
    conta_bancaria_id: k-1
    sacado_id: s-1
    numero: "000200"
    emissao: "2025-12-01"
    vencimento: "2026-01-31"
    valor: "10.00"
    nosso_numero: "54321"
    status: emitido
  - id: t-3
    cedente_id: c-1
    conta_bancaria_id: k-1
    sacado_id: s-1
    numero: "000300"
    emissao: "2025-12-01"
    vencimento: "2026-01-31"
    nosso_numero: "777"
`

type testEnv struct {
	router  http.Handler
	store   *memstore.Store
	metrics *observability.Metrics
}

func newTestEnv(t *testing.T, verifier *auth.Verifier) testEnv {
	t.Helper()
	store, err := memstore.Parse([]byte(seed))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	contas := cache.New[domain.ContaBancaria](time.Minute)
	cedentes := cache.New[domain.Cedente](time.Minute)
	t.Cleanup(contas.Close)
	t.Cleanup(cedentes.Close)

	out := t.TempDir()
	records := service.NewRecords(store, contas, cedentes, metrics)
	registry := cnab.NewRegistry(logger, metrics)
	svc := handler.Services{
		Boletos:  service.NewBoletoService(store, records, render.NewSlipRenderer(t.TempDir(), logger), out, metrics, logger),
		Remessas: service.NewRemessaService(store, records, registry, out, 2, metrics, logger),
		Retornos: service.NewRetornoService(store, registry, metrics, logger),
	}
	return testEnv{
		router:  handler.NewRouter(svc, store, verifier, metrics, logger),
		store:   store,
		metrics: metrics,
	}
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

// line builds a fixed-width record; keys are 1-based positions.
func line(width int, fields map[int]string) string {
	b := []byte(strings.Repeat(" ", width))
	for pos, v := range fields {
		copy(b[pos-1:], v)
	}
	return string(b)
}

func TestOperationalEndpoints(t *testing.T) {
	e := newTestEnv(t, nil)

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/ping", "/v1/metrics/cobranca"} {
		rec := do(t, e.router, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestReadyzWithoutStore(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, nil, nil, observability.NewMetrics(), zap.NewNop())

	rec := do(t, router, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGerarBoleto(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := do(t, e.router, httptest.NewRequest(http.MethodPost, "/titulo/t-1/gerar/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res domain.BoletoResult
	decode(t, rec, &res)
	if len(res.CodigoBarras) != 44 || res.TituloID != "t-1" || res.BoletoURL == "" {
		t.Errorf("unexpected result %+v", res)
	}

	rec = do(t, e.router, httptest.NewRequest(http.MethodGet, "/titulo/t-1/consultar/", nil))
	var tit domain.Titulo
	decode(t, rec, &tit)
	if tit.Status != domain.TituloEmitido || tit.LinhaDigitavel != res.LinhaDigitavel {
		t.Errorf("titulo not updated: %+v", tit)
	}
}

func TestGerarBoleto_Invalid(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := do(t, e.router, httptest.NewRequest(http.MethodPost, "/titulo/t-3/gerar/", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body struct {
		Error   string   `json:"error"`
		Missing []string `json:"missing"`
		Invalid []string `json:"invalid"`
		Rules   []string `json:"rules"`
	}
	decode(t, rec, &body)
	if body.Error == "" || len(body.Missing) == 0 {
		t.Errorf("expected missing fields, got %+v", body)
	}
	if body.Invalid == nil || body.Rules == nil {
		t.Error("lists must be present even when empty")
	}
}

func TestTituloNotFound(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := do(t, e.router, httptest.NewRequest(http.MethodGet, "/titulo/nope/consultar/", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestCancelar(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := do(t, e.router, httptest.NewRequest(http.MethodPost, "/titulo/t-1/cancelar/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = do(t, e.router, httptest.NewRequest(http.MethodPost, "/titulo/t-1/gerar/", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("gerar after cancel: expected 409, got %d", rec.Code)
	}
}

func TestRemessaBordero(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := do(t, e.router, httptest.NewRequest(http.MethodPost, "/bordero/b-1/remessa/", strings.NewReader(`{"layout":"240"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var rf domain.RemessaFile
	decode(t, rec, &rf)
	if rf.Banco != "341" || rf.Layout != "240" || rf.Titulos != 1 || !rf.Authoritative {
		t.Errorf("unexpected remessa %+v", rf)
	}
	if rf.Conteudo != "" {
		t.Error("content must be omitted by default")
	}

	tit, _ := e.store.GetTitulo(context.Background(), "t-1")
	if tit.Status != domain.TituloRemetido {
		t.Errorf("expected remetido, got %s", tit.Status)
	}

	rec = do(t, e.router, httptest.NewRequest(http.MethodPost, "/bordero/b-1/remessa/?incluir_conteudo=true", strings.NewReader(`{"layout":"400"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	decode(t, rec, &rf)
	if !strings.HasPrefix(rf.Conteudo, "0") {
		t.Errorf("expected 400 header record, got %.20q", rf.Conteudo)
	}
}

func TestRemessaBordero_BadRequest(t *testing.T) {
	e := newTestEnv(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"unknown layout", `{"layout":"300"}`},
		{"missing layout", `{}`},
		{"not json", `layout=240`},
		{"unknown field", `{"layout":"240","banco":"341"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, e.router, httptest.NewRequest(http.MethodPost, "/bordero/b-1/remessa/", strings.NewReader(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func retornoRequest(t *testing.T, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("arquivo", "retorno.ret")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/retorno/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestRetorno_Aplicar(t *testing.T) {
	e := newTestEnv(t, nil)
	content := strings.Join([]string{
		line(400, map[int]string{1: "02RETORNO01COBRANCA", 77: "756", 395: "000001"}),
		line(400, map[int]string{1: "1", 63: "00000054321", 109: "06", 111: "200326", 254: "0000000009990", 395: "000002"}),
		line(400, map[int]string{1: "9", 395: "000003"}),
	}, "\r\n")

	rec := do(t, e.router, retornoRequest(t, content, map[string]string{"aplicar": "true"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res domain.RetornoResult
	decode(t, rec, &res)
	if res.Banco != "756" || res.Layout != "400" || len(res.Entries) != 1 || res.Aplicados != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	tit, _ := e.store.GetTitulo(context.Background(), "t-2")
	if tit.Status != domain.TituloPago || tit.ValorPago == nil || tit.ValorPago.StringFixed(2) != "99.90" {
		t.Errorf("titulo not settled: %+v", tit)
	}
}

func TestRetorno_Errors(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := do(t, e.router, httptest.NewRequest(http.MethodPost, "/retorno/", strings.NewReader("x")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non multipart: expected 400, got %d", rec.Code)
	}

	rec = do(t, e.router, retornoRequest(t, "abc", map[string]string{"layout": "123"}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad layout: expected 400, got %d", rec.Code)
	}
}

func TestValidarAndDecodificar(t *testing.T) {
	e := newTestEnv(t, nil)

	body := `{
		"cedente": {"nome": "ACME", "documento": "12345678000190"},
		"sacado": {"nome": "Fulano", "documento": "12345678909"},
		"conta": {"codigo_banco": "104", "agencia": "12", "conta": "34", "carteira": ""},
		"titulo": {"numero": "1", "vencimento": "2026-01-10", "valor": "10.00", "nosso_numero": "1"}
	}`
	rec := do(t, e.router, httptest.NewRequest(http.MethodPost, "/boletos/validar", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("validar: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp domain.ValidarResponse
	decode(t, rec, &resp)
	if resp.BankRules.OK || len(resp.BankRules.Errors) == 0 {
		t.Errorf("expected caixa rule failures, got %+v", resp.BankRules)
	}

	rec = do(t, e.router, httptest.NewRequest(http.MethodPost, "/boletos/decodificar", strings.NewReader(`{"codigo":"123"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("decodificar: expected 200, got %d", rec.Code)
	}
	var decoded domain.DecodedBarcode
	decode(t, rec, &decoded)
	if decoded.IsValid {
		t.Error("short input must not decode")
	}
}

func TestJWTProtectedRoutes(t *testing.T) {
	verifier := auth.NewVerifier("test-secret")
	e := newTestEnv(t, verifier)

	rec := do(t, e.router, httptest.NewRequest(http.MethodGet, "/titulo/t-1/consultar/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token, err := verifier.Issue("user-1", "12345678000190", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/titulo/t-1/consultar/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if rec := do(t, e.router, req); rec.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", rec.Code)
	}

	rec = do(t, e.router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("operational routes stay public, got %d", rec.Code)
	}
}
