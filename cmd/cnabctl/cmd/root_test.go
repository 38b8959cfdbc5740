package cmd_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/boddenberg/pj-cobranca-go/cmd/cnabctl/cmd"
	"github.com/boddenberg/pj-cobranca-go/internal/domain"
)

const lote = `
layout: "400"
sequencia: 5
cedente:
  nome: Empresa XPTO Ltda
  documento: 12.345.678/0001-90
conta:
  codigo_banco: "756"
  agencia: "4321"
  conta: "12345"
  conta_dv: "6"
  carteira: "1"
  convenio: "98765"
sacados:
  - id: s-1
    nome: Cliente Um
    documento: 123.456.789-09
titulos:
  - id: t-1
    sacado_id: s-1
    numero: "1"
    emissao: "2026-01-02"
    vencimento: "2026-02-02"
    valor: "250.00"
    nosso_numero: "17"
`

const titulo = `
cedente:
  nome: Empresa XPTO Ltda
  documento: 12.345.678/0001-90
sacado:
  nome: Fulano de Tal
conta:
  codigo_banco: "341"
  agencia: "1234"
  conta: "56789012"
  conta_dv: "0"
  carteira: "109"
titulo:
  numero: "000123"
  vencimento: "2025-12-31"
  valor: "123.45"
  nosso_numero: "12345678901"
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := cmd.NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBoleto_ValidateOnly(t *testing.T) {
	out, err := run(t, "boleto", "-f", writeFile(t, "titulo.yaml", titulo))
	if err != nil {
		t.Fatalf("boleto: %v", err)
	}
	var resp domain.ValidarResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if !resp.Report.OK() || len(resp.Report.Barcode.Codigo) != 44 {
		t.Errorf("unexpected report %+v", resp.Report)
	}
}

func TestBoleto_Render(t *testing.T) {
	pdf := filepath.Join(t.TempDir(), "slip.pdf")
	out, err := run(t, "boleto", "-f", writeFile(t, "titulo.yaml", titulo), "--pdf", pdf, "--assets", t.TempDir())
	if err != nil {
		t.Fatalf("boleto: %v", err)
	}
	var res domain.BoletoResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if _, err := os.Stat(res.BoletoURL); err != nil {
		t.Errorf("slip not written: %v", err)
	}
}

func TestBoleto_Invalid(t *testing.T) {
	in := strings.Replace(titulo, `valor: "123.45"`, `valor: ""`, 1)
	if _, err := run(t, "boleto", "-f", writeFile(t, "titulo.yaml", in)); err == nil {
		t.Fatal("expected error for incomplete titulo")
	}
}

func TestRemessaAndRetorno(t *testing.T) {
	rem := filepath.Join(t.TempDir(), "out.rem")
	if _, err := run(t, "remessa", "-f", writeFile(t, "lote.yaml", lote), "-o", rem); err != nil {
		t.Fatalf("remessa: %v", err)
	}
	data, err := os.ReadFile(rem)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\r\n"), "\r\n")
	if len(lines) != 3 {
		t.Fatalf("expected header, detail and trailer, got %d lines", len(lines))
	}
	for i, l := range lines {
		if len(l) != 400 {
			t.Errorf("line %d: expected 400 chars, got %d", i+1, len(l))
		}
	}

	out, err := run(t, "remessa", "-f", writeFile(t, "lote.yaml", lote), "--layout", "240")
	if err != nil {
		t.Fatalf("remessa 240: %v", err)
	}
	if !strings.HasPrefix(out, "756") {
		t.Errorf("expected Sicoob 240 header on stdout, got %.10q", out)
	}
}

func TestRetorno_BadLayout(t *testing.T) {
	if _, err := run(t, "retorno", "--layout", "500", writeFile(t, "x.ret", "x")); err == nil {
		t.Fatal("expected layout error")
	}
}

func TestToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	out, err := run(t, "token", "--sub", "ops")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if strings.Count(strings.TrimSpace(out), ".") != 2 {
		t.Errorf("expected a JWT, got %q", out)
	}

	t.Setenv("JWT_SECRET", "")
	if _, err := run(t, "token"); err == nil {
		t.Error("expected error without secret")
	}
}
