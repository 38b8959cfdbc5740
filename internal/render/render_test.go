package render_test

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/pj-cobranca-go/internal/domain"
	"github.com/boddenberg/pj-cobranca-go/internal/render"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func sampleSlip() render.Slip {
	valor := decimal.RequireFromString("1234.5")
	return render.Slip{
		Titulo: domain.Titulo{
			ID: "t-1", Numero: "000123", NossoNumero: "12345678901",
			Emissao:    time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
			Vencimento: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
			Valor:      &valor,
		},
		Cedente: domain.Cedente{Nome: "Ação Comércio Ltda", Documento: "12.345.678/0001-90"},
		Sacado: domain.Sacado{
			Nome: "José da Silva", Documento: "123.456.789-09",
			Endereco: domain.Endereco{Logradouro: "Rua A, 1", Cidade: "São Paulo", UF: "SP"},
		},
		Conta: domain.ContaBancaria{
			CodigoBanco: "341", Agencia: "1234", Conta: "56789012", ContaDV: "0", Carteira: "109",
		},
		CodigoBarras:   "34191031200000123451234567890121234567890109",
		LinhaDigitavel: "3419123454 67890121238 45678901096 1 03120000012345",
		Processamento:  time.Date(2025, 12, 2, 0, 0, 0, 0, time.UTC),
	}
}

func assertPDF(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("%s is not a PDF", path)
	}
}

func TestRender_PDFWithTextHeader(t *testing.T) {
	dir := t.TempDir()
	r := render.NewSlipRenderer(filepath.Join(dir, "no-assets"), zap.NewNop())
	path := filepath.Join(dir, "boletos", "t-1.pdf")

	res, err := r.Render(context.Background(), sampleSlip(), path)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if res.Kind != render.KindPDF || res.Path != path {
		t.Errorf("unexpected result %+v", res)
	}
	assertPDF(t, path)
}

func TestRender_PDFWithLogo(t *testing.T) {
	assets := t.TempDir()
	if err := os.MkdirAll(filepath.Join(assets, "logos"), 0o755); err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 40, 12))
	for x := 0; x < 40; x++ {
		img.Set(x, 6, color.Black)
	}
	f, err := os.Create(filepath.Join(assets, "logos", "341.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	r := render.NewSlipRenderer(assets, zap.NewNop())
	path := filepath.Join(t.TempDir(), "t-1.pdf")

	res, err := r.Render(context.Background(), sampleSlip(), path)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if res.Kind != render.KindPDF {
		t.Errorf("expected pdf, got %s", res.Kind)
	}
	assertPDF(t, path)
}

func TestRender_FallsBackToText(t *testing.T) {
	s := sampleSlip()
	s.CodigoBarras = "123" // odd length cannot be interleaved

	r := render.NewSlipRenderer("", zap.NewNop())
	path := filepath.Join(t.TempDir(), "t-1.pdf")

	res, err := r.Render(context.Background(), s, path)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if res.Kind != render.KindText || !strings.HasSuffix(res.Path, "t-1.txt") {
		t.Fatalf("unexpected result %+v", res)
	}

	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{s.LinhaDigitavel, "ITAU UNIBANCO S.A. | 341-7", "1.234,50", "31/12/2025", "12345678901"} {
		if !strings.Contains(text, want) {
			t.Errorf("text slip missing %q:\n%s", want, text)
		}
	}
}

func TestRender_TextSlipPrintsBankEspecieDoc(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"341", "DM"},
		{"748", "DMI"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			s := sampleSlip()
			s.Conta.CodigoBanco = tc.code
			s.CodigoBarras = "123"

			r := render.NewSlipRenderer("", zap.NewNop())
			res, err := r.Render(context.Background(), s, filepath.Join(t.TempDir(), "t-1.pdf"))
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			data, err := os.ReadFile(res.Path)
			if err != nil {
				t.Fatal(err)
			}
			want := fmt.Sprintf("%-28s %s\n", "Espécie doc.:", tc.want)
			if !strings.Contains(string(data), want) {
				t.Errorf("text slip missing %q:\n%s", want, data)
			}
		})
	}
}

func TestITF(t *testing.T) {
	bc, err := render.ITF(sampleSlip().CodigoBarras, 50)
	if err != nil {
		t.Fatalf("itf: %v", err)
	}
	if bc.Bounds().Dy() != 50 {
		t.Errorf("height %d", bc.Bounds().Dy())
	}
	if bc.Bounds().Dx() == 0 {
		t.Error("empty barcode")
	}
	if _, err := render.ITF("12345", 50); err == nil {
		t.Error("expected error for odd length")
	}
}
