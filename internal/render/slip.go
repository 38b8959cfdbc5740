// Package render draws the printable boleto: an A4 PDF with the bank
// header, the slip fields and the Interleaved 2 of 5 barcode, or a plain
// text slip when the PDF cannot be produced.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/boddenberg/pj-cobranca-go/internal/bank"
	"github.com/boddenberg/pj-cobranca-go/internal/domain"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/twooffive"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("render")

// Render kinds.
const (
	KindPDF  = "pdf"
	KindText = "text"
)

// Slip is everything printed on one boleto.
type Slip struct {
	Titulo         domain.Titulo
	Cedente        domain.Cedente
	Sacado         domain.Sacado
	Conta          domain.ContaBancaria
	CodigoBarras   string
	LinhaDigitavel string
	Processamento  time.Time
}

// Result tells where the slip was written and in which form.
type Result struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// SlipRenderer writes PDF slips, falling back to TextRenderer.
type SlipRenderer struct {
	assetsDir string
	logger    *zap.Logger
	text      TextRenderer
}

// NewSlipRenderer creates a renderer that resolves bank logos under assetsDir.
func NewSlipRenderer(assetsDir string, logger *zap.Logger) *SlipRenderer {
	return &SlipRenderer{assetsDir: assetsDir, logger: logger}
}

// Render writes the slip to path. When the PDF fails a text slip is written
// next to it (same name, .txt) and the result kind is "text".
func (r *SlipRenderer) Render(ctx context.Context, s Slip, path string) (Result, error) {
	_, span := tracer.Start(ctx, "SlipRenderer.Render")
	defer span.End()
	span.SetAttributes(attribute.String("bank", s.Conta.CodigoBanco))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Result{}, fmt.Errorf("create slip directory: %w", err)
	}

	err := r.renderPDF(s, path)
	if err == nil {
		return Result{Path: path, Kind: KindPDF}, nil
	}

	r.logger.Warn("pdf slip failed, writing text slip",
		zap.String("titulo_id", s.Titulo.ID),
		zap.String("bank", s.Conta.CodigoBanco),
		zap.Error(err),
	)
	txt := strings.TrimSuffix(path, filepath.Ext(path)) + ".txt"
	return r.text.Render(s, txt)
}

// ITF returns the Interleaved 2 of 5 symbol of code scaled to height pixels,
// three pixels per module.
func ITF(code string, height int) (barcode.Barcode, error) {
	bc, err := twooffive.Encode(code, true)
	if err != nil {
		return nil, fmt.Errorf("encode ITF: %w", err)
	}
	return barcode.Scale(bc, bc.Bounds().Dx()*3, height)
}

// ============================================================
// PDF layout (A4, millimetres)
// ============================================================

const (
	marginX   = 10.0
	pageWidth = 190.0
	rowHeight = 9.0
)

func (r *SlipRenderer) renderPDF(s Slip, path string) error {
	img, err := ITF(s.CodigoBarras, 120)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode barcode png: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginX, 10, marginX)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	code := s.Conta.CodigoBanco
	info, known := bank.Lookup(code)
	localPagamento := bank.DefaultLocalPagamento
	codeDV := code
	if known {
		codeDV = info.CodeWithDV()
		if info.LocalPagamento != "" {
			localPagamento = info.LocalPagamento
		}
	}

	y := 12.0
	r.header(pdf, tr, s.Conta, codeDV, s.LinhaDigitavel, y)
	y += 12

	t := s.Titulo
	agencia := joinDV(s.Conta.Agencia, s.Conta.AgenciaDV) + " / " + joinDV(s.Conta.Conta, s.Conta.ContaDV)

	rows := [][]cell{
		{{"Local de pagamento", localPagamento, 150}, {"Vencimento", formatDate(t.Vencimento), 40}},
		{{"Beneficiário", s.Cedente.Nome + "  " + s.Cedente.Documento, 150}, {"Agência / Código do beneficiário", agencia, 40}},
		{
			{"Data do documento", formatDate(t.Emissao), 30},
			{"Número do documento", t.Numero, 40},
			{"Espécie doc.", bank.EspecieDoc(code), 20},
			{"Aceite", "N", 15},
			{"Data processamento", formatDate(s.Processamento), 45},
			{"Nosso número", t.NossoNumero, 40},
		},
		{{"Carteira", s.Conta.Carteira, 30}, {"Espécie", "R$", 20}, {"Quantidade", "", 50}, {"Valor", "", 50}, {"(=) Valor do documento", formatValor(t.Valor), 40}},
	}
	for _, row := range rows {
		x := marginX
		for _, c := range row {
			field(pdf, tr, c, x, y)
			x += c.width
		}
		y += rowHeight
	}

	pdf.Rect(marginX, y, pageWidth, 20, "D")
	pdf.SetFont("Helvetica", "", 6)
	pdf.SetXY(marginX+1, y+1)
	pdf.CellFormat(0, 3, tr("Pagador"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetX(marginX + 1)
	pdf.CellFormat(0, 4, tr(s.Sacado.Nome+"  "+s.Sacado.Documento), "", 1, "L", false, 0, "")
	pdf.SetX(marginX + 1)
	pdf.CellFormat(0, 4, tr(address(s.Sacado.Endereco)), "", 1, "L", false, 0, "")
	y += 24

	pdf.RegisterImageOptionsReader("itf", fpdf.ImageOptions{ImageType: "PNG"}, &buf)
	pdf.ImageOptions("itf", marginX, y, 103, 13, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// header draws the bank logo, or the bank name when the asset is missing,
// followed by code-dv and the linha digitável.
func (r *SlipRenderer) header(pdf *fpdf.Fpdf, tr func(string) string, conta domain.ContaBancaria, codeDV, linha string, y float64) {
	if logo, ok := r.logoPath(conta); ok {
		pdf.ImageOptions(logo, marginX, y, 0, 9, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
	} else {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetXY(marginX, y+2)
		pdf.CellFormat(50, 6, tr(bank.Name(conta.CodigoBanco)), "", 0, "L", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginX+52, y+2)
	pdf.CellFormat(20, 6, codeDV, "LR", 0, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetXY(marginX+74, y+2)
	pdf.CellFormat(pageWidth-74, 6, linha, "", 0, "R", false, 0, "")

	pdf.Line(marginX, y+10, marginX+pageWidth, y+10)
}

// logoPath resolves the (bank, variant) logo under the assets directory.
func (r *SlipRenderer) logoPath(conta domain.ContaBancaria) (string, bool) {
	info, ok := bank.Lookup(conta.CodigoBanco)
	if !ok || r.assetsDir == "" {
		return "", false
	}
	rel, ok := info.Logo(conta.LogoVariant)
	if !ok {
		return "", false
	}
	p := filepath.Join(r.assetsDir, rel)
	if _, err := os.Stat(p); err != nil {
		r.logger.Debug("bank logo not found, using text header", zap.String("path", p))
		return "", false
	}
	return p, true
}

type cell struct {
	label string
	value string
	width float64
}

func field(pdf *fpdf.Fpdf, tr func(string) string, c cell, x, y float64) {
	pdf.Rect(x, y, c.width, rowHeight, "D")
	pdf.SetFont("Helvetica", "", 6)
	pdf.SetXY(x+1, y+0.5)
	pdf.CellFormat(c.width-2, 3, tr(c.label), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetXY(x+1, y+4)
	pdf.CellFormat(c.width-2, 4, tr(c.value), "", 0, "L", false, 0, "")
}

func joinDV(n, dv string) string {
	if dv == "" {
		return n
	}
	return n + "-" + dv
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

// formatValor prints an amount the Brazilian way: 1.234,56.
func formatValor(v *decimal.Decimal) string {
	if v == nil {
		return ""
	}
	s := v.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	var grouped []string
	for len(intPart) > 3 {
		grouped = append([]string{intPart[len(intPart)-3:]}, grouped...)
		intPart = intPart[:len(intPart)-3]
	}
	grouped = append([]string{intPart}, grouped...)

	out := strings.Join(grouped, ".") + "," + frac
	if neg {
		out = "-" + out
	}
	return out
}

func address(e domain.Endereco) string {
	parts := []string{}
	for _, p := range []string{e.Logradouro, e.Bairro, e.CEP, e.Cidade, e.UF} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " - ")
}
