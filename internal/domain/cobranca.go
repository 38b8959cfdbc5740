package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Cobrança (boletos + CNAB)
// ============================================================

// Titulo status values.
const (
	TituloAberto    = "aberto"
	TituloEmitido   = "emitido"
	TituloRemetido  = "remetido"
	TituloPago      = "pago"
	TituloCancelado = "cancelado"
)

// Titulo is one installment of a receivable.
// Once a barcode or remessa exists for it only the payment/status
// fields may change.
type Titulo struct {
	ID              string           `json:"id"`
	CedenteID       string           `json:"cedente_id"`
	ContaBancariaID string           `json:"conta_bancaria_id"`
	SacadoID        string           `json:"sacado_id"`
	BorderoID       string           `json:"bordero_id,omitempty"`
	Numero          string           `json:"numero"`
	Serie           string           `json:"serie,omitempty"`
	Parcela         int              `json:"parcela"`
	Emissao         time.Time        `json:"emissao"`
	Vencimento      time.Time        `json:"vencimento"` // zero = sem vencimento
	Valor           *decimal.Decimal `json:"valor"`
	NossoNumero     string           `json:"nosso_numero"`
	LinhaDigitavel  string           `json:"linha_digitavel,omitempty"`
	BoletoURL       string           `json:"boleto_url,omitempty"`
	Status          string           `json:"status"`
	ValorPago       *decimal.Decimal `json:"valor_pago,omitempty"`
	DataPagamento   *time.Time       `json:"data_pagamento,omitempty"`
}

// Cedente is the payee (beneficiary).
type Cedente struct {
	ID        string `json:"id"`
	Nome      string `json:"nome"`
	Documento string `json:"documento"` // CNPJ ou CPF
}

// Endereco is a postal address as printed on CNAB records.
type Endereco struct {
	Logradouro string `json:"logradouro"`
	Bairro     string `json:"bairro"`
	CEP        string `json:"cep"`
	Cidade     string `json:"cidade"`
	UF         string `json:"uf"`
}

// Sacado is the payer. It never contributes to the barcode.
type Sacado struct {
	ID        string   `json:"id"`
	Nome      string   `json:"nome"`
	Documento string   `json:"documento"`
	Endereco  Endereco `json:"endereco"`
}

// ContaBancaria is the bank account configuration of a cedente.
// This service only reads it.
type ContaBancaria struct {
	ID          string `json:"id"`
	CedenteID   string `json:"cedente_id"`
	CodigoBanco string `json:"codigo_banco"`
	Agencia     string `json:"agencia"`
	AgenciaDV   string `json:"agencia_dv"`
	Conta       string `json:"conta"`
	ContaDV     string `json:"conta_dv"`
	Carteira    string `json:"carteira"`
	Convenio    string `json:"convenio,omitempty"`
	LogoVariant string `json:"logo_variant,omitempty"`
}

// Bordero groups the titulos sent to the bank in one remessa.
type Bordero struct {
	ID              string `json:"id"`
	CedenteID       string `json:"cedente_id"`
	ContaBancariaID string `json:"conta_bancaria_id"`
	Sequencia       int    `json:"sequencia"`
}

// RetornoEntry is one settled titulo read from a retorno file.
type RetornoEntry struct {
	NossoNumero   string          `json:"nosso_numero"`
	ValorPago     decimal.Decimal `json:"valor_pago"`
	DataPagamento time.Time       `json:"data_pagamento"`
}

// RemessaFile is a generated remessa. A new export always produces a new file.
type RemessaFile struct {
	ID            string    `json:"id"`
	Banco         string    `json:"banco"`
	Layout        string    `json:"layout"`
	Sequencia     int       `json:"sequencia"`
	Registros     int       `json:"registros"`
	Titulos       int       `json:"titulos"`
	Authoritative bool      `json:"authoritative"`
	Path          string    `json:"path,omitempty"`
	Conteudo      string    `json:"conteudo,omitempty"`
	GeradoEm      time.Time `json:"gerado_em"`
}

// BarcodeCheck is the structural check of a freshly built barcode.
type BarcodeCheck struct {
	Codigo string `json:"codigo"`
	LenOK  bool   `json:"len_ok"`
	DVOK   bool   `json:"dv_ok"`
}

// ValidationReport lists everything that prevents a legally valid slip.
type ValidationReport struct {
	Missing []string     `json:"missing"`
	Invalid []string     `json:"invalid"`
	Barcode BarcodeCheck `json:"barcode"`
}

// OK reports whether the slip can be generated.
func (r ValidationReport) OK() bool {
	return len(r.Missing) == 0 && len(r.Invalid) == 0 && r.Barcode.LenOK && r.Barcode.DVOK
}

// BankRuleResult is the outcome of the institution specific rule set.
type BankRuleResult struct {
	OK     bool     `json:"ok"`
	Errors []string `json:"errors"`
}

// BoletoResult is returned after a slip has been generated.
type BoletoResult struct {
	TituloID       string           `json:"titulo_id"`
	CodigoBarras   string           `json:"codigo_barras"`
	LinhaDigitavel string           `json:"linha_digitavel"`
	BoletoURL      string           `json:"boleto_url"`
	RenderKind     string           `json:"render_kind"` // pdf, text
	Validacao      ValidationReport `json:"validacao"`
}

// DecodedBarcode is the information recovered from a typed barcode or linha digitável.
type DecodedBarcode struct {
	IsValid          bool            `json:"is_valid"`
	CodigoBarras     string          `json:"codigo_barras,omitempty"`
	LinhaDigitavel   string          `json:"linha_digitavel,omitempty"`
	CodigoBanco      string          `json:"codigo_banco,omitempty"`
	Valor            decimal.Decimal `json:"valor"`
	Vencimento       string          `json:"vencimento,omitempty"` // YYYY-MM-DD
	ValidationErrors []string        `json:"validation_errors,omitempty"`
}
