package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Request payloads (HTTP bodies and cnabctl input files)
// ============================================================

// DateLayout is the wire format of every date in request payloads.
const DateLayout = "2006-01-02"

// CedenteInput is the payee as sent by clients.
type CedenteInput struct {
	Nome      string `json:"nome" yaml:"nome"`
	Documento string `json:"documento" yaml:"documento" validate:"omitempty,max=18,documento"`
}

// SacadoInput is the payer as sent by clients.
type SacadoInput struct {
	ID         string `json:"id" yaml:"id"`
	Nome       string `json:"nome" yaml:"nome"`
	Documento  string `json:"documento" yaml:"documento" validate:"omitempty,max=18,documento"`
	Logradouro string `json:"logradouro" yaml:"logradouro"`
	Bairro     string `json:"bairro" yaml:"bairro"`
	CEP        string `json:"cep" yaml:"cep" validate:"omitempty,max=9,documento"`
	Cidade     string `json:"cidade" yaml:"cidade"`
	UF         string `json:"uf" yaml:"uf" validate:"omitempty,len=2"`
}

// ContaInput is the bank configuration as sent by clients.
type ContaInput struct {
	CodigoBanco string `json:"codigo_banco" yaml:"codigo_banco" validate:"omitempty,len=3,numeric"`
	Agencia     string `json:"agencia" yaml:"agencia" validate:"omitempty,max=6"`
	AgenciaDV   string `json:"agencia_dv" yaml:"agencia_dv" validate:"omitempty,max=1"`
	Conta       string `json:"conta" yaml:"conta" validate:"omitempty,max=13"`
	ContaDV     string `json:"conta_dv" yaml:"conta_dv" validate:"omitempty,max=1"`
	Carteira    string `json:"carteira" yaml:"carteira" validate:"omitempty,max=3"`
	Convenio    string `json:"convenio" yaml:"convenio" validate:"omitempty,max=20"`
	LogoVariant string `json:"logo_variant" yaml:"logo_variant"`
}

// TituloInput is a receivable installment as sent by clients.
type TituloInput struct {
	ID          string `json:"id" yaml:"id"`
	SacadoID    string `json:"sacado_id" yaml:"sacado_id"`
	Numero      string `json:"numero" yaml:"numero" validate:"omitempty,max=15"`
	Serie       string `json:"serie" yaml:"serie"`
	Parcela     int    `json:"parcela" yaml:"parcela" validate:"gte=0"`
	Emissao     string `json:"emissao" yaml:"emissao" validate:"omitempty,datetime=2006-01-02"`
	Vencimento  string `json:"vencimento" yaml:"vencimento" validate:"omitempty,datetime=2006-01-02"`
	Valor       string `json:"valor" yaml:"valor" validate:"omitempty,number"`
	NossoNumero string `json:"nosso_numero" yaml:"nosso_numero" validate:"omitempty,max=11"`
}

// BoletoInput carries every record needed to validate or build one slip.
type BoletoInput struct {
	Cedente CedenteInput `json:"cedente" yaml:"cedente"`
	Sacado  SacadoInput  `json:"sacado" yaml:"sacado"`
	Conta   ContaInput   `json:"conta" yaml:"conta"`
	Titulo  TituloInput  `json:"titulo" yaml:"titulo"`
}

// LoteInput is a cnabctl remessa input file.
type LoteInput struct {
	Layout    string        `json:"layout" yaml:"layout" validate:"omitempty,oneof=240 400"`
	Sequencia int           `json:"sequencia" yaml:"sequencia" validate:"gte=0"`
	Cedente   CedenteInput  `json:"cedente" yaml:"cedente"`
	Conta     ContaInput    `json:"conta" yaml:"conta"`
	Titulos   []TituloInput `json:"titulos" yaml:"titulos" validate:"required,min=1,dive"`
	Sacados   []SacadoInput `json:"sacados" yaml:"sacados" validate:"dive"`
}

// RemessaRequest is the body of POST /bordero/{id}/remessa/.
type RemessaRequest struct {
	Layout string `json:"layout" validate:"required,oneof=240 400"`
}

func (c CedenteInput) ToDomain() Cedente {
	return Cedente{Nome: strings.TrimSpace(c.Nome), Documento: strings.TrimSpace(c.Documento)}
}

func (s SacadoInput) ToDomain() Sacado {
	return Sacado{
		ID:        s.ID,
		Nome:      strings.TrimSpace(s.Nome),
		Documento: strings.TrimSpace(s.Documento),
		Endereco: Endereco{
			Logradouro: s.Logradouro,
			Bairro:     s.Bairro,
			CEP:        s.CEP,
			Cidade:     s.Cidade,
			UF:         strings.ToUpper(s.UF),
		},
	}
}

func (c ContaInput) ToDomain() ContaBancaria {
	return ContaBancaria{
		CodigoBanco: strings.TrimSpace(c.CodigoBanco),
		Agencia:     strings.TrimSpace(c.Agencia),
		AgenciaDV:   strings.TrimSpace(c.AgenciaDV),
		Conta:       strings.TrimSpace(c.Conta),
		ContaDV:     strings.TrimSpace(c.ContaDV),
		Carteira:    strings.TrimSpace(c.Carteira),
		Convenio:    strings.TrimSpace(c.Convenio),
		LogoVariant: c.LogoVariant,
	}
}

// ToDomain converts the payload. Empty dates and amounts stay null so the
// validator can report them as missing.
func (t TituloInput) ToDomain() (Titulo, error) {
	out := Titulo{
		ID:          t.ID,
		SacadoID:    t.SacadoID,
		Numero:      strings.TrimSpace(t.Numero),
		Serie:       t.Serie,
		Parcela:     t.Parcela,
		NossoNumero: strings.TrimSpace(t.NossoNumero),
		Status:      TituloAberto,
	}

	var err error
	if out.Emissao, err = parseDate("titulo.emissao", t.Emissao); err != nil {
		return Titulo{}, err
	}
	if out.Vencimento, err = parseDate("titulo.vencimento", t.Vencimento); err != nil {
		return Titulo{}, err
	}
	if v := strings.TrimSpace(t.Valor); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return Titulo{}, &ErrValidation{Field: "titulo.valor", Message: "not a decimal number"}
		}
		out.Valor = &d
	}
	return out, nil
}

func parseDate(field, v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(DateLayout, v)
	if err != nil {
		return time.Time{}, &ErrValidation{Field: field, Message: "expected YYYY-MM-DD"}
	}
	return d, nil
}
