package cnab

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ============================================================
// CNAB 400 records
// ============================================================
//
// Every record ends with its sequence number at 395-400; the trailer's
// sequence is the total record count of the file.

// Header400 is record type 0.
type Header400 struct {
	Account
	Empresa   string
	NomeBanco string
	GeradoEm  time.Time
	Sequencia int
}

func (h Header400) Encode(log *zap.Logger) (string, error) {
	w := newRecord("header_400", 400, log)
	w.lit("tipo_registro", 1, 1, "0")
	w.lit("operacao", 2, 2, "1")
	w.lit("literal_remessa", 3, 9, "REMESSA")
	w.lit("servico", 10, 11, "01")
	w.alpha("literal_servico", 12, 26, "COBRANCA")
	w.num("agencia", 27, 31, h.Agencia)
	w.num("conta", 32, 43, h.Conta)
	w.alpha("conta_dv", 44, 44, h.ContaDV)
	w.alpha("empresa", 47, 76, h.Empresa)
	w.num("banco", 77, 79, string(h.Banco))
	w.alpha("nome_banco", 80, 94, h.NomeBanco)
	w.date("data_gravacao", 95, 100, h.GeradoEm, dateShort)
	w.number("numero_remessa", 111, 117, h.Sequencia)
	w.number("sequencia", 395, 400, 1)
	return w.String()
}

// Detail400 is record type 1, one per titulo.
type Detail400 struct {
	Account
	Documento   string
	Carteira    string
	UsoEmpresa  string
	NossoNumero string // 20 positions, already composed for the bank
	NumeroDoc   string
	Vencimento  time.Time
	Valor       *decimal.Decimal
	Especie     string
	Emissao     time.Time

	SacadoDocumento  string
	SacadoNome       string
	SacadoLogradouro string
	SacadoBairro     string
	SacadoCEP        string
	SacadoCidade     string
	SacadoUF         string

	Sequencia int
}

func (d Detail400) Encode(log *zap.Logger) (string, error) {
	w := newRecord("detalhe_400", 400, log)
	w.lit("tipo_registro", 1, 1, "1")
	w.number("tipo_inscricao", 2, 3, tipoInscricao(d.Documento))
	w.num("inscricao", 4, 17, d.Documento)
	w.num("agencia", 18, 22, d.Agencia)
	w.num("conta", 23, 34, d.Conta)
	w.alpha("conta_dv", 35, 35, d.ContaDV)
	w.num("carteira", 36, 38, d.Carteira)
	w.alpha("uso_empresa", 39, 62, d.UsoEmpresa)
	w.alpha("nosso_numero", 63, 82, d.NossoNumero)
	w.lit("ocorrencia", 109, 110, "01")
	w.alpha("numero_documento", 111, 120, d.NumeroDoc)
	w.date("vencimento", 121, 126, d.Vencimento, dateShort)
	w.money("valor", 127, 139, d.Valor)
	w.num("banco_cobrador", 140, 142, string(d.Banco))
	w.num("agencia_depositaria", 143, 147, "0")
	w.num("especie", 148, 149, d.Especie)
	w.lit("aceite", 150, 150, "N")
	w.date("data_emissao", 151, 156, d.Emissao, dateShort)
	w.num("instrucoes", 157, 160, "0")
	w.num("juros", 161, 173, "0")
	w.num("data_desconto", 174, 179, "0")
	w.num("desconto", 180, 192, "0")
	w.num("iof", 193, 205, "0")
	w.num("abatimento", 206, 218, "0")
	w.number("tipo_inscricao_sacado", 219, 220, tipoInscricao(d.SacadoDocumento))
	w.num("inscricao_sacado", 221, 234, d.SacadoDocumento)
	w.alpha("nome_sacado", 235, 274, d.SacadoNome)
	w.alpha("endereco_sacado", 275, 314, d.SacadoLogradouro)
	w.alpha("bairro_sacado", 315, 326, d.SacadoBairro)
	w.num("cep_sacado", 327, 334, d.SacadoCEP)
	w.alpha("cidade_sacado", 335, 349, d.SacadoCidade)
	w.alpha("uf_sacado", 350, 351, d.SacadoUF)
	w.num("prazo", 392, 393, "0")
	w.number("sequencia", 395, 400, d.Sequencia)
	return w.String()
}

// Trailer400 is record type 9.
type Trailer400 struct {
	Sequencia int
}

func (t Trailer400) Encode(log *zap.Logger) (string, error) {
	w := newRecord("trailer_400", 400, log)
	w.lit("tipo_registro", 1, 1, "9")
	w.number("sequencia", 395, 400, t.Sequencia)
	return w.String()
}
