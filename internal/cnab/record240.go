package cnab

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ============================================================
// CNAB 240 records (FEBRABAN layout, cobrança)
// ============================================================

// Account identifies the beneficiary's account in header and segment records.
type Account struct {
	Banco     BankCode
	Agencia   string
	AgenciaDV string
	Conta     string
	ContaDV   string
	Convenio  string
}

// FileHeader240 is record type 0.
type FileHeader240 struct {
	Account
	Documento string
	Empresa   string
	NomeBanco string
	GeradoEm  time.Time
	Sequencia int
	Versao    string
}

func (h FileHeader240) Encode(log *zap.Logger) (string, error) {
	w := newRecord("header_arquivo_240", 240, log)
	w.num("banco", 1, 3, string(h.Banco))
	w.lit("lote", 4, 7, "0000")
	w.lit("tipo_registro", 8, 8, "0")
	w.number("tipo_inscricao", 18, 18, tipoInscricao(h.Documento))
	w.num("inscricao", 19, 32, h.Documento)
	w.alpha("convenio", 33, 52, h.Convenio)
	w.num("agencia", 53, 57, h.Agencia)
	w.alpha("agencia_dv", 58, 58, h.AgenciaDV)
	w.num("conta", 59, 70, h.Conta)
	w.alpha("conta_dv", 71, 71, h.ContaDV)
	w.alpha("empresa", 73, 102, h.Empresa)
	w.alpha("nome_banco", 103, 132, h.NomeBanco)
	w.lit("codigo_remessa", 143, 143, "1")
	w.date("data_geracao", 144, 151, h.GeradoEm, dateLong)
	w.num("hora_geracao", 152, 157, h.GeradoEm.Format(timeHHMMSS))
	w.number("sequencia", 158, 163, h.Sequencia)
	w.num("versao_layout", 164, 166, h.Versao)
	w.lit("densidade", 167, 171, "01600")
	return w.String()
}

// BatchHeader240 is record type 1.
type BatchHeader240 struct {
	Account
	Documento string
	Empresa   string
	Versao    string
	Sequencia int
	GravadoEm time.Time
	Mensagem  string
}

func (h BatchHeader240) Encode(log *zap.Logger) (string, error) {
	w := newRecord("header_lote_240", 240, log)
	w.num("banco", 1, 3, string(h.Banco))
	w.lit("lote", 4, 7, "0001")
	w.lit("tipo_registro", 8, 8, "1")
	w.lit("operacao", 9, 9, "R")
	w.lit("servico", 10, 11, "01")
	w.num("versao_lote", 14, 16, h.Versao)
	w.number("tipo_inscricao", 18, 18, tipoInscricao(h.Documento))
	w.num("inscricao", 19, 33, h.Documento)
	w.alpha("convenio", 34, 53, h.Convenio)
	w.num("agencia", 54, 58, h.Agencia)
	w.alpha("agencia_dv", 59, 59, h.AgenciaDV)
	w.num("conta", 60, 71, h.Conta)
	w.alpha("conta_dv", 72, 72, h.ContaDV)
	w.alpha("empresa", 74, 103, h.Empresa)
	w.alpha("mensagem_1", 104, 143, h.Mensagem)
	w.number("numero_remessa", 184, 191, h.Sequencia)
	w.date("data_gravacao", 192, 199, h.GravadoEm, dateLong)
	w.num("data_credito", 200, 207, "0")
	return w.String()
}

// SegmentP carries the titulo: identification, due date, amount and species.
type SegmentP struct {
	Account
	SeqLote     int
	NossoNumero string // 20 positions, already composed for the bank
	NumeroDoc   string
	Vencimento  time.Time
	Valor       *decimal.Decimal
	Especie     string
	Emissao     time.Time
	UsoEmpresa  string
}

func (s SegmentP) Encode(log *zap.Logger) (string, error) {
	w := newRecord("segmento_p", 240, log)
	w.num("banco", 1, 3, string(s.Banco))
	w.lit("lote", 4, 7, "0001")
	w.lit("tipo_registro", 8, 8, "3")
	w.number("seq_lote", 9, 13, s.SeqLote)
	w.lit("segmento", 14, 14, "P")
	w.lit("movimento", 16, 17, "01")
	w.num("agencia", 18, 22, s.Agencia)
	w.alpha("agencia_dv", 23, 23, s.AgenciaDV)
	w.num("conta", 24, 35, s.Conta)
	w.alpha("conta_dv", 36, 36, s.ContaDV)
	w.alpha("nosso_numero", 38, 57, s.NossoNumero)
	w.lit("carteira", 58, 58, "1")
	w.lit("cadastramento", 59, 59, "1")
	w.lit("tipo_documento", 60, 60, "1")
	w.lit("emissao_boleto", 61, 61, "2")
	w.lit("distribuicao", 62, 62, "2")
	w.alpha("numero_documento", 63, 77, s.NumeroDoc)
	w.date("vencimento", 78, 85, s.Vencimento, dateLong)
	w.money("valor", 86, 100, s.Valor)
	w.num("agencia_cobradora", 101, 105, "0")
	w.num("especie", 107, 108, s.Especie)
	w.lit("aceite", 109, 109, "N")
	w.date("data_emissao", 110, 117, s.Emissao, dateLong)
	w.lit("codigo_juros", 118, 118, "3")
	w.num("data_juros", 119, 126, "0")
	w.num("juros", 127, 141, "0")
	w.lit("codigo_desconto", 142, 142, "0")
	w.num("data_desconto", 143, 150, "0")
	w.num("desconto", 151, 165, "0")
	w.num("iof", 166, 180, "0")
	w.num("abatimento", 181, 195, "0")
	w.alpha("uso_empresa", 196, 220, s.UsoEmpresa)
	w.lit("codigo_protesto", 221, 221, "3")
	w.num("prazo_protesto", 222, 223, "0")
	w.lit("codigo_baixa", 224, 224, "0")
	w.num("prazo_baixa", 225, 227, "0")
	w.lit("moeda", 228, 229, "09")
	w.num("contrato", 230, 239, "0")
	return w.String()
}

// SegmentQ carries the payer. Every field may be empty.
type SegmentQ struct {
	Banco      BankCode
	SeqLote    int
	Documento  string
	Nome       string
	Logradouro string
	Bairro     string
	CEP        string
	Cidade     string
	UF         string
}

func (s SegmentQ) Encode(log *zap.Logger) (string, error) {
	cep, sufixo := splitCEP(s.CEP)

	w := newRecord("segmento_q", 240, log)
	w.num("banco", 1, 3, string(s.Banco))
	w.lit("lote", 4, 7, "0001")
	w.lit("tipo_registro", 8, 8, "3")
	w.number("seq_lote", 9, 13, s.SeqLote)
	w.lit("segmento", 14, 14, "Q")
	w.lit("movimento", 16, 17, "01")
	w.number("tipo_inscricao", 18, 18, tipoInscricao(s.Documento))
	w.num("inscricao", 19, 33, s.Documento)
	w.alpha("nome", 34, 73, s.Nome)
	w.alpha("endereco", 74, 113, s.Logradouro)
	w.alpha("bairro", 114, 128, s.Bairro)
	w.num("cep", 129, 133, cep)
	w.num("cep_sufixo", 134, 136, sufixo)
	w.alpha("cidade", 137, 151, s.Cidade)
	w.alpha("uf", 152, 153, s.UF)
	w.lit("tipo_inscricao_avalista", 154, 154, "0")
	w.num("inscricao_avalista", 155, 169, "0")
	w.num("banco_correspondente", 210, 212, "0")
	return w.String()
}

// BatchTrailer240 is record type 5.
type BatchTrailer240 struct {
	Banco     BankCode
	Registros int // including batch header and trailer
	Titulos   int
	Total     decimal.Decimal
}

func (t BatchTrailer240) Encode(log *zap.Logger) (string, error) {
	w := newRecord("trailer_lote_240", 240, log)
	w.num("banco", 1, 3, string(t.Banco))
	w.lit("lote", 4, 7, "0001")
	w.lit("tipo_registro", 8, 8, "5")
	w.number("registros", 18, 23, t.Registros)
	w.number("titulos", 24, 29, t.Titulos)
	w.money("valor_total", 30, 46, &t.Total)
	return w.String()
}

// FileTrailer240 is record type 9.
type FileTrailer240 struct {
	Banco     BankCode
	Lotes     int
	Registros int
}

func (t FileTrailer240) Encode(log *zap.Logger) (string, error) {
	w := newRecord("trailer_arquivo_240", 240, log)
	w.num("banco", 1, 3, string(t.Banco))
	w.lit("lote", 4, 7, "9999")
	w.lit("tipo_registro", 8, 8, "9")
	w.number("lotes", 18, 23, t.Lotes)
	w.number("registros", 24, 29, t.Registros)
	w.num("contas_conciliacao", 30, 35, "0")
	return w.String()
}
