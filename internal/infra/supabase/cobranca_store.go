package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/boddenberg/pj-cobranca-go/internal/boleto"
	"github.com/boddenberg/pj-cobranca-go/internal/domain"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/resilience"
	"github.com/boddenberg/pj-cobranca-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

var _ port.CobrancaStore = (*Client)(nil)

// ============================================================
// Row mappings (PostgREST columns)
// ============================================================

type tituloRow struct {
	ID              string           `json:"id"`
	CedenteID       string           `json:"cedente_id"`
	ContaBancariaID string           `json:"conta_bancaria_id"`
	SacadoID        string           `json:"sacado_id"`
	BorderoID       string           `json:"bordero_id"`
	Numero          string           `json:"numero"`
	Serie           string           `json:"serie"`
	Parcela         int              `json:"parcela"`
	Emissao         string           `json:"emissao"`
	Vencimento      string           `json:"vencimento"`
	Valor           *decimal.Decimal `json:"valor"`
	NossoNumero     string           `json:"nosso_numero"`
	LinhaDigitavel  string           `json:"linha_digitavel"`
	BoletoURL       string           `json:"boleto_url"`
	Status          string           `json:"status"`
	ValorPago       *decimal.Decimal `json:"valor_pago"`
	DataPagamento   string           `json:"data_pagamento"`
}

func (r tituloRow) toDomain() domain.Titulo {
	t := domain.Titulo{
		ID:              r.ID,
		CedenteID:       r.CedenteID,
		ContaBancariaID: r.ContaBancariaID,
		SacadoID:        r.SacadoID,
		BorderoID:       r.BorderoID,
		Numero:          r.Numero,
		Serie:           r.Serie,
		Parcela:         r.Parcela,
		Emissao:         parseDate(r.Emissao),
		Vencimento:      parseDate(r.Vencimento),
		Valor:           r.Valor,
		NossoNumero:     r.NossoNumero,
		LinhaDigitavel:  r.LinhaDigitavel,
		BoletoURL:       r.BoletoURL,
		Status:          r.Status,
		ValorPago:       r.ValorPago,
	}
	if t.Status == "" {
		t.Status = domain.TituloAberto
	}
	if d := parseDate(r.DataPagamento); !d.IsZero() {
		t.DataPagamento = &d
	}
	return t
}

type sacadoRow struct {
	ID         string `json:"id"`
	Nome       string `json:"nome"`
	Documento  string `json:"documento"`
	Logradouro string `json:"logradouro"`
	Bairro     string `json:"bairro"`
	CEP        string `json:"cep"`
	Cidade     string `json:"cidade"`
	UF         string `json:"uf"`
}

type contaRow struct {
	ID          string `json:"id"`
	CedenteID   string `json:"cedente_id"`
	CodigoBanco string `json:"codigo_banco"`
	Agencia     string `json:"agencia"`
	AgenciaDV   string `json:"agencia_dv"`
	Conta       string `json:"conta"`
	ContaDV     string `json:"conta_dv"`
	Carteira    string `json:"carteira"`
	Convenio    string `json:"convenio"`
	LogoVariant string `json:"logo_variant"`
}

// parseDate accepts PostgREST date and timestamptz columns. Null or
// unparsable values yield the zero time.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(domain.DateLayout, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// ============================================================
// Reads
// ============================================================

func (c *Client) GetTitulo(ctx context.Context, id string) (*domain.Titulo, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetTitulo")
	defer span.End()
	span.SetAttributes(attribute.String("titulo.id", id))

	var titulo *domain.Titulo
	err := c.call(ctx, "titulos", func() error {
		var rows []tituloRow
		found, err := c.getRows(ctx, "titulos?id=eq."+url.QueryEscape(id)+"&limit=1", &rows)
		if err != nil {
			return err
		}
		if !found {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "titulo", ID: id})
		}
		t := rows[0].toDomain()
		titulo = &t
		return nil
	})
	return titulo, err
}

func (c *Client) ListTitulosByBordero(ctx context.Context, borderoID string) ([]domain.Titulo, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTitulosByBordero")
	defer span.End()
	span.SetAttributes(attribute.String("bordero.id", borderoID))

	titulos := []domain.Titulo{}
	err := c.call(ctx, "titulos", func() error {
		var rows []tituloRow
		path := "titulos?bordero_id=eq." + url.QueryEscape(borderoID) + "&order=numero.asc,parcela.asc"
		if _, err := c.getRows(ctx, path, &rows); err != nil {
			return err
		}
		titulos = make([]domain.Titulo, 0, len(rows))
		for _, r := range rows {
			titulos = append(titulos, r.toDomain())
		}
		return nil
	})
	return titulos, err
}

// FindTituloByNossoNumero matches the stored value with or without left
// zero padding.
func (c *Client) FindTituloByNossoNumero(ctx context.Context, nossoNumero string) (*domain.Titulo, error) {
	ctx, span := tracer.Start(ctx, "Supabase.FindTituloByNossoNumero")
	defer span.End()

	padded := boleto.FitDigits(nossoNumero, 11)
	bare := strings.TrimLeft(padded, "0")
	if bare == "" {
		bare = "0"
	}

	var titulo *domain.Titulo
	err := c.call(ctx, "titulos", func() error {
		var rows []tituloRow
		path := fmt.Sprintf("titulos?nosso_numero=in.(%s,%s)&limit=1", padded, bare)
		found, err := c.getRows(ctx, path, &rows)
		if err != nil {
			return err
		}
		if !found {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "titulo", ID: nossoNumero})
		}
		t := rows[0].toDomain()
		titulo = &t
		return nil
	})
	return titulo, err
}

func (c *Client) GetBordero(ctx context.Context, id string) (*domain.Bordero, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetBordero")
	defer span.End()

	var bordero *domain.Bordero
	err := c.call(ctx, "borderos", func() error {
		var rows []domain.Bordero
		found, err := c.getRows(ctx, "borderos?id=eq."+url.QueryEscape(id)+"&limit=1", &rows)
		if err != nil {
			return err
		}
		if !found {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "bordero", ID: id})
		}
		bordero = &rows[0]
		return nil
	})
	return bordero, err
}

func (c *Client) GetCedente(ctx context.Context, id string) (*domain.Cedente, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCedente")
	defer span.End()

	var cedente *domain.Cedente
	err := c.call(ctx, "cedentes", func() error {
		var rows []domain.Cedente
		found, err := c.getRows(ctx, "cedentes?id=eq."+url.QueryEscape(id)+"&limit=1", &rows)
		if err != nil {
			return err
		}
		if !found {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "cedente", ID: id})
		}
		cedente = &rows[0]
		return nil
	})
	return cedente, err
}

func (c *Client) GetSacado(ctx context.Context, id string) (*domain.Sacado, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetSacado")
	defer span.End()

	var sacado *domain.Sacado
	err := c.call(ctx, "sacados", func() error {
		var rows []sacadoRow
		found, err := c.getRows(ctx, "sacados?id=eq."+url.QueryEscape(id)+"&limit=1", &rows)
		if err != nil {
			return err
		}
		if !found {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "sacado", ID: id})
		}
		r := rows[0]
		sacado = &domain.Sacado{
			ID: r.ID, Nome: r.Nome, Documento: r.Documento,
			Endereco: domain.Endereco{
				Logradouro: r.Logradouro, Bairro: r.Bairro, CEP: r.CEP, Cidade: r.Cidade, UF: r.UF,
			},
		}
		return nil
	})
	return sacado, err
}

func (c *Client) GetContaBancaria(ctx context.Context, id string) (*domain.ContaBancaria, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetContaBancaria")
	defer span.End()

	var conta *domain.ContaBancaria
	err := c.call(ctx, "contas_bancarias", func() error {
		var rows []contaRow
		found, err := c.getRows(ctx, "contas_bancarias?id=eq."+url.QueryEscape(id)+"&limit=1", &rows)
		if err != nil {
			return err
		}
		if !found {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "conta_bancaria", ID: id})
		}
		cb := domain.ContaBancaria(rows[0])
		conta = &cb
		return nil
	})
	return conta, err
}

// ============================================================
// Writes
// ============================================================

// SaveBoleto stores the linha digitável and slip location. An open titulo
// moves to emitido; any other status is left alone.
func (c *Client) SaveBoleto(ctx context.Context, tituloID, linha, boletoURL string) error {
	ctx, span := tracer.Start(ctx, "Supabase.SaveBoleto")
	defer span.End()

	return c.call(ctx, "titulos", func() error {
		id := url.QueryEscape(tituloID)
		n, err := c.doPatch(ctx, "titulos?id=eq."+id, map[string]any{
			"linha_digitavel": linha,
			"boleto_url":      boletoURL,
		})
		if err != nil {
			return err
		}
		if n == 0 {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "titulo", ID: tituloID})
		}
		_, err = c.doPatch(ctx, "titulos?id=eq."+id+"&status=eq."+domain.TituloAberto, map[string]any{
			"status": domain.TituloEmitido,
		})
		return err
	})
}

func (c *Client) UpdateTituloStatus(ctx context.Context, tituloID, status string) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateTituloStatus")
	defer span.End()
	span.SetAttributes(attribute.String("titulo.status", status))

	return c.patchTitulo(ctx, tituloID, map[string]any{"status": status})
}

func (c *Client) RegisterPayment(ctx context.Context, tituloID string, valor decimal.Decimal, data time.Time) error {
	ctx, span := tracer.Start(ctx, "Supabase.RegisterPayment")
	defer span.End()

	return c.patchTitulo(ctx, tituloID, map[string]any{
		"valor_pago":     valor.StringFixed(2),
		"data_pagamento": data.Format(domain.DateLayout),
		"status":         domain.TituloPago,
	})
}

func (c *Client) patchTitulo(ctx context.Context, tituloID string, fields map[string]any) error {
	return c.call(ctx, "titulos", func() error {
		n, err := c.doPatch(ctx, "titulos?id=eq."+url.QueryEscape(tituloID), fields)
		if err != nil {
			return err
		}
		if n == 0 {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "titulo", ID: tituloID})
		}
		return nil
	})
}

// SaveRemessa records the generated file. The content itself stays on disk.
func (c *Client) SaveRemessa(ctx context.Context, borderoID string, r *domain.RemessaFile) error {
	ctx, span := tracer.Start(ctx, "Supabase.SaveRemessa")
	defer span.End()
	span.SetAttributes(
		attribute.String("bordero.id", borderoID),
		attribute.String("remessa.banco", r.Banco),
		attribute.String("remessa.layout", r.Layout),
	)

	return c.call(ctx, "remessas", func() error {
		_, err := c.doPost(ctx, "remessas", map[string]any{
			"id":            r.ID,
			"bordero_id":    borderoID,
			"banco":         r.Banco,
			"layout":        r.Layout,
			"sequencia":     r.Sequencia,
			"registros":     r.Registros,
			"titulos":       r.Titulos,
			"authoritative": r.Authoritative,
			"path":          r.Path,
			"gerado_em":     r.GeradoEm.Format(time.RFC3339),
		})
		return err
	})
}

// Ping checks PostgREST reachability for /readyz.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.Ping")
	defer span.End()

	return c.call(ctx, "ping", func() error {
		_, err := c.doRequest(ctx, http.MethodGet, "titulos?select=id&limit=1", nil)
		return err
	})
}
