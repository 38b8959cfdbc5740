package port

import (
	"context"
	"time"

	"github.com/boddenberg/pj-cobranca-go/internal/domain"

	"github.com/shopspring/decimal"
)

// CobrancaStore reads the records behind boletos and remessas and writes
// back the few fields this service owns (linha digitável, boleto URL,
// status and payment data). Missing records return *domain.ErrNotFound.
type CobrancaStore interface {
	GetTitulo(ctx context.Context, id string) (*domain.Titulo, error)
	ListTitulosByBordero(ctx context.Context, borderoID string) ([]domain.Titulo, error)
	FindTituloByNossoNumero(ctx context.Context, nossoNumero string) (*domain.Titulo, error)
	GetBordero(ctx context.Context, id string) (*domain.Bordero, error)
	GetCedente(ctx context.Context, id string) (*domain.Cedente, error)
	GetSacado(ctx context.Context, id string) (*domain.Sacado, error)
	GetContaBancaria(ctx context.Context, id string) (*domain.ContaBancaria, error)

	SaveBoleto(ctx context.Context, tituloID, linhaDigitavel, boletoURL string) error
	UpdateTituloStatus(ctx context.Context, tituloID, status string) error
	RegisterPayment(ctx context.Context, tituloID string, valor decimal.Decimal, data time.Time) error
	SaveRemessa(ctx context.Context, borderoID string, r *domain.RemessaFile) error

	Ping(ctx context.Context) error
}
