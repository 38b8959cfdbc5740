// Package memstore is an in-memory CobrancaStore, optionally seeded from a
// YAML file. It backs local runs, the CLI and tests when Supabase is off.
package memstore

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/boddenberg/pj-cobranca-go/internal/boleto"
	"github.com/boddenberg/pj-cobranca-go/internal/domain"
	"github.com/boddenberg/pj-cobranca-go/internal/port"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var _ port.CobrancaStore = (*Store)(nil)

// Store is a thread-safe in-memory implementation of port.CobrancaStore.
type Store struct {
	mu       sync.RWMutex
	titulos  map[string]domain.Titulo
	borderos map[string]domain.Bordero
	cedentes map[string]domain.Cedente
	sacados  map[string]domain.Sacado
	contas   map[string]domain.ContaBancaria
	remessas map[string][]domain.RemessaFile
}

// New creates an empty store.
func New() *Store {
	return &Store{
		titulos:  make(map[string]domain.Titulo),
		borderos: make(map[string]domain.Bordero),
		cedentes: make(map[string]domain.Cedente),
		sacados:  make(map[string]domain.Sacado),
		contas:   make(map[string]domain.ContaBancaria),
		remessas: make(map[string][]domain.RemessaFile),
	}
}

// ============================================================
// Seeding
// ============================================================

type seedCedente struct {
	ID                  string `yaml:"id"`
	domain.CedenteInput `yaml:",inline"`
}

type seedConta struct {
	ID                string `yaml:"id"`
	CedenteID         string `yaml:"cedente_id"`
	domain.ContaInput `yaml:",inline"`
}

type seedBordero struct {
	ID              string `yaml:"id"`
	CedenteID       string `yaml:"cedente_id"`
	ContaBancariaID string `yaml:"conta_bancaria_id"`
	Sequencia       int    `yaml:"sequencia"`
}

type seedTitulo struct {
	CedenteID          string `yaml:"cedente_id"`
	ContaBancariaID    string `yaml:"conta_bancaria_id"`
	BorderoID          string `yaml:"bordero_id"`
	Status             string `yaml:"status"`
	domain.TituloInput `yaml:",inline"`
}

type seedFile struct {
	Cedentes []seedCedente        `yaml:"cedentes"`
	Contas   []seedConta          `yaml:"contas"`
	Sacados  []domain.SacadoInput `yaml:"sacados"`
	Borderos []seedBordero        `yaml:"borderos"`
	Titulos  []seedTitulo         `yaml:"titulos"`
}

// Load creates a store seeded from a YAML file.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse creates a store seeded from YAML content.
func Parse(data []byte) (*Store, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	s := New()
	for _, c := range seed.Cedentes {
		ced := c.ToDomain()
		ced.ID = c.ID
		s.PutCedente(ced)
	}
	for _, c := range seed.Contas {
		conta := c.ToDomain()
		conta.ID, conta.CedenteID = c.ID, c.CedenteID
		s.PutContaBancaria(conta)
	}
	for _, sac := range seed.Sacados {
		s.PutSacado(sac.ToDomain())
	}
	for _, b := range seed.Borderos {
		s.PutBordero(domain.Bordero(b))
	}
	for _, t := range seed.Titulos {
		titulo, err := t.ToDomain()
		if err != nil {
			return nil, fmt.Errorf("titulo %s: %w", t.ID, err)
		}
		titulo.CedenteID = t.CedenteID
		titulo.ContaBancariaID = t.ContaBancariaID
		titulo.BorderoID = t.BorderoID
		if t.Status != "" {
			titulo.Status = t.Status
		}
		s.PutTitulo(titulo)
	}
	return s, nil
}

func (s *Store) PutTitulo(t domain.Titulo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titulos[t.ID] = t
}

func (s *Store) PutBordero(b domain.Bordero) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.borderos[b.ID] = b
}

func (s *Store) PutCedente(c domain.Cedente) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cedentes[c.ID] = c
}

func (s *Store) PutSacado(sac domain.Sacado) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sacados[sac.ID] = sac
}

func (s *Store) PutContaBancaria(c domain.ContaBancaria) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contas[c.ID] = c
}

// Remessas returns the remessa files recorded for a bordero, oldest first.
func (s *Store) Remessas(borderoID string) []domain.RemessaFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.RemessaFile(nil), s.remessas[borderoID]...)
}

// ============================================================
// port.CobrancaStore
// ============================================================

func (s *Store) GetTitulo(_ context.Context, id string) (*domain.Titulo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.titulos[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "titulo", ID: id}
	}
	return &t, nil
}

// ListTitulosByBordero returns the bordero's titulos ordered by number and installment.
func (s *Store) ListTitulosByBordero(_ context.Context, borderoID string) ([]domain.Titulo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Titulo{}
	for _, t := range s.titulos {
		if t.BorderoID == borderoID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Numero != out[j].Numero {
			return out[i].Numero < out[j].Numero
		}
		return out[i].Parcela < out[j].Parcela
	})
	return out, nil
}

// FindTituloByNossoNumero matches ignoring left zero padding.
func (s *Store) FindTituloByNossoNumero(_ context.Context, nossoNumero string) (*domain.Titulo, error) {
	want := boleto.FitDigits(nossoNumero, 11)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.titulos {
		if t.NossoNumero != "" && boleto.FitDigits(t.NossoNumero, 11) == want {
			return &t, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "titulo", ID: nossoNumero}
}

func (s *Store) GetBordero(_ context.Context, id string) (*domain.Bordero, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.borderos[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "bordero", ID: id}
	}
	return &b, nil
}

func (s *Store) GetCedente(_ context.Context, id string) (*domain.Cedente, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cedentes[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "cedente", ID: id}
	}
	return &c, nil
}

func (s *Store) GetSacado(_ context.Context, id string) (*domain.Sacado, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sac, ok := s.sacados[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "sacado", ID: id}
	}
	return &sac, nil
}

func (s *Store) GetContaBancaria(_ context.Context, id string) (*domain.ContaBancaria, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contas[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "conta_bancaria", ID: id}
	}
	return &c, nil
}

func (s *Store) SaveBoleto(_ context.Context, tituloID, linha, url string) error {
	return s.update(tituloID, func(t *domain.Titulo) {
		t.LinhaDigitavel = linha
		t.BoletoURL = url
		if t.Status == domain.TituloAberto || t.Status == "" {
			t.Status = domain.TituloEmitido
		}
	})
}

func (s *Store) UpdateTituloStatus(_ context.Context, tituloID, status string) error {
	return s.update(tituloID, func(t *domain.Titulo) { t.Status = status })
}

func (s *Store) RegisterPayment(_ context.Context, tituloID string, valor decimal.Decimal, data time.Time) error {
	return s.update(tituloID, func(t *domain.Titulo) {
		v, d := valor, data
		t.ValorPago = &v
		t.DataPagamento = &d
		t.Status = domain.TituloPago
	})
}

func (s *Store) SaveRemessa(_ context.Context, borderoID string, r *domain.RemessaFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remessas[borderoID] = append(s.remessas[borderoID], *r)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) update(tituloID string, fn func(*domain.Titulo)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.titulos[tituloID]
	if !ok {
		return &domain.ErrNotFound{Resource: "titulo", ID: tituloID}
	}
	fn(&t)
	s.titulos[tituloID] = t
	return nil
}
