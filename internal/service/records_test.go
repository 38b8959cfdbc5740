package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/boddenberg/pj-cobranca-go/internal/domain"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/observability"
	"github.com/boddenberg/pj-cobranca-go/internal/service"
)

func TestRecords_ContaServedFromCache(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first, err := e.records.Conta(ctx, "k-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	changed := first
	changed.Agencia = "9999"
	e.store.PutContaBancaria(changed)

	second, err := e.records.Conta(ctx, "k-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Agencia != "1234" {
		t.Errorf("expected cached agencia 1234, got %s", second.Agencia)
	}
	if rate := e.metrics.Snapshot().CacheHitRate; rate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %v", rate)
	}
}

func TestRecords_CedenteServedFromCache(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.records.Cedente(ctx, "c-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e.store.PutCedente(domain.Cedente{ID: "c-1", Nome: "Outra", Documento: "1"})

	c, err := e.records.Cedente(ctx, "c-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Nome != "Empresa XPTO Ltda" {
		t.Errorf("expected cached cedente, got %q", c.Nome)
	}
}

func TestRecords_NotFoundIsNotCached(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.records.Conta(ctx, "k-new")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	e.store.PutContaBancaria(domain.ContaBancaria{ID: "k-new", CodigoBanco: "001"})
	c, err := e.records.Conta(ctx, "k-new")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.CodigoBanco != "001" {
		t.Errorf("expected bank 001, got %s", c.CodigoBanco)
	}
}

func TestRecords_NilCachesAlwaysLoad(t *testing.T) {
	e := newEnv(t)
	metrics := observability.NewMetrics()
	records := service.NewRecords(e.store, nil, nil, metrics)
	ctx := context.Background()

	if _, err := records.Conta(ctx, "k-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e.store.PutContaBancaria(domain.ContaBancaria{ID: "k-1", CodigoBanco: "341", Agencia: "9999"})

	c, err := records.Conta(ctx, "k-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Agencia != "9999" {
		t.Errorf("expected fresh agencia 9999, got %s", c.Agencia)
	}
	if rate := metrics.Snapshot().CacheHitRate; rate != 0 {
		t.Errorf("expected no hits, got rate %v", rate)
	}
}
