package bank_test

import (
	"testing"

	"github.com/boddenberg/pj-cobranca-go/internal/bank"
)

func TestLookup_SupportedBanks(t *testing.T) {
	want := map[string]string{
		"341": "341-7",
		"237": "237-2",
		"104": "104-0",
		"756": "756-0",
		"748": "748-X",
	}
	for code, withDV := range want {
		info, ok := bank.Lookup(code)
		if !ok {
			t.Fatalf("expected bank %s in catalog", code)
		}
		if info.CodeWithDV() != withDV {
			t.Errorf("bank %s: expected %s, got %s", code, withDV, info.CodeWithDV())
		}
		if info.Name == "" || info.CNABName == "" {
			t.Errorf("bank %s: missing names", code)
		}
	}
	if len(bank.Codes()) != len(want) {
		t.Errorf("expected %d banks, got %d", len(want), len(bank.Codes()))
	}
}

func TestName_UnknownBank(t *testing.T) {
	if got := bank.Name("001"); got != "BANCO 001" {
		t.Errorf("unexpected name %q", got)
	}
	if _, ok := bank.Lookup("001"); ok {
		t.Error("did not expect 001 in catalog")
	}
}

func TestLogo_VariantFallback(t *testing.T) {
	info, _ := bank.Lookup("341")

	if p, ok := info.Logo("mono"); !ok || p != "logos/341-mono.png" {
		t.Errorf("unexpected mono logo %q", p)
	}
	if p, ok := info.Logo("inexistente"); !ok || p != "logos/341.png" {
		t.Errorf("expected default logo, got %q", p)
	}
}

func TestEspecieDoc(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"341", "DM"},
		{"104", "DM"},
		{"748", "DMI"},
		{"001", bank.DefaultEspecieDoc},
	}
	for _, tc := range cases {
		if got := bank.EspecieDoc(tc.code); got != tc.want {
			t.Errorf("bank %s: expected %s, got %s", tc.code, tc.want, got)
		}
	}
}
