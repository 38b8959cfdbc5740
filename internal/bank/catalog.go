// Package bank holds the static bank-code table (names, check digits,
// logo assets). It is parsed once from an embedded YAML file and never
// mutated afterwards.
package bank

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed banks.yaml
var catalogYAML []byte

// DefaultLocalPagamento is printed when a bank has no specific instruction.
const DefaultLocalPagamento = "PAGÁVEL EM QUALQUER BANCO ATÉ O VENCIMENTO"

// DefaultEspecieDoc is the document species printed for banks without one.
const DefaultEspecieDoc = "DM"

// Info describes one institution.
type Info struct {
	Code           string            `yaml:"code"`
	DV             string            `yaml:"dv"`
	Name           string            `yaml:"name"`
	CNABName       string            `yaml:"cnab_name"`
	URL            string            `yaml:"url"`
	LocalPagamento string            `yaml:"local_pagamento"`
	EspecieDoc     string            `yaml:"especie_doc"`
	Logos          map[string]string `yaml:"logos"`
}

// CodeWithDV renders the bank code as printed on slips ("341-7").
func (i Info) CodeWithDV() string {
	if i.DV == "" {
		return i.Code
	}
	return i.Code + "-" + i.DV
}

// Logo returns the asset for a visual variant, falling back to "default".
func (i Info) Logo(variant string) (string, bool) {
	if variant != "" {
		if p, ok := i.Logos[variant]; ok {
			return p, true
		}
	}
	p, ok := i.Logos["default"]
	return p, ok
}

type catalogFile struct {
	Banks []Info `yaml:"banks"`
}

var catalog = sync.OnceValue(func() map[string]Info {
	m, err := parse(catalogYAML)
	if err != nil {
		panic("bank catalog: " + err.Error())
	}
	return m
})

func parse(data []byte) (map[string]Info, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	m := make(map[string]Info, len(f.Banks))
	for _, b := range f.Banks {
		if len(b.Code) != 3 {
			return nil, fmt.Errorf("invalid bank code %q", b.Code)
		}
		if _, dup := m[b.Code]; dup {
			return nil, fmt.Errorf("duplicate bank code %q", b.Code)
		}
		m[b.Code] = b
	}
	return m, nil
}

// Lookup returns the catalog entry for a 3-digit bank code.
func Lookup(code string) (Info, bool) {
	i, ok := catalog()[code]
	return i, ok
}

// Name returns the institution name, or "BANCO <code>" for unknown codes.
func Name(code string) string {
	if i, ok := Lookup(code); ok {
		return i.Name
	}
	return "BANCO " + code
}

// CNABName returns the name written in CNAB headers.
func CNABName(code string) string {
	if i, ok := Lookup(code); ok && i.CNABName != "" {
		return i.CNABName
	}
	return Name(code)
}

// EspecieDoc returns the document species printed on the bank's slips.
func EspecieDoc(code string) string {
	if i, ok := Lookup(code); ok && i.EspecieDoc != "" {
		return i.EspecieDoc
	}
	return DefaultEspecieDoc
}

// Codes lists every catalogued bank code.
func Codes() []string {
	m := catalog()
	out := make([]string, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	return out
}
