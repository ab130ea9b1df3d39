package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixture is the YAML description of a simulated venue: instrument universes,
// top-of-book quotes and the paper balance. Universe indices follow list order.
type Fixture struct {
	Balance float64         `yaml:"balance"`
	Perp    []AssetFixture  `yaml:"perp"`
	Spot    []PairFixture   `yaml:"spot"`
	Books   map[string]Quote `yaml:"books"`
}

// AssetFixture is one perpetual instrument.
type AssetFixture struct {
	Name         string `yaml:"name"`
	SizeDecimals int    `yaml:"szDecimals"`
}

// PairFixture is one spot pair with its base-token alias.
type PairFixture struct {
	Name         string `yaml:"name"` // pair display name, e.g. PURR/USDC
	Base         string `yaml:"base"` // base token, e.g. PURR
	SizeDecimals int    `yaml:"szDecimals"`
}

// Quote is a top-of-book snapshot.
type Quote struct {
	Bid float64 `yaml:"bid"`
	Ask float64 `yaml:"ask"`
}

// LoadFixture reads a venue fixture from a YAML file.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	if err := f.validate(); err != nil {
		return Fixture{}, err
	}
	return f, nil
}

// DefaultFixture returns a small built-in venue for local development when no
// fixture file is configured.
func DefaultFixture() Fixture {
	return Fixture{
		Balance: 100000,
		Perp: []AssetFixture{
			{Name: "BTC", SizeDecimals: 5},
			{Name: "ETH", SizeDecimals: 4},
			{Name: "SOL", SizeDecimals: 2},
		},
		Spot: []PairFixture{
			{Name: "PURR/USDC", Base: "PURR", SizeDecimals: 0},
			{Name: "HYPE/USDC", Base: "HYPE", SizeDecimals: 2},
		},
		Books: map[string]Quote{
			"BTC":       {Bid: 64990, Ask: 65010},
			"ETH":       {Bid: 3399, Ask: 3401},
			"SOL":       {Bid: 149.95, Ask: 150.05},
			"PURR/USDC": {Bid: 0.1795, Ask: 0.1805},
			"HYPE/USDC": {Bid: 24.95, Ask: 25.05},
		},
	}
}

func (f Fixture) validate() error {
	if f.Balance < 0 {
		return fmt.Errorf("fixture balance must not be negative, got %v", f.Balance)
	}
	seen := make(map[string]bool)
	for _, a := range f.Perp {
		if a.Name == "" {
			return fmt.Errorf("perp instrument with empty name")
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate perp instrument %q", a.Name)
		}
		seen[a.Name] = true
	}
	for _, p := range f.Spot {
		if p.Name == "" || p.Base == "" {
			return fmt.Errorf("spot pair needs both name and base, got %+v", p)
		}
	}
	for sym, q := range f.Books {
		if q.Bid < 0 || q.Ask < 0 {
			return fmt.Errorf("book %s has negative quotes", sym)
		}
	}
	return nil
}
