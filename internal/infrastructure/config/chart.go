package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iho/genfin/internal/domain"
)

//go:embed default_chart.yaml
var defaultChart []byte

// Chart is the chart of accounts the books are seeded with.
type Chart struct {
	Accounts []ChartAccount `yaml:"accounts"`
	Control  ControlRoles   `yaml:"control"`
}

// ChartAccount is one account definition.
type ChartAccount struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// ControlRoles names the accounts posted to implicitly.
type ControlRoles struct {
	Receivable    string `yaml:"receivable"`
	Payable       string `yaml:"payable"`
	OpeningEquity string `yaml:"opening_equity"`
}

// LoadChart reads the chart from path, or the built-in chart when path is empty.
func LoadChart(path string) (*Chart, error) {
	data := defaultChart
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read chart of accounts: %w", err)
		}
	}

	return ParseChart(data)
}

// ParseChart decodes and validates a YAML chart.
func ParseChart(data []byte) (*Chart, error) {
	var chart Chart
	if err := yaml.Unmarshal(data, &chart); err != nil {
		return nil, fmt.Errorf("failed to parse chart of accounts: %w", err)
	}

	if err := chart.validate(); err != nil {
		return nil, err
	}

	return &chart, nil
}

func (c *Chart) validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("chart of accounts is empty")
	}

	types := make(map[string]domain.AccountType, len(c.Accounts))
	for _, a := range c.Accounts {
		if _, dup := types[a.Code]; dup {
			return fmt.Errorf("chart of accounts: duplicate code %q", a.Code)
		}

		account := domain.Account{ID: a.Code, Code: a.Code, Name: a.Name, Type: domain.AccountType(a.Type)}
		if err := account.Validate(); err != nil {
			return fmt.Errorf("chart of accounts: account %q: %w", a.Code, err)
		}
		types[a.Code] = account.Type
	}

	roles := []struct {
		name string
		code string
		want domain.AccountType
	}{
		{"receivable", c.Control.Receivable, domain.AccountTypeAsset},
		{"payable", c.Control.Payable, domain.AccountTypeLiability},
		{"opening_equity", c.Control.OpeningEquity, domain.AccountTypeEquity},
	}
	for _, r := range roles {
		got, ok := types[r.code]
		if !ok {
			return fmt.Errorf("chart of accounts: control %s account %q is not defined", r.name, r.code)
		}
		if got != r.want {
			return fmt.Errorf("chart of accounts: control %s account %q must be %s, got %s", r.name, r.code, r.want, got)
		}
	}

	return nil
}

// DomainAccounts converts the chart into accounts keyed by code.
func (c *Chart) DomainAccounts() []*domain.Account {
	accounts := make([]*domain.Account, 0, len(c.Accounts))
	for _, a := range c.Accounts {
		accounts = append(accounts, &domain.Account{
			ID:   a.Code,
			Code: a.Code,
			Name: a.Name,
			Type: domain.AccountType(a.Type),
		})
	}
	return accounts
}
