package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/infrastructure/config"
)

func TestLoadChartDefault(t *testing.T) {
	chart, err := config.LoadChart("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if chart.Control.Receivable != "1200" || chart.Control.Payable != "2000" || chart.Control.OpeningEquity != "3000" {
		t.Fatalf("unexpected control roles: %+v", chart.Control)
	}

	accounts := chart.DomainAccounts()
	if len(accounts) != len(chart.Accounts) {
		t.Fatalf("expected %d accounts, got %d", len(chart.Accounts), len(accounts))
	}
	if accounts[0].ID != "1000" || accounts[0].Type != domain.AccountTypeAsset {
		t.Fatalf("unexpected first account: %+v", accounts[0])
	}
}

func TestLoadChartFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.yaml")
	data := `
accounts:
  - {code: "100", name: Cash, type: asset}
  - {code: "110", name: Receivables, type: asset}
  - {code: "200", name: Payables, type: liability}
  - {code: "300", name: Equity, type: equity}
control:
  receivable: "110"
  payable: "200"
  opening_equity: "300"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write chart: %v", err)
	}

	chart, err := config.LoadChart(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chart.Accounts) != 4 || chart.Control.Receivable != "110" {
		t.Fatalf("unexpected chart: %+v", chart)
	}
}

func TestParseChartRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{
			name: "empty",
			data: "accounts: []",
			want: "empty",
		},
		{
			name: "duplicate code",
			data: `
accounts:
  - {code: "1", name: A, type: asset}
  - {code: "1", name: B, type: asset}`,
			want: "duplicate",
		},
		{
			name: "bad type",
			data: `
accounts:
  - {code: "1", name: A, type: cash}`,
			want: "invalid account type",
		},
		{
			name: "missing control",
			data: `
accounts:
  - {code: "1", name: A, type: asset}
control:
  receivable: "1"
  payable: "2"
  opening_equity: "3"`,
			want: "not defined",
		},
		{
			name: "wrong control type",
			data: `
accounts:
  - {code: "1", name: A, type: asset}
  - {code: "2", name: B, type: asset}
  - {code: "3", name: C, type: equity}
control:
  receivable: "1"
  payable: "2"
  opening_equity: "3"`,
			want: "must be liability",
		},
		{
			name: "malformed",
			data: "accounts: {",
			want: "parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.ParseChart([]byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadChartMissingFile(t *testing.T) {
	if _, err := config.LoadChart(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
