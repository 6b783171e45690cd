package erp

import (
	"errors"
	"testing"

	"github.com/kabsikabs/integration-core/internal/connpool"
)

func TestClassifyAuthErrorRecoverable(t *testing.T) {
	if got := classifyAuthError(errors.New("Access Denied")); got != connpool.ProbeErrorOAuthRecoverable {
		t.Fatalf("expected ProbeErrorOAuthRecoverable, got %v", got)
	}
}

func TestClassifyAuthErrorTransport(t *testing.T) {
	if got := classifyAuthError(errors.New("connection refused")); got != connpool.ProbeErrorTransport {
		t.Fatalf("expected ProbeErrorTransport, got %v", got)
	}
}

func TestComputePLMetricsGroupsByAccountType(t *testing.T) {
	rows := []any{
		map[string]any{"account_type": "income", "debit": float64(0), "credit": float64(100)},
		map[string]any{"account_type": "expense", "debit": float64(40), "credit": float64(0)},
		map[string]any{"account_type": "expense_direct_cost", "debit": float64(10), "credit": float64(0)},
	}
	metrics := computePLMetrics(rows)
	if metrics.TotalIncome != 100 {
		t.Fatalf("expected total_income 100, got %v", metrics.TotalIncome)
	}
	if metrics.TotalExpenses != 50 {
		t.Fatalf("expected total_expenses 50, got %v", metrics.TotalExpenses)
	}
	if metrics.NetProfit != 50 {
		t.Fatalf("expected net_profit 50, got %v", metrics.NetProfit)
	}
	if metrics.Breakdown.CostOfRevenue != 10 {
		t.Fatalf("expected cost_of_revenue 10, got %v", metrics.Breakdown.CostOfRevenue)
	}
}

func TestComputePLMetricsEmptyRows(t *testing.T) {
	metrics := computePLMetrics(nil)
	if metrics.TotalIncome != 0 || metrics.TotalExpenses != 0 || metrics.NetProfit != 0 {
		t.Fatalf("expected zero-value metrics, got %+v", metrics)
	}
}

func TestParseAccountRowsFiltersByType(t *testing.T) {
	rows := []any{
		map[string]any{"id": float64(1), "name": "Cash", "account_type": "asset_cash"},
		map[string]any{"id": float64(2), "name": "Sales", "account_type": "income"},
	}
	accounts := parseAccountRows(rows, []string{"income"}, 7)
	if len(accounts) != 1 || accounts[0].Name != "Sales" {
		t.Fatalf("unexpected filtered accounts: %+v", accounts)
	}
}

func TestParseAccountRowsNoFilterReturnsAll(t *testing.T) {
	rows := []any{
		map[string]any{"id": float64(1), "name": "Cash", "account_type": "asset_cash"},
	}
	accounts := parseAccountRows(rows, nil, 7)
	if len(accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(accounts))
	}
	if accounts[0].DisplayName != "Cash" {
		t.Fatalf("expected display_name to fall back to name, got %q", accounts[0].DisplayName)
	}
}
