package erp

import "testing"

func TestToIntHandlesFloat64(t *testing.T) {
	n, ok := toInt(float64(42))
	if !ok || n != 42 {
		t.Fatalf("expected 42, got %d ok=%v", n, ok)
	}
}

func TestToIntRejectsString(t *testing.T) {
	if _, ok := toInt("42"); ok {
		t.Fatal("expected toInt to reject a string")
	}
}

func TestMany2oneIDExtractsFirstElement(t *testing.T) {
	if id := many2oneID([]any{float64(7), "Bank Journal"}); id != 7 {
		t.Fatalf("expected 7, got %d", id)
	}
}

func TestMany2oneIDFalseWhenUnset(t *testing.T) {
	if id := many2oneID(false); id != 0 {
		t.Fatalf("expected 0 for unset many2one, got %d", id)
	}
}

func TestContainsString(t *testing.T) {
	if !containsString([]string{"income", "expense"}, "expense") {
		t.Fatal("expected expense to be found")
	}
	if containsString([]string{"income"}, "expense") {
		t.Fatal("expected expense not to be found")
	}
}

func TestFilterMoveLinesByJournalAndReconciled(t *testing.T) {
	lines := []BankStatementMoveLine{
		{ID: 1, JournalID: 10, IsReconciled: true},
		{ID: 2, JournalID: 10, IsReconciled: false},
		{ID: 3, JournalID: 20, IsReconciled: false},
	}
	journal := 10
	reconciled := false
	out := filterMoveLines(lines, &journal, &reconciled)
	if len(out) != 1 || out[0].ID != 2 {
		t.Fatalf("unexpected filter result: %+v", out)
	}
}

func TestFilterMoveLinesNoFiltersReturnsAll(t *testing.T) {
	lines := []BankStatementMoveLine{{ID: 1}, {ID: 2}}
	if out := filterMoveLines(lines, nil, nil); len(out) != 2 {
		t.Fatalf("expected all lines returned, got %d", len(out))
	}
}
