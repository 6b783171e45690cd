package alerting

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewNotifierDisabledWithoutToken(t *testing.T) {
	n := NewNotifier("", "#alerts", discardLogger())
	if n.IsEnabled() {
		t.Fatal("expected notifier to be disabled without a bot token")
	}
}

func TestNewNotifierDisabledWithoutChannel(t *testing.T) {
	n := NewNotifier("xoxb-fake", "", discardLogger())
	if n.IsEnabled() {
		t.Fatal("expected notifier to be disabled without a channel")
	}
}

func TestPostIsNoOpWhenDisabled(t *testing.T) {
	n := NewNotifier("", "", discardLogger())
	if err := n.NotifyJobFailure(context.Background(), "job1", "payroll_calculate", "timeout"); err != nil {
		t.Fatalf("expected nil error when disabled, got %v", err)
	}
}

func TestNotifyConnectorDownIgnoresBelowThreshold(t *testing.T) {
	n := NewNotifier("", "", discardLogger())
	for _, count := range []int{1, 2} {
		if err := n.NotifyConnectorDown(context.Background(), "tenant1", "erp", count, errors.New("boom")); err != nil {
			t.Fatalf("unexpected error at count %d: %v", count, err)
		}
	}
}

func TestNotifyConnectorDownFiresOnMultiplesOfThreshold(t *testing.T) {
	n := NewNotifier("", "", discardLogger())
	for _, count := range []int{3, 6, 9} {
		if err := n.NotifyConnectorDown(context.Background(), "tenant1", "drive", count, errors.New("boom")); err != nil {
			t.Fatalf("unexpected error at count %d: %v", count, err)
		}
	}
}

func TestNotifyConnectorDownSkipsNonMultiples(t *testing.T) {
	n := NewNotifier("", "", discardLogger())
	if err := n.NotifyConnectorDown(context.Background(), "tenant1", "erp", 4, errors.New("boom")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
