package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"convert_go/internal/domain"
)

func TestRunUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), "launch", nil, &out); err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestRunHelp(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), "help", nil, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "update-prices") {
		t.Errorf("usage missing commands:\n%s", out.String())
	}
}

func TestRunBadFlag(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), "stats", []string{"-nope"}, &out); err == nil {
		t.Error("expected flag parse error")
	}
}

func TestPrintOutcome(t *testing.T) {
	var out bytes.Buffer
	printOutcome(&out, domain.ConversionOutcome{
		ConversionID: "c-1",
		Status:       domain.StatusError,
		ErrorDetail:  "spot order rejected: Size too small",
		Legs: []domain.OrderLeg{{
			Provider:  domain.ProviderFutures,
			Venue:     "paper",
			Symbol:    "BTCUSDZ26",
			Side:      domain.SideBuy,
			Size:      decimal.NewFromInt(300),
			OrderID:   "o-1",
			CreatedAt: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
		}},
	})

	got := out.String()
	for _, want := range []string{"c-1: error", "Size too small", "BTCUSDZ26", "buy", "300"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}
