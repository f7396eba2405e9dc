package domain

import (
	"testing"
	"time"
)

func TestInstrument_ExpiryKey(t *testing.T) {
	tests := []struct {
		name    string
		inst    Instrument
		want    int
		wantErr bool
	}{
		{"december", Instrument{Name: "BTCUSDZ26", Alias: "BTCUSD1225", BaseCurrency: BTC, QuoteCurrency: USD}, 1225, false},
		{"march", Instrument{Name: "ETHUSDH26", Alias: "ETHUSD0327", BaseCurrency: ETH, QuoteCurrency: USD}, 327, false},
		{"perpetual alias", Instrument{Name: "BTCUSD", Alias: "BTCUSD", BaseCurrency: BTC, QuoteCurrency: USD}, 0, true},
		{"foreign prefix", Instrument{Name: "BTCUSDZ26", Alias: "XBTUSD1225", BaseCurrency: BTC, QuoteCurrency: USD}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.inst.ExpiryKey()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExpiryKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExpiryKey() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMonthDayKeyAndYearToken(t *testing.T) {
	ts := time.Date(2026, time.October, 16, 23, 0, 0, 0, time.UTC)
	if got := MonthDayKey(ts); got != 1016 {
		t.Errorf("MonthDayKey = %d, want 1016", got)
	}
	if got := YearToken(ts); got != "26" {
		t.Errorf("YearToken = %q, want 26", got)
	}
	if got := MonthDayKey(time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)); got != 105 {
		t.Errorf("MonthDayKey = %d, want 105", got)
	}
}

func TestPairForMarket(t *testing.T) {
	tests := map[string]string{
		"BTC-PERP":   "BTC-USD",
		" ETH-PERP ": "ETH-USD",
		"SOL":        "SOL-USD",
	}
	for in, want := range tests {
		if got := PairForMarket(in); got != want {
			t.Errorf("PairForMarket(%q) = %q, want %q", in, got, want)
		}
	}
}
