package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// InstrumentStatus is the listing status reported by the futures venue.
type InstrumentStatus string

const InstrumentTrading InstrumentStatus = "Trading"

// Instrument is a futures listing, e.g. Name "BTCUSDZ26", Alias "BTCUSD1225".
type Instrument struct {
	Name          string
	Alias         string
	BaseCurrency  Currency
	QuoteCurrency Currency
	Status        InstrumentStatus
}

// ExpiryKey returns the MMDD expiry encoded after the base+quote prefix of
// the alias, as an integer comparable with MonthDayKey.
func (i Instrument) ExpiryKey() (int, error) {
	prefix := string(i.BaseCurrency) + string(i.QuoteCurrency)
	if !strings.HasPrefix(i.Alias, prefix) {
		return 0, fmt.Errorf("alias %q of %s does not start with %s", i.Alias, i.Name, prefix)
	}
	key, err := strconv.Atoi(i.Alias[len(prefix):])
	if err != nil {
		return 0, fmt.Errorf("alias %q of %s has no numeric expiry: %w", i.Alias, i.Name, err)
	}
	return key, nil
}

// MonthDayKey encodes t as MMDD, e.g. 16 Oct → 1016.
func MonthDayKey(t time.Time) int {
	return int(t.Month())*100 + t.Day()
}

// YearToken returns the two-digit year of t, e.g. "26".
func YearToken(t time.Time) string {
	return t.Format("06")
}
