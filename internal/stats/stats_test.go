package stats

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"convert_go/internal/domain"
)

type fakeConversions struct {
	list []domain.Conversion
	err  error
}

func (f *fakeConversions) CreateConversion(context.Context, domain.Conversion) error { return nil }
func (f *fakeConversions) GetConversion(context.Context, string) (*domain.Conversion, error) {
	return nil, domain.ErrConversionNotFound
}
func (f *fakeConversions) ClaimConversion(context.Context, string) error { return nil }
func (f *fakeConversions) ListConversions(context.Context) ([]domain.Conversion, error) {
	return f.list, f.err
}
func (f *fakeConversions) ListLegRecords(context.Context, string) ([]domain.LegRecord, error) {
	return nil, nil
}

type fakeAccounts struct {
	payments []domain.InterestPayment
	settled  []domain.Balance
	pending  []domain.Balance
}

func (f *fakeAccounts) AddInterestPayment(context.Context, domain.InterestPayment) error { return nil }
func (f *fakeAccounts) ListInterestPayments(context.Context) ([]domain.InterestPayment, error) {
	return f.payments, nil
}
func (f *fakeAccounts) SetBalance(context.Context, domain.Balance) error { return nil }
func (f *fakeAccounts) ListBalances(_ context.Context, pending bool) ([]domain.Balance, error) {
	if pending {
		return f.pending, nil
	}
	return f.settled, nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func conv(user string, from, to domain.Currency, amount, rate string, status domain.ConversionStatus) domain.Conversion {
	return domain.Conversion{
		ID:           user + string(from) + string(to) + amount,
		UserID:       user,
		FromCurrency: from,
		ToCurrency:   to,
		Amount:       d(amount),
		Rate:         d(rate),
		Status:       status,
	}
}

func TestConversionStats(t *testing.T) {
	convs := &fakeConversions{list: []domain.Conversion{
		conv("u1", domain.USDS, domain.BTC, "100", "0.00003", domain.StatusDone),
		conv("u1", domain.USDS, domain.ETH, "50.5", "0.0006", domain.StatusPending),
		conv("u2", domain.BTC, domain.USDS, "0.5", "27000", domain.StatusDone),
		conv("u2", domain.USDC, domain.USDS, "200", "1", domain.StatusPending),
		conv("u3", domain.BTC, domain.USDS, "1", "27000", domain.StatusError),
		conv("u4", domain.USDS, domain.BTC, "999", "0.00003", domain.StatusSent),
		conv("u2", domain.BTC, domain.USDS, "0.01", "30000", domain.StatusRouting),
		// Neither side is USDS: counted on the to-USDS side at amount*rate.
		conv("u5", domain.USDC, domain.BTC, "10", "2", domain.StatusDone),
	}}
	r := NewReporter(convs, &fakeAccounts{}, nil)

	st, err := r.ConversionStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.UsersWithHistory != 5 {
		t.Errorf("users = %d, want 5", st.UsersWithHistory)
	}
	if st.FromUSDSCount != 2 || !st.FromUSDSAmount.Equal(d("150.5")) {
		t.Errorf("from USDS = %d / %s, want 2 / 150.5", st.FromUSDSCount, st.FromUSDSAmount)
	}
	if st.ToUSDSCount != 4 || !st.ToUSDSAmount.Equal(d("14020")) {
		t.Errorf("to USDS = %d / %s, want 4 / 14020", st.ToUSDSCount, st.ToUSDSAmount)
	}
}

func TestConversionStatsEmpty(t *testing.T) {
	r := NewReporter(&fakeConversions{}, &fakeAccounts{}, nil)
	st, err := r.ConversionStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.UsersWithHistory != 0 || !st.FromUSDSAmount.IsZero() || !st.ToUSDSAmount.IsZero() {
		t.Errorf("expected zero stats, got %+v", st)
	}
}

func TestPaidInterest(t *testing.T) {
	accts := &fakeAccounts{payments: []domain.InterestPayment{
		{UserID: "u1", Amount: d("1.25")},
		{UserID: "u1", Amount: d("0.75")},
		{UserID: "u2", Amount: d("3")},
	}}
	r := NewReporter(&fakeConversions{}, accts, nil)

	st, err := r.PaidInterest(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Users != 2 || !st.Total.Equal(d("5")) {
		t.Errorf("got %d users / %s, want 2 / 5", st.Users, st.Total)
	}
}

func TestPositiveBalances(t *testing.T) {
	accts := &fakeAccounts{
		settled: []domain.Balance{
			{UserID: "u2", Currency: domain.BTC, Amount: d("0.00004")},   // rounds to 0
			{UserID: "u2", Currency: domain.USDS, Amount: d("10.12345")}, // rounds to 10.1235
			{UserID: "u1", Currency: domain.ETH, Amount: d("0.00005")},   // rounds up to 0.0001
			{UserID: "u1", Currency: domain.USDC, Amount: d("-3")},
		},
		pending: []domain.Balance{
			{UserID: "u3", Currency: domain.USDS, Amount: d("7"), Pending: true},
		},
	}
	r := NewReporter(&fakeConversions{}, accts, nil)

	rep, err := r.PositiveBalances(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Settled) != 2 {
		t.Fatalf("settled = %+v, want 2 lines", rep.Settled)
	}
	if rep.Settled[0].UserID != "u1" || !rep.Settled[0].Amount.Equal(d("0.0001")) {
		t.Errorf("first line = %+v", rep.Settled[0])
	}
	if rep.Settled[1].UserID != "u2" || !rep.Settled[1].Amount.Equal(d("10.1235")) {
		t.Errorf("second line = %+v", rep.Settled[1])
	}
	if len(rep.Pending) != 1 || rep.Pending[0].UserID != "u3" {
		t.Errorf("pending = %+v", rep.Pending)
	}
}

func TestBuildAndRender(t *testing.T) {
	convs := &fakeConversions{list: []domain.Conversion{
		conv("u1", domain.BTC, domain.USDS, "0.5", "27000", domain.StatusDone),
	}}
	accts := &fakeAccounts{
		payments: []domain.InterestPayment{{UserID: "u1", Amount: d("2")}},
		settled:  []domain.Balance{{UserID: "u1", Currency: domain.USDS, Amount: d("13500")}},
	}
	r := NewReporter(convs, accts, nil)
	r.now = func() time.Time { return time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC) }

	rep, err := r.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Render(&buf, rep); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"2026-10-16", "to USDS", "13500.00", "PAID INTEREST", "13500.0000", "(none)"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered report missing %q:\n%s", want, out)
		}
	}
}

func TestBuildReportsStoreErrors(t *testing.T) {
	boom := errors.New("db gone")
	r := NewReporter(&fakeConversions{err: boom}, &fakeAccounts{}, nil)
	if _, err := r.Build(context.Background()); !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
}
