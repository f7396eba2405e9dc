// Package stats builds the periodic reports: conversion volume against the
// settlement currency, interest paid out, and users holding a balance.
package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"convert_go/internal/domain"
)

// balancePlaces is the precision a balance is rounded to before it is
// considered positive.
const balancePlaces = 4

type ConversionStats struct {
	UsersWithHistory int             `json:"users_with_history"`
	FromUSDSCount    int             `json:"from_usds_count"`
	FromUSDSAmount   decimal.Decimal `json:"from_usds_amount"`
	ToUSDSCount      int             `json:"to_usds_count"`
	ToUSDSAmount     decimal.Decimal `json:"to_usds_amount"`
}

type InterestStats struct {
	Users int             `json:"users"`
	Total decimal.Decimal `json:"total"`
}

// BalanceLine is one user's positive holding of one currency.
type BalanceLine struct {
	UserID   string          `json:"user_id"`
	Currency domain.Currency `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

type BalanceReport struct {
	Settled []BalanceLine `json:"settled"`
	Pending []BalanceLine `json:"pending"`
}

// Report bundles the three reports produced by one run.
type Report struct {
	Seq         uint64          `json:"seq"`
	GeneratedAt time.Time       `json:"generated_at"`
	Conversions ConversionStats `json:"conversions"`
	Interest    InterestStats   `json:"interest"`
	Balances    BalanceReport   `json:"balances"`
}

type Reporter struct {
	conversions domain.ConversionStore
	accounts    domain.AccountStore
	logger      *slog.Logger
	now         func() time.Time
}

func NewReporter(conversions domain.ConversionStore, accounts domain.AccountStore, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		conversions: conversions,
		accounts:    accounts,
		logger:      logger.With(slog.String("component", "stats")),
		now:         time.Now,
	}
}

// ConversionStats counts users with any conversion history, then sums the
// done and pending conversions out of and into USDS. Conversions into USDS
// are valued at amount × rate.
func (r *Reporter) ConversionStats(ctx context.Context) (ConversionStats, error) {
	all, err := r.conversions.ListConversions(ctx)
	if err != nil {
		return ConversionStats{}, fmt.Errorf("list conversions: %w", err)
	}

	st := ConversionStats{FromUSDSAmount: decimal.Zero, ToUSDSAmount: decimal.Zero}
	users := make(map[string]struct{})
	for _, c := range all {
		users[c.UserID] = struct{}{}
		if c.Status != domain.StatusDone && c.Status != domain.StatusPending && c.Status != domain.StatusRouting {
			continue
		}
		if c.FromCurrency == domain.USDS {
			st.FromUSDSCount++
			st.FromUSDSAmount = st.FromUSDSAmount.Add(c.Amount)
			continue
		}
		// Anything not paid in USDS is reported as flowing into it.
		st.ToUSDSCount++
		st.ToUSDSAmount = st.ToUSDSAmount.Add(c.Amount.Mul(c.Rate))
	}
	st.UsersWithHistory = len(users)
	return st, nil
}

func (r *Reporter) PaidInterest(ctx context.Context) (InterestStats, error) {
	payments, err := r.accounts.ListInterestPayments(ctx)
	if err != nil {
		return InterestStats{}, fmt.Errorf("list interest payments: %w", err)
	}
	st := InterestStats{Total: decimal.Zero}
	users := make(map[string]struct{})
	for _, p := range payments {
		users[p.UserID] = struct{}{}
		st.Total = st.Total.Add(p.Amount)
	}
	st.Users = len(users)
	return st, nil
}

// PositiveBalances lists settled and pending balances that are still
// positive after rounding to four decimals.
func (r *Reporter) PositiveBalances(ctx context.Context) (BalanceReport, error) {
	settled, err := r.positive(ctx, false)
	if err != nil {
		return BalanceReport{}, err
	}
	pending, err := r.positive(ctx, true)
	if err != nil {
		return BalanceReport{}, err
	}
	return BalanceReport{Settled: settled, Pending: pending}, nil
}

func (r *Reporter) positive(ctx context.Context, pending bool) ([]BalanceLine, error) {
	balances, err := r.accounts.ListBalances(ctx, pending)
	if err != nil {
		return nil, fmt.Errorf("list balances (pending=%t): %w", pending, err)
	}
	var out []BalanceLine
	for _, b := range balances {
		amount := b.Amount.Round(balancePlaces)
		if !amount.IsPositive() {
			continue
		}
		out = append(out, BalanceLine{UserID: b.UserID, Currency: b.Currency, Amount: amount})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Currency < out[j].Currency
	})
	return out, nil
}

// Build runs every report. Each part is attempted even when another fails.
func (r *Reporter) Build(ctx context.Context) (*Report, error) {
	rep := &Report{GeneratedAt: r.now().UTC()}

	var errs []error
	var err error
	if rep.Conversions, err = r.ConversionStats(ctx); err != nil {
		errs = append(errs, err)
	}
	if rep.Interest, err = r.PaidInterest(ctx); err != nil {
		errs = append(errs, err)
	}
	if rep.Balances, err = r.PositiveBalances(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "Report built",
		slog.Int("users_with_history", rep.Conversions.UsersWithHistory),
		slog.Int("interest_users", rep.Interest.Users),
		slog.Int("positive_balances", len(rep.Balances.Settled)+len(rep.Balances.Pending)))
	return rep, nil
}
