package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"convert_go/internal/domain"
)

var _ domain.Store = (*Store)(nil)

// Store implements domain.Store on PostgreSQL. NUMERIC columns travel as
// text so no precision is lost on the way to decimal.Decimal.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	now    func() time.Time
}

func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger.With(slog.String("component", "postgres-store")), now: time.Now}, nil
}

// Open connects, migrates and returns a store owning the pool.
func Open(ctx context.Context, url string, logger *slog.Logger) (*Store, error) {
	pool, err := OpenPool(ctx, DefaultDBConfig(url))
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return NewStore(pool, logger)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func parseDecimal(col, v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("column %s: %w", col, err)
	}
	return d, nil
}

// --- conversions ---

func (s *Store) CreateConversion(ctx context.Context, c domain.Conversion) error {
	if c.Status == "" {
		c.Status = domain.StatusPending
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = s.now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversions (id, user_id, from_currency, to_currency, amount, rate, status, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8)
	`, c.ID, c.UserID, string(c.FromCurrency), string(c.ToCurrency), c.Amount.String(), c.Rate.String(), string(c.Status), c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting conversion %s: %w", c.ID, err)
	}
	return nil
}

const conversionColumns = `id, user_id, from_currency, to_currency, amount::text, rate::text, status, updated_at`

func (s *Store) GetConversion(ctx context.Context, id string) (*domain.Conversion, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+conversionColumns+` FROM conversions WHERE id = $1`, id)
	c, err := scanConversion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrConversionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying conversion %s: %w", id, err)
	}
	return c, nil
}

func (s *Store) ListConversions(ctx context.Context) ([]domain.Conversion, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+conversionColumns+` FROM conversions ORDER BY updated_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying conversions: %w", err)
	}
	defer rows.Close()

	var out []domain.Conversion
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanConversion(row pgx.Row) (*domain.Conversion, error) {
	var (
		c                          domain.Conversion
		from, to, st, amount, rate string
		err                        error
	)
	if err := row.Scan(&c.ID, &c.UserID, &from, &to, &amount, &rate, &st, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if c.Amount, err = parseDecimal("amount", amount); err != nil {
		return nil, err
	}
	if c.Rate, err = parseDecimal("rate", rate); err != nil {
		return nil, err
	}
	c.FromCurrency = domain.Currency(from)
	c.ToCurrency = domain.Currency(to)
	c.Status = domain.ConversionStatus(st)
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

// --- history recorder ---

func (s *Store) RecordLegSuccess(ctx context.Context, conversionID string, leg domain.OrderLeg) error {
	createdAt := ""
	if !leg.CreatedAt.IsZero() {
		createdAt = leg.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversion_orders (conversion_id, exchange, order_id, symbol, side, size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)
	`, conversionID, leg.Venue, leg.OrderID, leg.Symbol, leg.Side.String(), leg.Size.String(), createdAt)
	if err != nil {
		return fmt.Errorf("recording %s leg of %s: %w", leg.Provider, conversionID, err)
	}
	return nil
}

func (s *Store) RecordLegFailure(ctx context.Context, conversionID string, message string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversion_orders (conversion_id, error) VALUES ($1, $2)`, conversionID, message)
	if err != nil {
		return fmt.Errorf("recording failure of %s: %w", conversionID, err)
	}
	return nil
}

func (s *Store) ClaimConversion(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE conversions SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		string(domain.StatusRouting), s.now(), id, string(domain.StatusPending))
	if err != nil {
		return fmt.Errorf("claiming %s: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := s.GetConversion(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("claim %s: %w", id, domain.ErrConversionClaimed)
}

func (s *Store) FinalizeStatus(ctx context.Context, conversionID string, status domain.ConversionStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE conversions SET status = $1, updated_at = $2 WHERE id = $3`, string(status), s.now(), conversionID)
	if err != nil {
		return fmt.Errorf("finalizing %s: %w", conversionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finalize %s: %w", conversionID, domain.ErrConversionNotFound)
	}
	return nil
}

func (s *Store) ListLegRecords(ctx context.Context, conversionID string) ([]domain.LegRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT exchange, order_id, symbol, side, size::text, created_at, error
		FROM conversion_orders WHERE conversion_id = $1 ORDER BY id
	`, conversionID)
	if err != nil {
		return nil, fmt.Errorf("querying orders of %s: %w", conversionID, err)
	}
	defer rows.Close()

	var out []domain.LegRecord
	for rows.Next() {
		var (
			r    domain.LegRecord
			size string
		)
		if err := rows.Scan(&r.Exchange, &r.OrderID, &r.Symbol, &r.Side, &size, &r.CreatedAt, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		if r.Size, err = parseDecimal("size", size); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- price history ---

func (s *Store) AddPrice(ctx context.Context, p domain.PricePoint) error {
	if p.Timestamp.IsZero() {
		p.Timestamp = s.now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO price_histories (currency_pair, rate, market, source, ts)
		VALUES ($1, $2::numeric, $3, $4, $5)
	`, p.CurrencyPair, p.Rate.String(), p.Market, p.Source, p.Timestamp)
	if err != nil {
		return fmt.Errorf("inserting price for %s: %w", p.CurrencyPair, err)
	}
	return nil
}

func (s *Store) LatestPrice(ctx context.Context, pair string) (decimal.Decimal, bool, error) {
	var rate string
	err := s.pool.QueryRow(ctx, `
		SELECT rate::text FROM price_histories WHERE currency_pair = $1 ORDER BY ts DESC, id DESC LIMIT 1
	`, pair).Scan(&rate)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("querying latest price of %s: %w", pair, err)
	}
	d, err := parseDecimal("rate", rate)
	if err != nil {
		return decimal.Zero, false, err
	}
	return d, true, nil
}

func (s *Store) LatestPriceTime(ctx context.Context, pair string) (time.Time, bool, error) {
	var ts *time.Time
	err := s.pool.QueryRow(ctx, `SELECT MAX(ts) FROM price_histories WHERE currency_pair = $1`, pair).Scan(&ts)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("querying latest price time of %s: %w", pair, err)
	}
	if ts == nil {
		return time.Time{}, false, nil
	}
	return ts.UTC(), true, nil
}

func (s *Store) DeletePricesUpTo(ctx context.Context, pair string, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM price_histories WHERE currency_pair = $1 AND ts <= $2`, pair, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging prices of %s: %w", pair, err)
	}
	return tag.RowsAffected(), nil
}

// --- accounts ---

func (s *Store) AddInterestPayment(ctx context.Context, p domain.InterestPayment) error {
	if p.PaidAt.IsZero() {
		p.PaidAt = s.now()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO interest_payments (user_id, amount, paid_at) VALUES ($1, $2::numeric, $3)`,
		p.UserID, p.Amount.String(), p.PaidAt)
	if err != nil {
		return fmt.Errorf("inserting interest payment: %w", err)
	}
	return nil
}

func (s *Store) ListInterestPayments(ctx context.Context) ([]domain.InterestPayment, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_id, amount::text, paid_at FROM interest_payments ORDER BY paid_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying interest payments: %w", err)
	}
	defer rows.Close()

	var out []domain.InterestPayment
	for rows.Next() {
		var (
			p      domain.InterestPayment
			amount string
		)
		if err := rows.Scan(&p.UserID, &amount, &p.PaidAt); err != nil {
			return nil, fmt.Errorf("scanning interest payment: %w", err)
		}
		if p.Amount, err = parseDecimal("amount", amount); err != nil {
			return nil, err
		}
		p.PaidAt = p.PaidAt.UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) SetBalance(ctx context.Context, b domain.Balance) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO balances (user_id, currency, pending, amount) VALUES ($1, $2, $3, $4::numeric)
		ON CONFLICT (user_id, currency, pending) DO UPDATE SET amount = EXCLUDED.amount
	`, b.UserID, string(b.Currency), b.Pending, b.Amount.String())
	if err != nil {
		return fmt.Errorf("setting balance: %w", err)
	}
	return nil
}

func (s *Store) ListBalances(ctx context.Context, pending bool) ([]domain.Balance, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, currency, amount::text FROM balances WHERE pending = $1 ORDER BY user_id, currency
	`, pending)
	if err != nil {
		return nil, fmt.Errorf("querying balances: %w", err)
	}
	defer rows.Close()

	var out []domain.Balance
	for rows.Next() {
		var (
			b           domain.Balance
			cur, amount string
		)
		if err := rows.Scan(&b.UserID, &cur, &amount); err != nil {
			return nil, fmt.Errorf("scanning balance: %w", err)
		}
		if b.Amount, err = parseDecimal("amount", amount); err != nil {
			return nil, err
		}
		b.Currency = domain.Currency(cur)
		b.Pending = pending
		out = append(out, b)
	}
	return out, rows.Err()
}
