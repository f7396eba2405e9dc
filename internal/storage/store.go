package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/shopspring/decimal"

	"convert_go/internal/domain"
)

var _ domain.Store = (*SQLiteStore)(nil)

// SQLiteStore keeps conversion history, price history, interest payouts
// and balances in one SQLite file. Decimals are stored as TEXT.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database with WAL mode enabled.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// Pragmas are per connection; a single one keeps them all in force.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS conversions (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		from_currency TEXT NOT NULL,
		to_currency   TEXT NOT NULL,
		amount        TEXT NOT NULL,
		rate          TEXT NOT NULL,
		status        TEXT NOT NULL,
		updated_at    INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS conversion_orders (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		conversion_id TEXT NOT NULL REFERENCES conversions(id),
		exchange      TEXT NOT NULL DEFAULT '',
		order_id      TEXT NOT NULL DEFAULT '',
		symbol        TEXT NOT NULL DEFAULT '',
		side          TEXT NOT NULL DEFAULT '',
		size          TEXT NOT NULL DEFAULT '0',
		created_at    TEXT NOT NULL DEFAULT '',
		error         TEXT NOT NULL DEFAULT ''
	);`,
	`CREATE INDEX IF NOT EXISTS idx_conversion_orders_conversion ON conversion_orders(conversion_id);`,
	`CREATE TABLE IF NOT EXISTS price_histories (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		currency_pair TEXT NOT NULL,
		rate          TEXT NOT NULL,
		market        TEXT NOT NULL,
		source        TEXT NOT NULL,
		ts            INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_price_histories_pair_ts ON price_histories(currency_pair, ts);`,
	`CREATE TABLE IF NOT EXISTS interest_payments (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		amount  TEXT NOT NULL,
		paid_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS balances (
		user_id  TEXT NOT NULL,
		currency TEXT NOT NULL,
		pending  INTEGER NOT NULL,
		amount   TEXT NOT NULL,
		PRIMARY KEY (user_id, currency, pending)
	);`,
}

// --- conversions ---

func (s *SQLiteStore) CreateConversion(ctx context.Context, c domain.Conversion) error {
	if c.Status == "" {
		c.Status = domain.StatusPending
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversions (id, user_id, from_currency, to_currency, amount, rate, status, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, string(c.FromCurrency), string(c.ToCurrency), c.Amount.String(), c.Rate.String(),
		string(c.Status), c.UpdatedAt.UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversion %s: %w", c.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetConversion(ctx context.Context, id string) (*domain.Conversion, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, from_currency, to_currency, amount, rate, status, updated_at
		 FROM conversions WHERE id = ?`, id)
	c, err := scanConversion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrConversionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversion %s: %w", id, err)
	}
	return c, nil
}

func (s *SQLiteStore) ListConversions(ctx context.Context) ([]domain.Conversion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, from_currency, to_currency, amount, rate, status, updated_at
		 FROM conversions ORDER BY updated_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversions: %w", err)
	}
	defer rows.Close()

	var out []domain.Conversion
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversion(row scanner) (*domain.Conversion, error) {
	var (
		c             domain.Conversion
		from, to, st  string
		updatedMicros int64
	)
	if err := row.Scan(&c.ID, &c.UserID, &from, &to, &c.Amount, &c.Rate, &st, &updatedMicros); err != nil {
		return nil, err
	}
	c.FromCurrency = domain.Currency(from)
	c.ToCurrency = domain.Currency(to)
	c.Status = domain.ConversionStatus(st)
	c.UpdatedAt = time.UnixMicro(updatedMicros).UTC()
	return &c, nil
}

// --- history recorder ---

func (s *SQLiteStore) RecordLegSuccess(ctx context.Context, conversionID string, leg domain.OrderLeg) error {
	createdAt := ""
	if !leg.CreatedAt.IsZero() {
		createdAt = leg.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversion_orders (conversion_id, exchange, order_id, symbol, side, size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		conversionID, leg.Venue, leg.OrderID, leg.Symbol, leg.Side.String(), leg.Size.String(), createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record %s leg of %s: %w", leg.Provider, conversionID, err)
	}
	return nil
}

func (s *SQLiteStore) RecordLegFailure(ctx context.Context, conversionID string, message string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversion_orders (conversion_id, error) VALUES (?, ?)`,
		conversionID, message,
	)
	if err != nil {
		return fmt.Errorf("failed to record failure of %s: %w", conversionID, err)
	}
	return nil
}

func (s *SQLiteStore) ClaimConversion(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(domain.StatusRouting), s.now().UnixMicro(), id, string(domain.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("failed to claim %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to claim %s: %w", id, err)
	}
	if n == 1 {
		return nil
	}
	if _, err := s.GetConversion(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("claim %s: %w", id, domain.ErrConversionClaimed)
}

func (s *SQLiteStore) FinalizeStatus(ctx context.Context, conversionID string, status domain.ConversionStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversions SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), s.now().UnixMicro(), conversionID,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize %s: %w", conversionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finalize %s: %w", conversionID, err)
	}
	if n == 0 {
		return fmt.Errorf("finalize %s: %w", conversionID, domain.ErrConversionNotFound)
	}
	return nil
}

func (s *SQLiteStore) ListLegRecords(ctx context.Context, conversionID string) ([]domain.LegRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT exchange, order_id, symbol, side, size, created_at, error
		 FROM conversion_orders WHERE conversion_id = ? ORDER BY id`, conversionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders of %s: %w", conversionID, err)
	}
	defer rows.Close()

	var out []domain.LegRecord
	for rows.Next() {
		var r domain.LegRecord
		if err := rows.Scan(&r.Exchange, &r.OrderID, &r.Symbol, &r.Side, &r.Size, &r.CreatedAt, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- price history ---

func (s *SQLiteStore) AddPrice(ctx context.Context, p domain.PricePoint) error {
	if p.Timestamp.IsZero() {
		p.Timestamp = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO price_histories (currency_pair, rate, market, source, ts) VALUES (?, ?, ?, ?, ?)`,
		p.CurrencyPair, p.Rate.String(), p.Market, p.Source, p.Timestamp.UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert price for %s: %w", p.CurrencyPair, err)
	}
	return nil
}

func (s *SQLiteStore) LatestPrice(ctx context.Context, pair string) (decimal.Decimal, bool, error) {
	var rate decimal.Decimal
	err := s.db.QueryRowContext(ctx,
		`SELECT rate FROM price_histories WHERE currency_pair = ? ORDER BY ts DESC, id DESC LIMIT 1`, pair,
	).Scan(&rate)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to query latest price of %s: %w", pair, err)
	}
	return rate, true, nil
}

func (s *SQLiteStore) LatestPriceTime(ctx context.Context, pair string) (time.Time, bool, error) {
	var ts sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(ts) FROM price_histories WHERE currency_pair = ?`, pair,
	).Scan(&ts)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query latest price time of %s: %w", pair, err)
	}
	if !ts.Valid {
		return time.Time{}, false, nil
	}
	return time.UnixMicro(ts.Int64).UTC(), true, nil
}

func (s *SQLiteStore) DeletePricesUpTo(ctx context.Context, pair string, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM price_histories WHERE currency_pair = ? AND ts <= ?`, pair, cutoff.UnixMicro())
	if err != nil {
		return 0, fmt.Errorf("failed to purge prices of %s: %w", pair, err)
	}
	return res.RowsAffected()
}

// --- accounts ---

func (s *SQLiteStore) AddInterestPayment(ctx context.Context, p domain.InterestPayment) error {
	if p.PaidAt.IsZero() {
		p.PaidAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interest_payments (user_id, amount, paid_at) VALUES (?, ?, ?)`,
		p.UserID, p.Amount.String(), p.PaidAt.UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert interest payment: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListInterestPayments(ctx context.Context) ([]domain.InterestPayment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, amount, paid_at FROM interest_payments ORDER BY paid_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query interest payments: %w", err)
	}
	defer rows.Close()

	var out []domain.InterestPayment
	for rows.Next() {
		var (
			p      domain.InterestPayment
			paidAt int64
		)
		if err := rows.Scan(&p.UserID, &p.Amount, &paidAt); err != nil {
			return nil, fmt.Errorf("failed to scan interest payment: %w", err)
		}
		p.PaidAt = time.UnixMicro(paidAt).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SetBalance(ctx context.Context, b domain.Balance) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO balances (user_id, currency, pending, amount) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, currency, pending) DO UPDATE SET amount = excluded.amount`,
		b.UserID, string(b.Currency), b.Pending, b.Amount.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListBalances(ctx context.Context, pending bool) ([]domain.Balance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, currency, amount FROM balances WHERE pending = ? ORDER BY user_id, currency`, pending)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	var out []domain.Balance
	for rows.Next() {
		var (
			b   domain.Balance
			cur string
		)
		if err := rows.Scan(&b.UserID, &cur, &b.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		b.Currency = domain.Currency(cur)
		b.Pending = pending
		out = append(out, b)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
