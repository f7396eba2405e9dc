package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"convert_go/internal/domain"
)

// NewConversion stores a pending conversion for userID and returns it.
func (b *Bootstrap) NewConversion(ctx context.Context, userID string, from, to domain.Currency, amount, rate decimal.Decimal) (domain.Conversion, error) {
	c := domain.Conversion{
		ID:           uuid.NewString(),
		UserID:       userID,
		FromCurrency: from,
		ToCurrency:   to,
		Amount:       amount,
		Rate:         rate,
		Status:       domain.StatusPending,
	}
	if userID == "" {
		return domain.Conversion{}, fmt.Errorf("%w: missing user id", domain.ErrInvalidRequest)
	}
	if err := c.Request().Validate(); err != nil {
		return domain.Conversion{}, err
	}
	if err := b.Store.CreateConversion(ctx, c); err != nil {
		return domain.Conversion{}, err
	}
	b.Logger.InfoContext(ctx, "Conversion created",
		slog.String("conversion_id", c.ID),
		slog.String("user_id", userID),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
		slog.String("amount", amount.String()))
	return c, nil
}

// Convert claims the stored conversion id and routes it. A conversion that
// is not pending, or that another run claimed first, is refused.
func (b *Bootstrap) Convert(ctx context.Context, id string) (domain.ConversionOutcome, error) {
	c, err := b.Store.GetConversion(ctx, id)
	if err != nil {
		return domain.ConversionOutcome{}, err
	}
	if err := b.Store.ClaimConversion(ctx, id); err != nil {
		return domain.ConversionOutcome{}, err
	}
	return b.Router.Route(ctx, c.Request())
}
