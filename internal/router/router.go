// Package router decides which exchange orders fulfil a conversion request,
// places them in order and records what happened.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"convert_go/internal/domain"
)

// Resolver chooses the futures instrument for a base currency.
type Resolver interface {
	ResolveNextInstrument(ctx context.Context, base, quote domain.Currency) (string, error)
}

// FuturesGateway places futures orders.
type FuturesGateway interface {
	PlaceFuturesOrder(ctx context.Context, symbol string, side domain.Side, qty int64, orderType domain.OrderType, tif domain.TimeInForce) (domain.OrderLeg, error)
}

// SpotGateway places spot orders.
type SpotGateway interface {
	PlaceSpotOrder(ctx context.Context, market string, side domain.Side, size decimal.Decimal) (domain.OrderLeg, error)
}

// Oracle returns the last known price of a pair, zero when unknown.
type Oracle interface {
	LastPrice(ctx context.Context, pair string) (decimal.Decimal, error)
}

// Dependencies are the collaborators a Router is built from.
type Dependencies struct {
	Resolver Resolver
	Futures  FuturesGateway
	Spot     SpotGateway
	Oracle   Oracle
	History  domain.HistoryRecorder
	Metrics  *Metrics     // optional
	Logger   *slog.Logger // optional
}

// Router routes conversion requests. It holds no per-request state and may
// be shared by concurrent callers.
type Router struct {
	resolver Resolver
	futures  FuturesGateway
	spot     SpotGateway
	oracle   Oracle
	history  domain.HistoryRecorder
	metrics  *Metrics
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewRouter validates deps and returns a Router.
func NewRouter(deps Dependencies) (*Router, error) {
	switch {
	case deps.Resolver == nil:
		return nil, fmt.Errorf("router: resolver cannot be nil")
	case deps.Futures == nil:
		return nil, fmt.Errorf("router: futures gateway cannot be nil")
	case deps.Spot == nil:
		return nil, fmt.Errorf("router: spot gateway cannot be nil")
	case deps.Oracle == nil:
		return nil, fmt.Errorf("router: price oracle cannot be nil")
	case deps.History == nil:
		return nil, fmt.Errorf("router: history recorder cannot be nil")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		resolver: deps.Resolver,
		futures:  deps.Futures,
		spot:     deps.Spot,
		oracle:   deps.Oracle,
		history:  deps.History,
		metrics:  deps.Metrics,
		tracer:   otel.Tracer("convert_go/router"),
		logger:   logger.With(slog.String("component", "router")),
	}, nil
}

// run is the state of one Route call.
type run struct {
	req     domain.ConversionRequest
	state   domain.RouteState
	outcome domain.ConversionOutcome
	logger  *slog.Logger
}

func (r *run) transition(next domain.RouteState) {
	if !r.state.CanTransition(next) {
		r.logger.Error("Illegal route state transition",
			slog.String("from", r.state.String()),
			slog.String("to", next.String()))
	}
	r.logger.Debug("Route state changed",
		slog.String("from", r.state.String()),
		slog.String("to", next.String()))
	r.state = next
}

// Route places the futures leg, then the spot leg when a stablecoin is
// involved, and records each accepted leg as it happens. Exchange, resolver
// and oracle failures never surface as an error: they end the run with an
// outcome of status "error". The returned error is non-nil only when req is
// invalid or the history sink cannot store the failure or final status.
func (r *Router) Route(ctx context.Context, req domain.ConversionRequest) (domain.ConversionOutcome, error) {
	if err := req.Validate(); err != nil {
		return domain.ConversionOutcome{}, err
	}

	ctx, span := r.tracer.Start(ctx, "router.Route", trace.WithAttributes(
		attribute.String("conversion.id", req.ID),
		attribute.String("conversion.from", string(req.FromCurrency)),
		attribute.String("conversion.to", string(req.ToCurrency)),
	))
	defer span.End()

	ru := &run{
		req:     req,
		state:   domain.StatePending,
		outcome: domain.ConversionOutcome{ConversionID: req.ID},
		logger: r.logger.With(
			slog.String("conversion_id", req.ID),
			slog.String("from", string(req.FromCurrency)),
			slog.String("to", string(req.ToCurrency)),
		),
	}
	ru.logger.InfoContext(ctx, "Routing conversion",
		slog.String("amount", req.Amount.String()),
		slog.String("rate", req.QuotedRate.String()))

	if err := r.placeLegs(ctx, ru); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return r.fail(ctx, ru, err)
	}
	return r.finish(ctx, ru)
}

func (r *Router) placeLegs(ctx context.Context, ru *run) error {
	leg, err := r.placeFuturesLeg(ctx, ru.req)
	if err != nil {
		r.metrics.leg(domain.ProviderFutures, false)
		return err
	}
	r.metrics.leg(domain.ProviderFutures, true)
	if err := r.accept(ctx, ru, leg, domain.StateFuturesSubmitted); err != nil {
		return err
	}

	if !ru.req.InvolvesStableCoin() {
		return nil
	}

	leg, err = r.placeSpotLeg(ctx, ru.req)
	if err != nil {
		r.metrics.leg(domain.ProviderSpot, false)
		return err
	}
	r.metrics.leg(domain.ProviderSpot, true)
	return r.accept(ctx, ru, leg, domain.StateSpotSubmitted)
}

func (r *Router) placeFuturesLeg(ctx context.Context, req domain.ConversionRequest) (domain.OrderLeg, error) {
	ctx, span := r.tracer.Start(ctx, "router.futuresLeg")
	defer span.End()

	plan, err := PlanFuturesLeg(req)
	if err != nil {
		return domain.OrderLeg{}, err
	}
	symbol, err := r.resolver.ResolveNextInstrument(ctx, plan.Base, domain.USD)
	if err != nil {
		return domain.OrderLeg{}, err
	}
	if plan.Qty < 1 {
		return domain.OrderLeg{}, &domain.OrderRejected{
			Provider: domain.ProviderFutures,
			Message:  fmt.Sprintf("order size for %s rounds down to %d contracts", symbol, plan.Qty),
		}
	}

	span.SetAttributes(
		attribute.String("symbol", symbol),
		attribute.String("side", plan.Side.Title()),
		attribute.Int64("qty", plan.Qty),
	)
	r.logger.InfoContext(ctx, "Placing futures leg",
		slog.String("conversion_id", req.ID),
		slog.String("symbol", symbol),
		slog.String("side", plan.Side.Title()),
		slog.Int64("qty", plan.Qty))

	return r.futures.PlaceFuturesOrder(ctx, symbol, plan.Side, plan.Qty, domain.OrderTypeMarket, domain.GoodTillCancel)
}

func (r *Router) placeSpotLeg(ctx context.Context, req domain.ConversionRequest) (domain.OrderLeg, error) {
	ctx, span := r.tracer.Start(ctx, "router.spotLeg")
	defer span.End()

	last, err := r.oracle.LastPrice(ctx, domain.PairBTCUSD)
	if err != nil {
		return domain.OrderLeg{}, &domain.OracleUnavailable{Pair: domain.PairBTCUSD, Err: err}
	}
	plan, err := PlanSpotLeg(req, last)
	if err != nil {
		return domain.OrderLeg{}, err
	}

	span.SetAttributes(
		attribute.String("market", plan.Market),
		attribute.String("side", plan.Side.String()),
		attribute.String("size", plan.Size.String()),
	)
	r.logger.InfoContext(ctx, "Placing spot leg",
		slog.String("conversion_id", req.ID),
		slog.String("market", plan.Market),
		slog.String("side", plan.Side.String()),
		slog.String("size", plan.Size.String()),
		slog.String("btc_usd", last.String()))

	return r.spot.PlaceSpotOrder(ctx, plan.Market, plan.Side, plan.Size)
}

// accept adds an exchange-accepted leg to the outcome and records it.
func (r *Router) accept(ctx context.Context, ru *run, leg domain.OrderLeg, next domain.RouteState) error {
	ru.outcome.Legs = append(ru.outcome.Legs, leg)
	ru.transition(next)
	ru.logger.InfoContext(ctx, "Leg accepted",
		slog.String("provider", string(leg.Provider)),
		slog.String("order_id", leg.OrderID),
		slog.String("symbol", leg.Symbol))

	if err := r.history.RecordLegSuccess(ctx, ru.req.ID, leg); err != nil {
		return fmt.Errorf("record %s leg %s: %w", leg.Provider, leg.OrderID, err)
	}
	return nil
}

func (r *Router) finish(ctx context.Context, ru *run) (domain.ConversionOutcome, error) {
	if err := r.history.FinalizeStatus(ctx, ru.req.ID, domain.StatusSent); err != nil {
		return r.fail(ctx, ru, fmt.Errorf("finalize status: %w", err))
	}
	ru.transition(domain.StateSent)
	ru.outcome.Status = domain.StatusSent
	r.metrics.outcome(domain.StatusSent)
	ru.logger.InfoContext(ctx, "Conversion sent", slog.Int("legs", len(ru.outcome.Legs)))
	return ru.outcome, nil
}

// fail records err as the conversion's failure entry and finalizes the
// status as error. Earlier legs stay recorded; nothing is compensated.
func (r *Router) fail(ctx context.Context, ru *run, cause error) (domain.ConversionOutcome, error) {
	ru.transition(domain.StateError)
	ru.outcome.Status = domain.StatusError
	ru.outcome.ErrorDetail = cause.Error()
	r.metrics.outcome(domain.StatusError)

	ru.logger.ErrorContext(ctx, "Conversion failed",
		slog.Int("legs", len(ru.outcome.Legs)),
		slog.Any("error", cause))

	// The failure must be stored even if the caller's context is done.
	ctx = context.WithoutCancel(ctx)
	var errs []error
	if err := r.history.RecordLegFailure(ctx, ru.req.ID, ru.outcome.ErrorDetail); err != nil {
		errs = append(errs, fmt.Errorf("record failure: %w", err))
	}
	if err := r.history.FinalizeStatus(ctx, ru.req.ID, domain.StatusError); err != nil {
		errs = append(errs, fmt.Errorf("finalize status: %w", err))
	}
	return ru.outcome, errors.Join(errs...)
}
