package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest marks a request that violates the routing contract.
	ErrInvalidRequest = errors.New("invalid conversion request")

	// ErrInstrumentNotFound is wrapped by ResolutionError when no listing
	// passes the filter.
	ErrInstrumentNotFound = errors.New("no tradeable instrument found")

	// ErrConversionNotFound is returned by stores for an unknown conversion id.
	ErrConversionNotFound = errors.New("conversion not found")

	// ErrConversionClaimed is returned when a conversion is no longer
	// pending and so cannot be routed again.
	ErrConversionClaimed = fmt.Errorf("%w: conversion is not pending", ErrInvalidRequest)
)

// ResolutionError reports that no futures instrument could be chosen.
type ResolutionError struct {
	Base  Currency
	Quote Currency
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve next %s%s instrument: %v", e.Base, e.Quote, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// OrderRejected reports that a venue refused an order or answered without
// a usable result.
type OrderRejected struct {
	Provider Provider
	Message  string
}

func (e *OrderRejected) Error() string {
	return fmt.Sprintf("%s order rejected: %s", e.Provider, e.Message)
}

// OracleUnavailable reports that no price is known for a pair whose price
// is needed to size an order.
type OracleUnavailable struct {
	Pair string
	Err  error
}

func (e *OracleUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no price for %s: %v", e.Pair, e.Err)
	}
	return fmt.Sprintf("no price for %s", e.Pair)
}

func (e *OracleUnavailable) Unwrap() error {
	return e.Err
}
