// Package currency defines the conversion collaborator the routing
// engine records converted amounts from. Rate sourcing is outside this
// service; the shipped implementation is a pass-through.
package currency

import (
	"context"

	"github.com/shopspring/decimal"
)

// Converter turns an amount in one currency into another
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// Passthrough returns the amount unchanged. Matching currencies need no
// conversion; for mismatching ones the converted amount simply mirrors
// the original until a real rate source is plugged in.
type Passthrough struct{}

// NewPassthrough creates a pass-through converter
func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

// Convert returns the amount as-is
func (p *Passthrough) Convert(_ context.Context, amount decimal.Decimal, _, _ string) (decimal.Decimal, error) {
	return amount, nil
}
