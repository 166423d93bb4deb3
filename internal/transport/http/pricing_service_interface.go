package http

import (
	"context"

	"pricingcli/internal/services"
)

// PricingServiceInterface is what the pricing handler needs from the
// calculation service
type PricingServiceInterface interface {
	StartCalculation(ctx context.Context) (string, error)
	Status() services.RunStatus
	Reload(ctx context.Context) (*services.Snapshot, error)
	Grid(ctx context.Context) (*services.Grid, error)
	Item(ctx context.Context, index string) (*services.GridRow, error)
	Composition(ctx context.Context, code string) (*services.CompositionView, error)
}
