package ports

import (
	"context"

	"github.com/aretw0/stepview/pkg/domain"
)

// ExecutionGateway submits a program to the execution backend.
type ExecutionGateway interface {
	// Execute sends a single request and returns the full trace.
	// Cancelling ctx aborts the in-flight request. Implementations never retry.
	Execute(ctx context.Context, req domain.ExecutionRequest) (*domain.ExecutionState, error)
}

// CatalogGateway exposes the read-only companion endpoints of the backend.
type CatalogGateway interface {
	Health(ctx context.Context) (*domain.Health, error)
	Languages(ctx context.Context) ([]domain.LanguageInfo, error)
	Examples(ctx context.Context, language domain.Language) ([]domain.CodeExample, error)
	Validate(ctx context.Context, req domain.ExecutionRequest) (*domain.ValidationResult, error)
}

// GatewayFunc adapts a function to ExecutionGateway.
type GatewayFunc func(ctx context.Context, req domain.ExecutionRequest) (*domain.ExecutionState, error)

// Execute calls f(ctx, req).
func (f GatewayFunc) Execute(ctx context.Context, req domain.ExecutionRequest) (*domain.ExecutionState, error) {
	return f(ctx, req)
}
