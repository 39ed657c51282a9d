//go:build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"stockbt/internal/config"
)

func buildAppWithWire(ctx context.Context, cfg *config.Config, opts []AppBuilderOption) (*App, error) {
	wire.Build(provideAppBuilder, provideAppFromBuilder)
	return nil, nil
}
