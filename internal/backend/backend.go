// Package backend opens the conversation store selected in the config.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vasilisp/postgen/internal/config"
	"github.com/vasilisp/postgen/internal/postgres"
	"github.com/vasilisp/postgen/internal/sqlite"
	"github.com/vasilisp/postgen/internal/store"
	"github.com/vasilisp/postgen/internal/supabase"
	"github.com/vasilisp/postgen/internal/util"
)

func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	util.Assert(cfg != nil, "OpenStore nil config")

	slog.Info("opening store", "kind", cfg.Store)

	switch cfg.Store {
	case config.StoreSupabase:
		return supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseKey), nil
	case config.StorePostgres:
		s, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return s, nil
	case config.StoreSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
