package postgres

import (
	"context"

	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource"
)

const defaultSampleValues = 3

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.AdapterInfo{
			Kind:        datasource.KindPostgres,
			DisplayName: "PostgreSQL",
			Description: "Connect to PostgreSQL 12+, Aurora PostgreSQL, Supabase",
		},
		Factory: func(ctx context.Context, config map[string]any, logger *zap.Logger) (datasource.Adapter, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, err
			}
			sampleValues := datasource.IntSetting(config, "sample_values", defaultSampleValues)
			return NewAdapter(ctx, cfg, sampleValues, logger)
		},
	})
}
