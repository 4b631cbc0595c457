package mongodb

import (
	"context"

	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource"
)

const defaultSampleSize = 10

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.AdapterInfo{
			Kind:        datasource.KindMongoDB,
			DisplayName: "MongoDB",
			Description: "Connect to a MongoDB database; schema inferred by sampling documents",
		},
		Factory: func(ctx context.Context, config map[string]any, logger *zap.Logger) (datasource.Adapter, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, err
			}
			sampleSize := datasource.IntSetting(config, "sample_size", defaultSampleSize)
			return NewAdapter(ctx, cfg, sampleSize, logger)
		},
	})
}
