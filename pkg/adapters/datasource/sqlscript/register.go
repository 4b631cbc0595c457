package sqlscript

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource"
)

const defaultSampleValues = 3

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.AdapterInfo{
			Kind:        datasource.KindSQLScript,
			DisplayName: "SQL script dump",
			Description: "Semicolon-terminated statements, dialect-translated and replayed into the embedded store",
		},
		Factory: func(ctx context.Context, config map[string]any, logger *zap.Logger) (datasource.Adapter, error) {
			path, ok := config["path"].(string)
			if !ok || path == "" {
				return nil, fmt.Errorf("path is required")
			}
			sampleValues := datasource.IntSetting(config, "sample_values", defaultSampleValues)
			return Open(ctx, path, sampleValues, logger)
		},
	})
}
