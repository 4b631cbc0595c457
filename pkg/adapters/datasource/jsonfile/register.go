package jsonfile

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
			Kind:           datasource.KindJSON,
			DisplayName:    "Tree-structured data (JSON)",
			Description:    "Single JSON value or newline-delimited objects; loaded into the embedded store",
			RenamesColumns: true,
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
