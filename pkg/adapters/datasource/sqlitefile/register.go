package sqlitefile

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
			Kind:        datasource.KindSQLite,
			DisplayName: "SQLite store file",
			Description: "Local SQLite database file, opened read-only",
		},
		Factory: func(ctx context.Context, config map[string]any, logger *zap.Logger) (datasource.Adapter, error) {
			path, ok := config["path"].(string)
			if !ok || path == "" {
				return nil, fmt.Errorf("path is required")
			}
			sampleValues := datasource.IntSetting(config, "sample_values", defaultSampleValues)
			removeOnClose, _ := config["remove_on_close"].(bool)
			return Open(ctx, path, sampleValues, removeOnClose, logger)
		},
	})
}
