// Package sqlitefile is the embedded-relational source adapter: it opens a
// local SQLite store file read-only and introspects it via the native
// catalog. When the file was materialized from an upload it is treated as
// temp backing storage and removed once on Close.
package sqlitefile

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource"
	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource/embedded"
	"github.com/datalens-ai/datalens-engine/pkg/apperrors"
)

// Open opens a store file in place. If removeOnClose is set the file is
// deleted when the source is closed (idempotent, missing file tolerated).
func Open(ctx context.Context, path string, sampleValues int, removeOnClose bool, logger *zap.Logger) (*embedded.Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, apperrors.ConnectionError(datasource.KindSQLite, err)
	}

	db, err := embedded.OpenFile(path)
	if err != nil {
		return nil, apperrors.ConnectionError(datasource.KindSQLite, err)
	}

	// The container opens lazily; verify it is actually a readable store.
	if err := db.Ping(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, apperrors.ConnectionError(datasource.KindSQLite, err)
	}
	tables, err := db.TableNames(ctx)
	if err != nil {
		db.Close() //nolint:errcheck
		return nil, apperrors.ConnectionError(datasource.KindSQLite, err)
	}
	if len(tables) == 0 {
		db.Close() //nolint:errcheck
		return nil, apperrors.ConnectionError(datasource.KindSQLite, fmt.Errorf("store file has no tables"))
	}

	var cleanup func() error
	if removeOnClose {
		cleanup = func() error {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return err
			}
			return nil
		}
	}

	logger.Info("opened embedded store file", zap.Int("tables", len(tables)))

	return embedded.NewNativeSource(datasource.KindSQLite, db, sampleValues, cleanup, logger), nil
}
